package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/pseudomuto/pgkeeper/pkg/config"
	"github.com/pseudomuto/pgkeeper/pkg/consts"
	"github.com/pseudomuto/pgkeeper/pkg/objects"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
default_profile: local
profiles:
  local:
    host: db.internal
    port: 5433
    database: app
    user: keeper
    password_env: PGKEEPER_TEST_PASSWORD
    sslmode: require
    become: postgres
    load_strategy: hybrid
  scratch:
    password: hunter2
`

func TestLoadConfig(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		cfg, err := LoadConfig(strings.NewReader(testConfigYAML))
		require.NoError(t, err)
		require.Equal(t, "local", cfg.DefaultProfile)
		require.Len(t, cfg.Profiles, 2)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		cfg, err := LoadConfig(strings.NewReader("profiles: ["))
		require.Error(t, err)
		require.Nil(t, cfg)
		require.Contains(t, err.Error(), "unmarshalling configuration")
	})
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pgkeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), consts.ModeFile))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, "local", cfg.DefaultProfile)

	_, err = LoadConfigFile("nonexistent.yaml")
	require.ErrorContains(t, err, "opening configuration file")
}

func TestProfileResolution(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(testConfigYAML))
	require.NoError(t, err)

	t.Run("empty name uses the default profile", func(t *testing.T) {
		p, err := cfg.Profile("")
		require.NoError(t, err)
		require.Equal(t, "db.internal", p.Host)
		require.Equal(t, 5433, p.Port)
		require.Equal(t, "postgres", p.Become)
	})

	t.Run("defaults fill missing fields", func(t *testing.T) {
		p, err := cfg.Profile("scratch")
		require.NoError(t, err)
		require.Equal(t, "localhost", p.Host)
		require.Equal(t, 5432, p.Port)
		require.Equal(t, "postgres", p.Database)
		require.Equal(t, "postgres", p.User)
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := cfg.Profile("nope")
		require.ErrorContains(t, err, `no connection profile named "nope"`)
	})
}

func TestProfileDSN(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(testConfigYAML))
	require.NoError(t, err)

	t.Run("password from environment", func(t *testing.T) {
		t.Setenv("PGKEEPER_TEST_PASSWORD", "s3cret")
		p, err := cfg.Profile("local")
		require.NoError(t, err)
		require.Equal(t,
			"host=db.internal port=5433 dbname=app user=keeper password=s3cret sslmode=require",
			p.DSN(),
		)
	})

	t.Run("inline password", func(t *testing.T) {
		p, err := cfg.Profile("scratch")
		require.NoError(t, err)
		require.Contains(t, p.DSN(), "password=hunter2")
	})

	t.Run("String carries no credentials", func(t *testing.T) {
		p, err := cfg.Profile("scratch")
		require.NoError(t, err)
		require.Equal(t, "postgres@localhost:5432/postgres", p.String())
		require.NotContains(t, p.String(), "hunter2")
	})
}

func TestProfileStrategy(t *testing.T) {
	tests := []struct {
		value string
		want  objects.LoadStrategy
		fails bool
	}{
		{value: "", want: objects.LoadLazy},
		{value: "lazy", want: objects.LoadLazy},
		{value: "hybrid", want: objects.LoadHybrid},
		{value: "eager", want: objects.LoadEager},
		{value: "greedy", fails: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			p := Profile{LoadStrategy: tt.value}
			got, err := p.Strategy()
			if tt.fails {
				require.ErrorContains(t, err, "unknown load strategy")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
