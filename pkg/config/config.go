package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/objects"
	"gopkg.in/yaml.v3"
)

type (
	// Profile is one named set of connection parameters. Passwords can be
	// given inline or through an environment variable; either way they never
	// appear in logs or error text.
	Profile struct {
		// Host is the server host name. Defaults to localhost.
		Host string `yaml:"host,omitempty"`

		// Port is the server port. Defaults to 5432.
		Port int `yaml:"port,omitempty"`

		// Database is the database to connect to. Defaults to postgres.
		Database string `yaml:"database,omitempty"`

		// User is the login role. Defaults to postgres.
		User string `yaml:"user,omitempty"`

		// Password is the login password. Prefer PasswordEnv for anything
		// that lands in version control.
		Password string `yaml:"password,omitempty"`

		// PasswordEnv names an environment variable holding the password.
		// It takes precedence over Password when the variable is set.
		PasswordEnv string `yaml:"password_env,omitempty"`

		// SSLMode is passed through as the sslmode connection parameter.
		SSLMode string `yaml:"sslmode,omitempty"`

		// Become is a role to assume right after connecting.
		Become string `yaml:"become,omitempty"`

		// LoadStrategy picks how collections load: lazy (default), hybrid
		// or eager.
		LoadStrategy string `yaml:"load_strategy,omitempty"`
	}

	// Config is the pgkeeper configuration file: named connection profiles
	// and the one used when no profile is named.
	Config struct {
		// DefaultProfile names the profile used when none is requested.
		DefaultProfile string `yaml:"default_profile,omitempty"`

		// Profiles maps profile names to connection parameters.
		Profiles map[string]Profile `yaml:"profiles"`
	}
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "pgkeeper.yaml"

// LoadConfig parses a configuration from YAML.
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshalling configuration")
	}
	return &cfg, nil
}

// LoadConfigFile loads a configuration from the given path.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening configuration file %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}

// Profile resolves a profile by name. An empty name falls back to
// DefaultProfile, then to a profile called "default".
func (c *Config) Profile(name string) (Profile, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" {
		name = "default"
	}
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, errors.Errorf("no connection profile named %q", name)
	}
	return p.withDefaults(), nil
}

func (p Profile) withDefaults() Profile {
	if p.Host == "" {
		p.Host = "localhost"
	}
	if p.Port == 0 {
		p.Port = 5432
	}
	if p.Database == "" {
		p.Database = "postgres"
	}
	if p.User == "" {
		p.User = "postgres"
	}
	return p
}

// DSN renders the profile as a keyword/value connection string. The result
// contains the password and must never be logged; use String for anything
// user-visible.
func (p Profile) DSN() string {
	parts := []string{
		fmt.Sprintf("host=%s", p.Host),
		fmt.Sprintf("port=%d", p.Port),
		fmt.Sprintf("dbname=%s", p.Database),
		fmt.Sprintf("user=%s", p.User),
	}
	if password := p.password(); password != "" {
		parts = append(parts, "password="+password)
	}
	if p.SSLMode != "" {
		parts = append(parts, "sslmode="+p.SSLMode)
	}
	return strings.Join(parts, " ")
}

// String renders the profile without credentials.
func (p Profile) String() string {
	return fmt.Sprintf("%s@%s:%d/%s", p.User, p.Host, p.Port, p.Database)
}

func (p Profile) password() string {
	if p.PasswordEnv != "" {
		if v := os.Getenv(p.PasswordEnv); v != "" {
			return v
		}
	}
	return p.Password
}

// Strategy maps the profile's load_strategy value to the engine's constant.
func (p Profile) Strategy() (objects.LoadStrategy, error) {
	switch p.LoadStrategy {
	case "", "lazy":
		return objects.LoadLazy, nil
	case "hybrid":
		return objects.LoadHybrid, nil
	case "eager":
		return objects.LoadEager, nil
	default:
		return objects.LoadLazy, errors.Errorf("unknown load strategy %q", p.LoadStrategy)
	}
}
