package cmd

import (
	"context"
	"io"
	"testing"

	"github.com/pseudomuto/pgkeeper/pkg/cluster"
	"github.com/pseudomuto/pgkeeper/pkg/cmd/testutil"
	"github.com/pseudomuto/pgkeeper/pkg/config"
	"github.com/pseudomuto/pgkeeper/pkg/objects"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

// parseFlags runs a command's flag set against args and hands the parsed
// command to fn without executing the real action.
func parseFlags(t *testing.T, src *cli.Command, args []string, fn func(*cli.Command)) {
	t.Helper()

	stub := &cli.Command{
		Name:  src.Name,
		Flags: src.Flags,
		Action: func(_ context.Context, cmd *cli.Command) error {
			fn(cmd)
			return nil
		},
	}

	_, err := testutil.RunCommand(t, stub, args)
	require.NoError(t, err)
}

func TestTerminateOptions(t *testing.T) {
	parseFlags(t, terminate(nil), []string{
		"--database", "app",
		"--database", "reporting",
		"--exclude-role", "postgres",
		"--exclude-pid", "42",
	}, func(cmd *cli.Command) {
		require.Equal(t, cluster.TerminateOptions{
			Databases:    []string{"app", "reporting"},
			ExcludeRoles: []string{"postgres"},
			ExcludePIDs:  []int64{42},
		}, terminateOptions(cmd))
	})
}

func TestBackupOptions(t *testing.T) {
	parseFlags(t, backupCmd(nil), []string{
		"--schema-only",
		"--table", "users",
		"--compress", "9",
		"--exclude-table-data", "audit_log",
		"--role", "backup_role",
	}, func(cmd *cli.Command) {
		opts := backupOptions(cmd)
		require.True(t, opts.SchemaOnly)
		require.Equal(t, []string{"users"}, opts.Tables)
		require.Equal(t, "c", opts.Format)
		require.Equal(t, 9, opts.CompressionLevel)
		require.True(t, opts.Blobs)
		require.Equal(t, []string{"audit_log"}, opts.ExcludeTableData)
		require.Equal(t, "backup_role", opts.Role)
	})
}

func TestRestoreOptions(t *testing.T) {
	parseFlags(t, restoreCmd(nil), []string{
		"--jobs", "4",
		"--single-transaction",
		"--schema", "public",
	}, func(cmd *cli.Command) {
		opts := restoreOptions(cmd)
		require.NotNil(t, opts.Jobs)
		require.Equal(t, 4, *opts.Jobs)
		require.True(t, opts.SingleTransaction)
		require.Equal(t, []string{"public"}, opts.Schemas)
	})
}

func TestRestoreOptionsNoJobs(t *testing.T) {
	parseFlags(t, restoreCmd(nil), nil, func(cmd *cli.Command) {
		require.Nil(t, restoreOptions(cmd).Jobs)
	})
}

func TestIsCloudTarget(t *testing.T) {
	require.True(t, isCloudTarget("gs://bucket/path.dump"))
	require.False(t, isCloudTarget("/backups/app.dump"))
	require.False(t, isCloudTarget("relative/app.dump"))
}

func TestResolveConnection(t *testing.T) {
	cfg := &config.Config{
		DefaultProfile: "local",
		Profiles: map[string]config.Profile{
			"local": {
				Host:         "db.internal",
				Port:         5433,
				Database:     "app",
				User:         "keeper",
				Become:       "postgres",
				LoadStrategy: "hybrid",
			},
		},
	}

	t.Run("from profile", func(t *testing.T) {
		parseFlags(t, connectStub(), nil, func(cmd *cli.Command) {
			conn, err := resolveConnection(cmd, cfg)
			require.NoError(t, err)
			require.Equal(t, "postgres", conn.become)
			require.Equal(t, objects.LoadHybrid, conn.strategy)
			require.Equal(t, "keeper@db.internal:5433/app", conn.display)
			require.Contains(t, conn.dsn, "host=db.internal")
		})
	})

	t.Run("strategy override", func(t *testing.T) {
		parseFlags(t, connectStub(), []string{"--strategy", "eager"}, func(cmd *cli.Command) {
			conn, err := resolveConnection(cmd, cfg)
			require.NoError(t, err)
			require.Equal(t, objects.LoadEager, conn.strategy)
		})
	})

	t.Run("bad strategy", func(t *testing.T) {
		parseFlags(t, connectStub(), []string{"--strategy", "psychic"}, func(cmd *cli.Command) {
			_, err := resolveConnection(cmd, cfg)
			require.ErrorContains(t, err, `unknown load strategy "psychic"`)
		})
	})

	t.Run("dsn override", func(t *testing.T) {
		parseFlags(t, connectStub(), []string{"--dsn", "host=elsewhere dbname=x"}, func(cmd *cli.Command) {
			conn, err := resolveConnection(cmd, cfg)
			require.NoError(t, err)
			require.Equal(t, "host=elsewhere dbname=x", conn.dsn)
			require.Equal(t, "custom DSN", conn.display)
		})
	})

	t.Run("unknown profile", func(t *testing.T) {
		parseFlags(t, connectStub(), []string{"--profile", "nope"}, func(cmd *cli.Command) {
			_, err := resolveConnection(cmd, cfg)
			require.ErrorContains(t, err, `no connection profile named "nope"`)
		})
	})

	t.Run("no config no dsn", func(t *testing.T) {
		parseFlags(t, connectStub(), nil, func(cmd *cli.Command) {
			_, err := resolveConnection(cmd, nil)
			require.ErrorContains(t, err, "pgkeeper.yaml not found")
		})
	})
}

// connectStub carries the global connection flags that normally live on the
// root command.
func connectStub() *cli.Command {
	return &cli.Command{
		Name: "connect",
		Flags: []cli.Flag{
			driverFlag(),
			&cli.StringFlag{Name: "dsn"},
			&cli.StringFlag{Name: "profile"},
			&cli.StringFlag{Name: "strategy"},
		},
	}
}

// runGlobal executes a real command under a parent carrying the root
// command's global flags, which must precede the command name.
func runGlobal(t *testing.T, command *cli.Command, globals, args []string) error {
	t.Helper()

	app := &cli.Command{
		Name:     "pgkeeper",
		Writer:   io.Discard,
		Flags:    globalFlags(),
		Commands: []*cli.Command{command},
	}

	full := append([]string{"pgkeeper"}, globals...)
	full = append(full, command.Name)
	full = append(full, args...)
	return app.Run(context.Background(), full)
}

func TestListRejectsUnknownKind(t *testing.T) {
	err := runGlobal(t, list(nil), []string{"--dsn", "host=x"}, []string{"widgets"})
	require.ErrorContains(t, err, `unknown collection kind "widgets"`)
}

func TestListRequiresKind(t *testing.T) {
	err := runGlobal(t, list(nil), []string{"--dsn", "host=x"}, nil)
	require.ErrorContains(t, err, "exactly one argument")
}

func TestScriptRequiresKindAndKey(t *testing.T) {
	err := runGlobal(t, script(nil), []string{"--dsn", "host=x"}, []string{"databases"})
	require.ErrorContains(t, err, "exactly two arguments")
}

func TestBackupRequiresDatabaseAndTarget(t *testing.T) {
	err := runGlobal(t, backupCmd(nil), []string{"--dsn", "host=x"}, []string{"app"})
	require.ErrorContains(t, err, "exactly two arguments")
}

func TestReassignRejectsSameRole(t *testing.T) {
	err := runGlobal(t, reassign(nil), []string{"--dsn", "host=x"}, []string{
		"--from", "app", "--to", "app",
	})
	require.ErrorContains(t, err, "--from and --to name the same role")
}

func TestCommandsRequireConfigOrDSN(t *testing.T) {
	err := runGlobal(t, reload(nil), nil, nil)
	require.ErrorContains(t, err, "pgkeeper.yaml not found")
}
