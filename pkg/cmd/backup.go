package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/backup"
	"github.com/pseudomuto/pgkeeper/pkg/config"
	"github.com/pseudomuto/pgkeeper/pkg/utils"
	"github.com/urfave/cli/v3"
)

func backupCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "backup",
		Usage:     "Back up a database with pg_dump",
		ArgsUsage: "<database> <target>",
		Description: `Run pg_dump on the server host and write the dump to the target path.
Targets starting with gs:// are streamed to Google Cloud Storage via gsutil;
anything else is a path on the server's filesystem.

The dump is produced by the PostgreSQL server itself, so pg_dump and (for
cloud targets) gsutil must be available on the server host.

Examples:

	pgkeeper backup app /backups/app.dump
	pgkeeper backup app gs://my-bucket/app.dump --schema-only`,
		Before: requireConfig(cfg),
		Flags: append([]cli.Flag{
			driverFlag(),
			&cli.StringFlag{
				Name:  "format",
				Usage: "pg_dump output format (c, d, t, or p)",
				Value: "c",
			},
			&cli.IntFlag{
				Name:  "compress",
				Usage: "compression level (0-9)",
				Value: 5,
			},
			&cli.StringSliceFlag{
				Name:  "exclude-table",
				Usage: "exclude a table from the dump (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude-table-data",
				Usage: "dump structure but not data for a table (repeatable)",
			},
		}, sharedDumpFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			database, target, err := dumpArgs(cmd)
			if err != nil {
				return err
			}

			c, done, err := openCluster(ctx, cmd, cfg)
			if err != nil {
				return err
			}
			defer done()

			opts := backupOptions(cmd)
			var run func(context.Context, string, string) error
			if isCloudTarget(target) {
				b := backup.NewGCPBackup(c)
				b.Options = opts
				run = b.Backup
			} else {
				b := backup.NewFileBackup(c)
				b.Options = opts
				run = b.Backup
			}

			if err := run(ctx, database, target); err != nil {
				return err
			}

			fmt.Fprintf(cmd.Writer, "Backed up %q to %s\n", database, target)
			return nil
		},
	}
}

func restoreCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Restore a database with pg_restore",
		ArgsUsage: "<database> <source>",
		Description: `Run pg_restore on the server host against the given dump. Sources starting
with gs:// are first staged to /tmp on the server via gsutil and removed
afterwards.

Examples:

	pgkeeper restore app /backups/app.dump
	pgkeeper restore app gs://my-bucket/app.dump --jobs 4`,
		Before: requireConfig(cfg),
		Flags: append([]cli.Flag{
			driverFlag(),
			&cli.IntFlag{
				Name:  "jobs",
				Usage: "number of parallel restore jobs",
			},
			&cli.BoolFlag{
				Name:  "single-transaction",
				Usage: "restore inside a single transaction",
			},
			&cli.BoolFlag{
				Name:  "exit-on-error",
				Usage: "stop at the first error instead of continuing",
			},
			&cli.BoolFlag{
				Name:  "disable-triggers",
				Usage: "disable triggers during a data-only restore",
			},
		}, sharedDumpFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			database, source, err := dumpArgs(cmd)
			if err != nil {
				return err
			}

			c, done, err := openCluster(ctx, cmd, cfg)
			if err != nil {
				return err
			}
			defer done()

			opts := restoreOptions(cmd)
			var run func(context.Context, string, string) error
			if isCloudTarget(source) {
				r := backup.NewGCPRestore(c)
				r.Options = opts
				run = r.Restore
			} else {
				r := backup.NewFileRestore(c)
				r.Options = opts
				run = r.Restore
			}

			if err := run(ctx, database, source); err != nil {
				return err
			}

			fmt.Fprintf(cmd.Writer, "Restored %q from %s\n", database, source)
			return nil
		},
	}
}

func sharedDumpFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "schema-only",
			Usage: "only object definitions, no data",
		},
		&cli.BoolFlag{
			Name:  "data-only",
			Usage: "only data, no object definitions",
		},
		&cli.BoolFlag{
			Name:  "clean",
			Usage: "drop objects before recreating them",
		},
		&cli.BoolFlag{
			Name:  "create",
			Usage: "include commands to create the database",
		},
		&cli.StringSliceFlag{
			Name:  "table",
			Usage: "restrict to a table (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "schema",
			Usage: "restrict to a schema (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-schema",
			Usage: "exclude a schema (repeatable)",
		},
		&cli.StringFlag{
			Name:  "role",
			Usage: "run as this role (SET ROLE before the operation)",
		},
		&cli.StringFlag{
			Name:  "section",
			Usage: "restrict to a dump section (pre-data, data, or post-data)",
		},
	}
}

func dumpArgs(cmd *cli.Command) (database, target string, err error) {
	if cmd.Args().Len() != 2 {
		return "", "", errors.New("expected exactly two arguments: database and path")
	}

	return cmd.Args().Get(0), cmd.Args().Get(1), nil
}

func isCloudTarget(path string) bool { return strings.HasPrefix(path, "gs://") }

func sharedOptions(cmd *cli.Command) backup.Options {
	return backup.Options{
		DataOnly:       cmd.Bool("data-only"),
		SchemaOnly:     cmd.Bool("schema-only"),
		Clean:          cmd.Bool("clean"),
		Create:         cmd.Bool("create"),
		Tables:         cmd.StringSlice("table"),
		Schemas:        cmd.StringSlice("schema"),
		ExcludeSchemas: cmd.StringSlice("exclude-schema"),
		Role:           cmd.String("role"),
		Section:        cmd.String("section"),
	}
}

func backupOptions(cmd *cli.Command) *backup.BackupOptions {
	opts := backup.NewBackupOptions()
	opts.Options = sharedOptions(cmd)
	opts.Format = cmd.String("format")
	opts.CompressionLevel = int(cmd.Int("compress"))
	opts.ExcludeTables = cmd.StringSlice("exclude-table")
	opts.ExcludeTableData = cmd.StringSlice("exclude-table-data")
	return opts
}

func restoreOptions(cmd *cli.Command) *backup.RestoreOptions {
	opts := backup.NewRestoreOptions()
	opts.Options = sharedOptions(cmd)
	opts.SingleTransaction = cmd.Bool("single-transaction")
	opts.ExitOnError = cmd.Bool("exit-on-error")
	opts.DisableTriggers = cmd.Bool("disable-triggers")
	if jobs := int(cmd.Int("jobs")); jobs > 0 {
		opts.Jobs = utils.Ptr(jobs)
	}
	return opts
}
