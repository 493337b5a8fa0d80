package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/config"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run creates and executes the main pgkeeper CLI application with the given
// version and command-line arguments. This function serves as the main entry
// point for all CLI operations and handles global configuration.
//
// Global Flags:
//   - --config, -c: configuration file (defaults to pgkeeper.yaml)
//   - --profile, -p: connection profile from the configuration file
//   - --dsn: connection string override (never echoed back in errors or logs)
//
// Connection details come from the named profile in pgkeeper.yaml; --dsn
// overrides the profile entirely for one-off connections.
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := &cli.Command{
		Name:  "pgkeeper",
		Usage: "A tool for managing PostgreSQL clusters through their catalogs",
		Description: `pgkeeper is a CLI for inspecting and managing PostgreSQL cluster objects
(roles, databases, tables, views, sequences, schemas, replication slots,
procedures, and pg_hba.conf rules), terminating backends, reloading server
configuration, and running pg_dump/pg_restore based backups.`,
		Version:  p.Version.Version,
		Flags:    globalFlags(),
		Commands: p.Commands,
	}

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			slog.Error("Error running command", "err", err)
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "the pgkeeper config file",
			Sources: cli.EnvVars("PGKEEPER_CONFIG"),
			Value:   config.DefaultFile,
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "connection profile to use",
			Sources: cli.EnvVars("PGKEEPER_PROFILE"),
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
		&cli.StringFlag{
			Name:    "dsn",
			Usage:   "connection string override (takes precedence over the profile)",
			Sources: cli.EnvVars("PGKEEPER_DSN"),
		},
		&cli.StringFlag{
			Name:  "strategy",
			Usage: "collection load strategy (lazy, hybrid, or eager)",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
	}
}

func requireConfig(cfg *config.Config) func(context.Context, *cli.Command) (context.Context, error) {
	return func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if cfg == nil && cmd.String("dsn") == "" {
			return ctx, errors.Errorf("%s not found and no --dsn given", config.DefaultFile)
		}

		return ctx, nil
	}
}
