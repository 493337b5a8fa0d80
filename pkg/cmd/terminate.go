package cmd

import (
	"context"
	"fmt"

	"github.com/pseudomuto/pgkeeper/pkg/cluster"
	"github.com/pseudomuto/pgkeeper/pkg/config"
	"github.com/urfave/cli/v3"
)

func terminate(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "terminate",
		Usage: "Terminate backend sessions",
		Description: `Terminate server backends matching the given filters. The session's own
backend is always excluded. With no filters, every other backend is
terminated.

Examples:

	# Kick everyone out of the app database
	pgkeeper terminate --database app

	# Terminate everything except superuser sessions
	pgkeeper terminate --exclude-role postgres`,
		Before: requireConfig(cfg),
		Flags: []cli.Flag{
			driverFlag(),
			&cli.StringSliceFlag{
				Name:  "database",
				Usage: "only terminate backends connected to this database (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude-database",
				Usage: "never terminate backends connected to this database (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "role",
				Usage: "only terminate backends owned by this role (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude-role",
				Usage: "never terminate backends owned by this role (repeatable)",
			},
			&cli.Int64SliceFlag{
				Name:  "pid",
				Usage: "only terminate this backend pid (repeatable)",
			},
			&cli.Int64SliceFlag{
				Name:  "exclude-pid",
				Usage: "never terminate this backend pid (repeatable)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, done, err := openCluster(ctx, cmd, cfg)
			if err != nil {
				return err
			}
			defer done()

			pids, err := c.Terminate(ctx, terminateOptions(cmd))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.Writer, "Terminated %d backends\n", len(pids))
			for _, pid := range pids {
				fmt.Fprintln(cmd.Writer, pid)
			}
			return nil
		},
	}
}

func terminateOptions(cmd *cli.Command) cluster.TerminateOptions {
	return cluster.TerminateOptions{
		Databases:        cmd.StringSlice("database"),
		ExcludeDatabases: cmd.StringSlice("exclude-database"),
		Roles:            cmd.StringSlice("role"),
		ExcludeRoles:     cmd.StringSlice("exclude-role"),
		PIDs:             cmd.Int64Slice("pid"),
		ExcludePIDs:      cmd.Int64Slice("exclude-pid"),
	}
}
