package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/config"
	"github.com/urfave/cli/v3"
)

func reload(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:   "reload",
		Usage:  "Reload the server configuration",
		Before: requireConfig(cfg),
		Flags:  []cli.Flag{driverFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, done, err := openCluster(ctx, cmd, cfg)
			if err != nil {
				return err
			}
			defer done()

			if err := c.Reload(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.Writer, "Configuration reloaded")
			return nil
		},
	}
}

func reassign(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "reassign",
		Usage: "Reassign ownership of all objects owned by a role",
		Description: `Run REASSIGN OWNED BY to transfer everything a role owns to another role.
Useful before dropping the role.

Example:

	pgkeeper reassign --from app --to postgres`,
		Before: requireConfig(cfg),
		Flags: []cli.Flag{
			driverFlag(),
			&cli.StringFlag{
				Name:     "from",
				Usage:    "role currently owning the objects",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "to",
				Usage:    "role receiving ownership",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			from, to := cmd.String("from"), cmd.String("to")
			if from == to {
				return errors.New("--from and --to name the same role")
			}

			c, done, err := openCluster(ctx, cmd, cfg)
			if err != nil {
				return err
			}
			defer done()

			if err := c.ReassignOwned(ctx, from, to); err != nil {
				return err
			}

			fmt.Fprintf(cmd.Writer, "Reassigned objects owned by %q to %q\n", from, to)
			return nil
		},
	}
}
