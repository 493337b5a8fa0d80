package cmd

import (
	"context"
	"fmt"

	"github.com/pseudomuto/pgkeeper/pkg/config"
	"github.com/urfave/cli/v3"
)

func hba(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "hba",
		Usage: "Show the cluster's client authentication rules",
		Description: `Print the effective pg_hba.conf rules as the server sees them. Comment and
blank lines are omitted unless --all is given.`,
		Before: requireConfig(cfg),
		Flags: []cli.Flag{
			driverFlag(),
			&cli.BoolFlag{
				Name:  "all",
				Usage: "include comment lines",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, done, err := openCluster(ctx, cmd, cfg)
			if err != nil {
				return err
			}
			defer done()

			rules, err := c.HBARules(ctx)
			if err != nil {
				return err
			}

			all := cmd.Bool("all")
			for _, rule := range rules.Rules() {
				if rule.IsComment() && !all {
					continue
				}
				fmt.Fprintln(cmd.Writer, rule.String())
			}
			return nil
		},
	}
}
