package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/cluster"
	"github.com/pseudomuto/pgkeeper/pkg/config"
	"github.com/urfave/cli/v3"
)

func script(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "script",
		Usage:     "Print the SQL that recreates an object",
		ArgsUsage: "<kind> <key>",
		Description: `Print the CREATE statement for a single object. Supported kinds are
databases, sequences, and replication_slots.

Examples:

	pgkeeper script databases app
	pgkeeper script sequences public.users_id_seq
	pgkeeper script replication_slots events`,
		Before: requireConfig(cfg),
		Flags:  []cli.Flag{driverFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return errors.New("expected exactly two arguments: kind and key")
			}

			kind := cluster.Kind(cmd.Args().Get(0))
			key := cmd.Args().Get(1)

			c, done, err := openCluster(ctx, cmd, cfg)
			if err != nil {
				return err
			}
			defer done()

			text, err := objectScript(ctx, c, kind, key)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.Writer, text)
			return nil
		},
	}
}

func objectScript(ctx context.Context, c *cluster.Cluster, kind cluster.Kind, key string) (string, error) {
	switch kind {
	case cluster.KindDatabases:
		dbs, err := c.Databases(ctx)
		if err != nil {
			return "", err
		}
		db, err := dbs.Get(ctx, key)
		if err != nil {
			return "", err
		}
		return db.Script()
	case cluster.KindSequences:
		seqs, err := c.Sequences(ctx)
		if err != nil {
			return "", err
		}
		seq, err := seqs.Get(ctx, key)
		if err != nil {
			return "", err
		}
		return seq.Script()
	case cluster.KindReplicationSlots:
		slots, err := c.ReplicationSlots(ctx)
		if err != nil {
			return "", err
		}
		slot, err := slots.Get(ctx, key)
		if err != nil {
			return "", err
		}
		return slot.Script()
	}

	return "", errors.Errorf("kind %q does not support script output", kind)
}
