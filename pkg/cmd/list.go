package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/cluster"
	"github.com/pseudomuto/pgkeeper/pkg/config"
	"github.com/urfave/cli/v3"
)

func list(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List objects of a given kind",
		ArgsUsage: "<kind>",
		Description: `List the keys of all objects of the given kind in the connected cluster.

Kinds: roles, databases, tables, views, sequences, schemas, replication_slots,
procedures.

Examples:

	pgkeeper list roles
	pgkeeper --profile staging list tables`,
		Before: requireConfig(cfg),
		Flags:  []cli.Flag{driverFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			kind, err := kindArg(cmd)
			if err != nil {
				return err
			}

			c, done, err := openCluster(ctx, cmd, cfg)
			if err != nil {
				return err
			}
			defer done()

			keys, err := collectionKeys(ctx, c, kind)
			if err != nil {
				return err
			}

			for _, key := range keys {
				fmt.Fprintln(cmd.Writer, key)
			}
			return nil
		},
	}
}

func kindArg(cmd *cli.Command) (cluster.Kind, error) {
	if cmd.Args().Len() != 1 {
		return "", errors.New("expected exactly one argument: the object kind")
	}

	kind := cluster.Kind(cmd.Args().First())
	for _, k := range cluster.AllKinds {
		if k == kind {
			return kind, nil
		}
	}

	return "", errors.Errorf("unknown collection kind %q", kind)
}

func collectionKeys(ctx context.Context, c *cluster.Cluster, kind cluster.Kind) ([]string, error) {
	switch kind {
	case cluster.KindRoles:
		roles, err := c.Roles(ctx)
		if err != nil {
			return nil, err
		}
		return roles.Keys(ctx)
	case cluster.KindDatabases:
		dbs, err := c.Databases(ctx)
		if err != nil {
			return nil, err
		}
		return dbs.Keys(ctx)
	case cluster.KindTables:
		tables, err := c.Tables(ctx)
		if err != nil {
			return nil, err
		}
		return tables.Keys(ctx)
	case cluster.KindViews:
		views, err := c.Views(ctx)
		if err != nil {
			return nil, err
		}
		return views.Keys(ctx)
	case cluster.KindSequences:
		seqs, err := c.Sequences(ctx)
		if err != nil {
			return nil, err
		}
		return seqs.Keys(ctx)
	case cluster.KindSchemas:
		schemas, err := c.Schemas(ctx)
		if err != nil {
			return nil, err
		}
		return schemas.Keys(ctx)
	case cluster.KindReplicationSlots:
		slots, err := c.ReplicationSlots(ctx)
		if err != nil {
			return nil, err
		}
		return slots.Keys(ctx)
	case cluster.KindProcedures:
		procs, err := c.Procedures(ctx)
		if err != nil {
			return nil, err
		}
		return procs.Keys(ctx)
	}

	return nil, errors.Errorf("unknown collection kind %q", kind)
}
