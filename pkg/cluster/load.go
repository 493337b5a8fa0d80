package cluster

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	"github.com/pseudomuto/pgkeeper/pkg/objects"
	"golang.org/x/sync/errgroup"
)

// Kind names a collection for Load.
type Kind string

const (
	KindRoles            Kind = "roles"
	KindDatabases        Kind = "databases"
	KindTables           Kind = "tables"
	KindViews            Kind = "views"
	KindSequences        Kind = "sequences"
	KindSchemas          Kind = "schemas"
	KindReplicationSlots Kind = "replication_slots"
	KindProcedures       Kind = "procedures"
)

// AllKinds lists every collection Load understands.
var AllKinds = []Kind{
	KindRoles, KindDatabases, KindTables, KindViews,
	KindSequences, KindSchemas, KindReplicationSlots, KindProcedures,
}

// loadable is the collection surface Load needs: fetch metadata through an
// arbitrary executor, then swap it in.
type loadable interface {
	Fetch(ctx context.Context, exec objects.Executor) (*objects.Metadata, error)
	Install(meta *objects.Metadata)
}

// Load fetches the metadata of the named collections in parallel, one cloned
// connection per kind, and installs the results only after every fetch has
// succeeded. A failed fetch leaves all collections exactly as they were. The
// adapter must support cloning.
func (c *Cluster) Load(ctx context.Context, kinds ...Kind) error {
	if len(kinds) == 0 {
		kinds = AllKinds
	}

	cloner, ok := c.adapter.(adapter.Cloner)
	if !ok {
		return errors.New("parallel load requires an adapter that can clone its connection")
	}

	targets := make([]loadable, len(kinds))
	for i, kind := range kinds {
		target, err := c.target(ctx, kind)
		if err != nil {
			return err
		}
		targets[i] = target
	}

	results := make([]*objects.Metadata, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		g.Go(func() error {
			clone, err := cloner.Clone(gctx)
			if err != nil {
				return errors.Wrapf(err, "cloning connection for %s", kinds[i])
			}
			defer clone.Close(gctx) //nolint:errcheck

			session := &Cluster{adapter: clone, database: c.database, version: c.version}
			meta, err := target.Fetch(gctx, session)
			if err != nil {
				return errors.Wrapf(err, "loading %s", kinds[i])
			}
			results[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, target := range targets {
		target.Install(results[i])
	}
	return nil
}

// target returns the collection behind kind, building it lazily so that
// construction itself performs no fetch.
func (c *Cluster) target(ctx context.Context, kind Kind) (loadable, error) {
	prior := c.strategy
	c.strategy = objects.LoadLazy
	defer func() { c.strategy = prior }()

	switch kind {
	case KindRoles:
		roles, err := c.Roles(ctx)
		if err != nil {
			return nil, err
		}
		return roles.Collection, nil
	case KindDatabases:
		databases, err := c.Databases(ctx)
		if err != nil {
			return nil, err
		}
		return databases.Collection, nil
	case KindTables:
		tables, err := c.Tables(ctx)
		if err != nil {
			return nil, err
		}
		return tables.Collection, nil
	case KindViews:
		views, err := c.Views(ctx)
		if err != nil {
			return nil, err
		}
		return views.Collection, nil
	case KindSequences:
		sequences, err := c.Sequences(ctx)
		if err != nil {
			return nil, err
		}
		return sequences.Collection, nil
	case KindSchemas:
		schemas, err := c.Schemas(ctx)
		if err != nil {
			return nil, err
		}
		return schemas.Collection, nil
	case KindReplicationSlots:
		slots, err := c.ReplicationSlots(ctx)
		if err != nil {
			return nil, err
		}
		return slots.Collection, nil
	case KindProcedures:
		procedures, err := c.Procedures(ctx)
		if err != nil {
			return nil, err
		}
		return procedures.Collection, nil
	default:
		return nil, errors.Errorf("unknown collection kind %q", kind)
	}
}
