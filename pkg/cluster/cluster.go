package cluster

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	"github.com/pseudomuto/pgkeeper/pkg/catalog"
	"github.com/pseudomuto/pgkeeper/pkg/objects"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
)

type (
	// Cluster is a connected PostgreSQL server. It owns one adapter connection
	// and hands out catalog object collections bound to it. A Cluster is not
	// safe for concurrent use; Load is the one operation that fans out, and it
	// does so over cloned connections.
	Cluster struct {
		adapter  adapter.Adapter
		strategy objects.LoadStrategy
		become   string

		database string
		version  catalog.Version

		roles      *objects.Roles
		databases  *objects.Databases
		tables     *objects.Tables
		views      *objects.Views
		sequences  *objects.Sequences
		schemas    *objects.Schemas
		slots      *objects.ReplicationSlots
		procedures *objects.Procedures
		hba        *objects.HBARules
	}

	// Option configures a Cluster before the first server round trip.
	Option func(*Cluster)
)

// Become switches the session to the given role right after connecting.
func Become(role string) Option {
	return func(c *Cluster) { c.become = role }
}

// WithLoadStrategy sets the load strategy used when collections are built.
// The default is LoadLazy.
func WithLoadStrategy(strategy objects.LoadStrategy) Option {
	return func(c *Cluster) { c.strategy = strategy }
}

// Open binds a cluster to an established adapter connection. It reads the
// current database and server version, then applies the Become role if one
// was given.
//
// Example:
//
//	a, err := pgx.Connect(ctx, dsn)
//	if err != nil {
//		return err
//	}
//	cluster, err := cluster.Open(ctx, a, cluster.Become("postgres"))
func Open(ctx context.Context, adpt adapter.Adapter, opts ...Option) (*Cluster, error) {
	c := &Cluster{adapter: adpt, strategy: objects.LoadLazy}
	for _, opt := range opts {
		opt(c)
	}

	rows, err := c.Execute(ctx, sql.Raw("SELECT current_database(), version()"))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("server did not report its identity")
	}
	c.database = rows[0].String(0)

	version, err := catalog.ParseServerVersion(rows[0].String(1))
	if err != nil {
		return nil, err
	}
	c.version = version

	if c.become != "" {
		stmt := sql.MustFormat("SET ROLE {role}", sql.Args{"role": sql.Ident(c.become)})
		if _, err := c.Execute(ctx, stmt); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// CurrentDatabase returns the database this cluster is connected to.
func (c *Cluster) CurrentDatabase() string { return c.database }

// ServerVersion implements objects.Executor.
func (c *Cluster) ServerVersion() catalog.Version { return c.version }

// BecomeRole returns the role assumed after connecting, or empty.
func (c *Cluster) BecomeRole() string { return c.become }

// Adapter returns the underlying connection adapter.
func (c *Cluster) Adapter() adapter.Adapter { return c.adapter }

// Execute renders stmt and runs it on the cluster's connection, returning any
// result rows. Every statement the engine issues goes through here. Extra args
// are appended after the rendered bind parameters.
func (c *Cluster) Execute(ctx context.Context, stmt sql.Composable, args ...any) ([]adapter.Row, error) {
	text, params, err := sql.Render(stmt)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		params = append(params, args...)
	}

	cursor, err := c.adapter.Cursor()
	if err != nil {
		return nil, err
	}
	defer cursor.Close() //nolint:errcheck

	if err := cursor.Execute(ctx, text, params); err != nil {
		return nil, err
	}
	return cursor.Fetch()
}

// NoAutocommit runs fn with autocommit off, committing on success and rolling
// back when fn errors. Nested calls join the outer scope, so at most one
// transaction boundary is in effect. The prior autocommit mode is restored on
// every exit path.
func (c *Cluster) NoAutocommit(ctx context.Context, fn func(context.Context) error) error {
	if !c.adapter.Autocommit() {
		return fn(ctx)
	}

	if err := c.adapter.SetAutocommit(ctx, false); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if rbErr := c.adapter.Rollback(ctx); rbErr != nil {
			return errors.Wrapf(err, "rolling back also failed: %v", rbErr)
		}
		return err
	}
	return c.adapter.SetAutocommit(ctx, true)
}

// Roles returns the role collection, building it on first use.
func (c *Cluster) Roles(ctx context.Context) (*objects.Roles, error) {
	if c.roles == nil {
		roles, err := objects.NewRoles(ctx, c, c.strategy)
		if err != nil {
			return nil, err
		}
		c.roles = roles
	}
	return c.roles, nil
}

// Databases returns the database collection, building it on first use.
func (c *Cluster) Databases(ctx context.Context) (*objects.Databases, error) {
	if c.databases == nil {
		databases, err := objects.NewDatabases(ctx, c, c.strategy)
		if err != nil {
			return nil, err
		}
		c.databases = databases
	}
	return c.databases, nil
}

// Tables returns the table collection for the current database.
func (c *Cluster) Tables(ctx context.Context) (*objects.Tables, error) {
	if c.tables == nil {
		tables, err := objects.NewTables(ctx, c, c.strategy)
		if err != nil {
			return nil, err
		}
		c.tables = tables
	}
	return c.tables, nil
}

// Views returns the view collection for the current database.
func (c *Cluster) Views(ctx context.Context) (*objects.Views, error) {
	if c.views == nil {
		views, err := objects.NewViews(ctx, c, c.strategy)
		if err != nil {
			return nil, err
		}
		c.views = views
	}
	return c.views, nil
}

// Sequences returns the sequence collection for the current database.
func (c *Cluster) Sequences(ctx context.Context) (*objects.Sequences, error) {
	if c.sequences == nil {
		sequences, err := objects.NewSequences(ctx, c, c.strategy)
		if err != nil {
			return nil, err
		}
		c.sequences = sequences
	}
	return c.sequences, nil
}

// Schemas returns the schema collection for the current database.
func (c *Cluster) Schemas(ctx context.Context) (*objects.Schemas, error) {
	if c.schemas == nil {
		schemas, err := objects.NewSchemas(ctx, c, c.strategy)
		if err != nil {
			return nil, err
		}
		c.schemas = schemas
	}
	return c.schemas, nil
}

// ReplicationSlots returns the replication slot collection.
func (c *Cluster) ReplicationSlots(ctx context.Context) (*objects.ReplicationSlots, error) {
	if c.slots == nil {
		slots, err := objects.NewReplicationSlots(ctx, c, c.strategy)
		if err != nil {
			return nil, err
		}
		c.slots = slots
	}
	return c.slots, nil
}

// Procedures returns the procedure and function collection.
func (c *Cluster) Procedures(ctx context.Context) (*objects.Procedures, error) {
	if c.procedures == nil {
		procedures, err := objects.NewProcedures(ctx, c, c.strategy)
		if err != nil {
			return nil, err
		}
		c.procedures = procedures
	}
	return c.procedures, nil
}

// HBARules returns the host-based authentication rules, loading the file on
// first use.
func (c *Cluster) HBARules(ctx context.Context) (*objects.HBARules, error) {
	if c.hba == nil {
		hba, err := objects.NewHBARules(ctx, c)
		if err != nil {
			return nil, err
		}
		c.hba = hba
	}
	return c.hba, nil
}

// Refresh drops every cached collection. The next accessor call rebuilds from
// the server.
func (c *Cluster) Refresh() {
	c.roles = nil
	c.databases = nil
	c.tables = nil
	c.views = nil
	c.sequences = nil
	c.schemas = nil
	c.slots = nil
	c.procedures = nil
	c.hba = nil
}

// Close releases the underlying connection.
func (c *Cluster) Close(ctx context.Context) error {
	return c.adapter.Close(ctx)
}
