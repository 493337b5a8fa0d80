package objects

import (
	"context"

	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	"github.com/pseudomuto/pgkeeper/pkg/catalog"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
)

// Schema represents a namespace within the current database.
type Schema struct {
	object

	owner string
}

// NewSchema returns an ephemeral schema definition.
func NewSchema(exec Executor, name string) *Schema {
	return &Schema{object: newObject(exec, "SCHEMA", name, "")}
}

func (s *Schema) Owner() string { return s.owner }

// SetName queues a rename. Renames always apply last.
func (s *Schema) SetName(name string) {
	if s.name == name {
		return
	}
	s.name = name
	if !s.ephemeral() {
		s.changes.set(PropertyName, func() sql.Composable {
			return sql.MustFormat("ALTER SCHEMA {schema} RENAME TO {new}", sql.Args{
				"schema": s.target(),
				"new":    sql.Ident(s.name),
			})
		})
	}
}

// SetOwner queues an owner change.
func (s *Schema) SetOwner(owner string) {
	if s.owner == owner {
		return
	}
	s.owner = owner
	if !s.ephemeral() {
		s.changes.set(PropertyOwner, func() sql.Composable {
			return sql.MustFormat("ALTER SCHEMA {schema} OWNER TO {new}", sql.Args{
				"schema": s.target(),
				"new":    sql.Ident(s.owner),
			})
		})
	}
}

// Create creates the schema and records its OID.
func (s *Schema) Create(ctx context.Context) error {
	if err := s.ensureEphemeral("create"); err != nil {
		return err
	}
	stmt := sql.MustFormat("CREATE SCHEMA {schema}", sql.Args{"schema": sql.Ident(s.name)})
	if s.owner != "" {
		stmt = sql.Concat(stmt, sql.MustFormat(" AUTHORIZATION {owner}", sql.Args{"owner": sql.Ident(s.owner)}))
	}
	if _, err := s.exec.Execute(ctx, stmt); err != nil {
		return err
	}

	rows, err := s.exec.Execute(ctx, sql.MustFormat(
		"SELECT oid FROM pg_catalog.pg_namespace WHERE nspname = {name}",
		sql.Args{"name": sql.Value(s.name)},
	))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &NotFoundError{Kind: s.kind, Key: s.Key()}
	}
	s.markSynced(rows[0].OID(0))
	return nil
}

// Alter applies queued changes.
func (s *Schema) Alter(ctx context.Context) error { return s.alter(ctx) }

// Drop removes the schema. With cascade, every contained object goes with it.
func (s *Schema) Drop(ctx context.Context, cascade bool) error { return s.drop(ctx, cascade, false) }

// DropIfExists issues DROP SCHEMA IF EXISTS, tolerating a schema that was
// never created or already removed on the server.
func (s *Schema) DropIfExists(ctx context.Context, cascade bool) error {
	return s.drop(ctx, cascade, true)
}

func (s *Schema) drop(ctx context.Context, cascade, ifExists bool) error {
	if err := s.ensureDroppable(ifExists); err != nil {
		return err
	}
	text := "DROP SCHEMA {schema}"
	if ifExists {
		text = "DROP SCHEMA IF EXISTS {schema}"
	}
	stmt := sql.MustFormat(text, sql.Args{"schema": s.dropTarget()})
	if cascade {
		stmt = sql.Concat(stmt, sql.Raw(" CASCADE"))
	}
	if _, err := s.exec.Execute(ctx, stmt); err != nil {
		return err
	}
	s.markDropped()
	return nil
}

// Refresh discards queued changes and reloads the schema's attributes.
func (s *Schema) Refresh(ctx context.Context) error {
	if err := s.ensureSynced("refresh"); err != nil {
		return err
	}
	row, err := fetchByOID(ctx, s.exec, catalog.Schemas, s.kind, s.Key(), s.oid)
	if err != nil {
		return err
	}
	s.changes.clear()
	mapSchema(s, row)
	return nil
}

func mapSchema(s *Schema, row adapter.Row) {
	s.name = row.String(0)
	s.owner = row.String(1)
	s.markSynced(row.OID(2))
}

// Schemas is the schema collection, keyed by schema name.
type Schemas struct {
	*Collection[*Schema]
}

// NewSchemas builds the schema collection with the given load strategy.
func NewSchemas(ctx context.Context, exec Executor, strategy LoadStrategy) (*Schemas, error) {
	c, err := newCollection(ctx, exec, strategy, kindSpec[*Schema]{
		kind:  "SCHEMA",
		query: catalog.Schemas,
		keyOf: func(row adapter.Row) string { return row.String(0) },
		build: func(exec Executor, rows []adapter.Row) (*Schema, error) {
			s := NewSchema(exec, rows[0].String(0))
			mapSchema(s, rows[0])
			return s, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &Schemas{Collection: c}, nil
}

// New returns an ephemeral schema attached to this collection's executor.
func (s *Schemas) New(name string) *Schema {
	return NewSchema(s.exec, name)
}

// Add creates the schema on the server and registers it in the collection.
func (s *Schemas) Add(ctx context.Context, schema *Schema) error {
	return s.add(ctx, schema.Key(), schema, schema.Create)
}
