package objects

import (
	"context"

	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	"github.com/pseudomuto/pgkeeper/pkg/catalog"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
)

// Table represents a regular table.
type Table struct {
	object

	owner       string
	tablespace  string
	rowSecurity bool
}

// NewTable returns an ephemeral table definition in the given schema. An empty
// schema means public.
func NewTable(exec Executor, name, schema string) *Table {
	if schema == "" {
		schema = "public"
	}
	return &Table{object: newObject(exec, "TABLE", name, schema)}
}

func (t *Table) Schema() string { return t.schema }
func (t *Table) Owner() string { return t.owner }
func (t *Table) Tablespace() string { return t.tablespace }
func (t *Table) RowSecurity() bool { return t.rowSecurity }

// SetName queues a rename. Renames always apply last.
func (t *Table) SetName(name string) {
	if t.name == name {
		return
	}
	t.name = name
	if !t.ephemeral() {
		t.changes.set(PropertyName, func() sql.Composable {
			return sql.MustFormat("ALTER TABLE {table} RENAME TO {new}", sql.Args{
				"table": t.target(),
				"new":   sql.Ident(t.name),
			})
		})
	}
}

// SetOwner queues an owner change.
func (t *Table) SetOwner(owner string) {
	if t.owner == owner {
		return
	}
	t.owner = owner
	if !t.ephemeral() {
		t.changes.set(PropertyOwner, func() sql.Composable {
			return sql.MustFormat("ALTER TABLE {table} OWNER TO {new}", sql.Args{
				"table": t.target(),
				"new":   sql.Ident(t.owner),
			})
		})
	}
}

// SetSchema queues a move to another schema. The collection key changes once
// the move applies; re-resolve the table through the collection afterwards.
func (t *Table) SetSchema(schema string) {
	if t.schema == schema {
		return
	}
	t.schema = schema
	if !t.ephemeral() {
		t.changes.set(PropertySchema, func() sql.Composable {
			return sql.MustFormat("ALTER TABLE {table} SET SCHEMA {new}", sql.Args{
				"table": t.target(),
				"new":   sql.Ident(t.schema),
			})
		})
	}
}

// SetTablespace queues a move to another tablespace.
func (t *Table) SetTablespace(tablespace string) {
	if t.tablespace == tablespace {
		return
	}
	t.tablespace = tablespace
	if !t.ephemeral() {
		t.changes.set(PropertyTablespace, func() sql.Composable {
			return sql.MustFormat("ALTER TABLE {table} SET TABLESPACE {new}", sql.Args{
				"table": t.target(),
				"new":   sql.Ident(t.tablespace),
			})
		})
	}
}

// SetRowSecurity queues enabling or disabling row level security.
func (t *Table) SetRowSecurity(on bool) {
	if t.rowSecurity == on {
		return
	}
	t.rowSecurity = on
	if !t.ephemeral() {
		t.changes.set(PropertyRowSecurity, func() sql.Composable {
			verb := sql.Raw("DISABLE")
			if t.rowSecurity {
				verb = sql.Raw("ENABLE")
			}
			return sql.MustFormat("ALTER TABLE {table} {verb} ROW LEVEL SECURITY", sql.Args{
				"table": t.target(),
				"verb":  verb,
			})
		})
	}
}

// Create creates an empty table and records its OID. Column definitions are
// out of scope here; use migrations for real DDL.
func (t *Table) Create(ctx context.Context) error {
	if err := t.ensureEphemeral("create"); err != nil {
		return err
	}
	stmt := sql.MustFormat("CREATE TABLE {table} ()", sql.Args{"table": t.fqn()})
	if _, err := t.exec.Execute(ctx, stmt); err != nil {
		return err
	}

	rows, err := t.exec.Execute(ctx, sql.MustFormat(
		"SELECT c.oid FROM pg_catalog.pg_class c"+
			" JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace"+
			" WHERE c.relname = {name} AND n.nspname = {schema}",
		sql.Args{"name": sql.Value(t.name), "schema": sql.Value(t.schema)},
	))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &NotFoundError{Kind: t.kind, Key: t.Key()}
	}
	t.markSynced(rows[0].OID(0))
	return nil
}

// Alter applies queued changes.
func (t *Table) Alter(ctx context.Context) error { return t.alter(ctx) }

// Drop removes the table. With cascade, dependent objects go with it.
func (t *Table) Drop(ctx context.Context, cascade bool) error { return t.drop(ctx, cascade, false) }

// DropIfExists issues DROP TABLE IF EXISTS, tolerating a table that was never
// created or already removed on the server.
func (t *Table) DropIfExists(ctx context.Context, cascade bool) error {
	return t.drop(ctx, cascade, true)
}

func (t *Table) drop(ctx context.Context, cascade, ifExists bool) error {
	if err := t.ensureDroppable(ifExists); err != nil {
		return err
	}
	text := "DROP TABLE {table}"
	if ifExists {
		text = "DROP TABLE IF EXISTS {table}"
	}
	stmt := sql.MustFormat(text, sql.Args{"table": t.dropTarget()})
	if cascade {
		stmt = sql.Concat(stmt, sql.Raw(" CASCADE"))
	}
	if _, err := t.exec.Execute(ctx, stmt); err != nil {
		return err
	}
	t.markDropped()
	return nil
}

// Refresh discards queued changes and reloads the table's attributes.
func (t *Table) Refresh(ctx context.Context) error {
	if err := t.ensureSynced("refresh"); err != nil {
		return err
	}
	row, err := fetchByOID(ctx, t.exec, catalog.Tables, t.kind, t.Key(), t.oid)
	if err != nil {
		return err
	}
	t.changes.clear()
	mapTable(t, row)
	return nil
}

// mapTable populates a table from a catalog row.
func mapTable(t *Table, row adapter.Row) {
	t.name = row.String(0)
	t.owner = row.String(1)
	t.schema = row.String(2)
	t.tablespace = row.String(3)
	t.rowSecurity = row.Bool(4)
	t.markSynced(row.OID(5))
}

// Tables is the table collection, keyed by name ("schema.name" outside
// public).
type Tables struct {
	*Collection[*Table]
}

// NewTables builds the table collection with the given load strategy.
func NewTables(ctx context.Context, exec Executor, strategy LoadStrategy) (*Tables, error) {
	c, err := newCollection(ctx, exec, strategy, kindSpec[*Table]{
		kind:  "TABLE",
		query: catalog.Tables,
		keyOf: func(row adapter.Row) string { return ObjectKey(row.String(2), row.String(0)) },
		build: func(exec Executor, rows []adapter.Row) (*Table, error) {
			t := NewTable(exec, rows[0].String(0), rows[0].String(2))
			mapTable(t, rows[0])
			return t, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &Tables{Collection: c}, nil
}

// New returns an ephemeral table attached to this collection's executor.
func (t *Tables) New(name, schema string) *Table {
	return NewTable(t.exec, name, schema)
}

// Add creates the table on the server and registers it in the collection.
func (t *Tables) Add(ctx context.Context, table *Table) error {
	return t.add(ctx, table.Key(), table, table.Create)
}
