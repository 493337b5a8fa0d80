package objects

import (
	"context"

	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	"github.com/pseudomuto/pgkeeper/pkg/catalog"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
)

// View represents a view.
type View struct {
	object

	owner string
}

// NewView returns an ephemeral view definition in the given schema. An empty
// schema means public.
func NewView(exec Executor, name, schema string) *View {
	if schema == "" {
		schema = "public"
	}
	return &View{object: newObject(exec, "VIEW", name, schema)}
}

func (v *View) Schema() string { return v.schema }
func (v *View) Owner() string  { return v.owner }

// SetName queues a rename. Renames always apply last.
func (v *View) SetName(name string) {
	if v.name == name {
		return
	}
	v.name = name
	if !v.ephemeral() {
		v.changes.set(PropertyName, func() sql.Composable {
			return sql.MustFormat("ALTER VIEW {view} RENAME TO {new}", sql.Args{
				"view": v.target(),
				"new":  sql.Ident(v.name),
			})
		})
	}
}

// SetOwner queues an owner change.
func (v *View) SetOwner(owner string) {
	if v.owner == owner {
		return
	}
	v.owner = owner
	if !v.ephemeral() {
		v.changes.set(PropertyOwner, func() sql.Composable {
			return sql.MustFormat("ALTER VIEW {view} OWNER TO {new}", sql.Args{
				"view": v.target(),
				"new":  sql.Ident(v.owner),
			})
		})
	}
}

// SetSchema queues a move to another schema.
func (v *View) SetSchema(schema string) {
	if v.schema == schema {
		return
	}
	v.schema = schema
	if !v.ephemeral() {
		v.changes.set(PropertySchema, func() sql.Composable {
			return sql.MustFormat("ALTER VIEW {view} SET SCHEMA {new}", sql.Args{
				"view": v.target(),
				"new":  sql.Ident(v.schema),
			})
		})
	}
}

// Alter applies queued changes.
func (v *View) Alter(ctx context.Context) error { return v.alter(ctx) }

// Drop removes the view. With cascade, dependent objects go with it.
func (v *View) Drop(ctx context.Context, cascade bool) error { return v.drop(ctx, cascade, false) }

// DropIfExists issues DROP VIEW IF EXISTS, tolerating a view that was never
// created or already removed on the server.
func (v *View) DropIfExists(ctx context.Context, cascade bool) error {
	return v.drop(ctx, cascade, true)
}

func (v *View) drop(ctx context.Context, cascade, ifExists bool) error {
	if err := v.ensureDroppable(ifExists); err != nil {
		return err
	}
	text := "DROP VIEW {view}"
	if ifExists {
		text = "DROP VIEW IF EXISTS {view}"
	}
	stmt := sql.MustFormat(text, sql.Args{"view": v.dropTarget()})
	if cascade {
		stmt = sql.Concat(stmt, sql.Raw(" CASCADE"))
	}
	if _, err := v.exec.Execute(ctx, stmt); err != nil {
		return err
	}
	v.markDropped()
	return nil
}

// Refresh discards queued changes and reloads the view's attributes.
func (v *View) Refresh(ctx context.Context) error {
	if err := v.ensureSynced("refresh"); err != nil {
		return err
	}
	row, err := fetchByOID(ctx, v.exec, catalog.Views, v.kind, v.Key(), v.oid)
	if err != nil {
		return err
	}
	v.changes.clear()
	mapView(v, row)
	return nil
}

func mapView(v *View, row adapter.Row) {
	v.name = row.String(0)
	v.owner = row.String(1)
	v.schema = row.String(2)
	v.markSynced(row.OID(3))
}

// Views is the view collection, keyed by name ("schema.name" outside public).
type Views struct {
	*Collection[*View]
}

// NewViews builds the view collection with the given load strategy.
func NewViews(ctx context.Context, exec Executor, strategy LoadStrategy) (*Views, error) {
	c, err := newCollection(ctx, exec, strategy, kindSpec[*View]{
		kind:  "VIEW",
		query: catalog.Views,
		keyOf: func(row adapter.Row) string { return ObjectKey(row.String(2), row.String(0)) },
		build: func(exec Executor, rows []adapter.Row) (*View, error) {
			v := NewView(exec, rows[0].String(0), rows[0].String(2))
			mapView(v, rows[0])
			return v, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &Views{Collection: c}, nil
}
