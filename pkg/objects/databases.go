package objects

import (
	"context"

	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	"github.com/pseudomuto/pgkeeper/pkg/catalog"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
)

type (
	// Database represents a database within the cluster.
	Database struct {
		object

		owner            string
		encoding         string
		collation        string
		characterType    string
		isTemplate       bool
		allowConnections bool
		connectionLimit  int64
		frozenXID        string
		minMultixactID   string
		tablespace       string
		acl              string
		template         string // create-time only
	}

	// DatabaseOptions holds the create-time attributes of a new database.
	// Attributes the server cannot alter afterwards (encoding, collation,
	// template) only live here.
	DatabaseOptions struct {
		Owner         string
		Template      string
		Encoding      string
		Collation     string
		CharacterType string
		IsTemplate    bool
	}
)

// NewDatabase returns an ephemeral database definition.
func NewDatabase(exec Executor, name string, opts DatabaseOptions) *Database {
	return &Database{
		object:           newObject(exec, "DATABASE", name, ""),
		owner:            opts.Owner,
		encoding:         opts.Encoding,
		collation:        opts.Collation,
		characterType:    opts.CharacterType,
		isTemplate:       opts.IsTemplate,
		template:         opts.Template,
		allowConnections: true,
		connectionLimit:  -1,
	}
}

func (d *Database) Owner() string { return d.owner }
func (d *Database) Encoding() string { return d.encoding }
func (d *Database) Collation() string { return d.collation }
func (d *Database) CharacterType() string { return d.characterType }
func (d *Database) IsTemplate() bool { return d.isTemplate }
func (d *Database) AllowConnections() bool { return d.allowConnections }
func (d *Database) ConnectionLimit() int64 { return d.connectionLimit }
func (d *Database) FrozenXID() string { return d.frozenXID }
func (d *Database) MinMultixactID() string { return d.minMultixactID }
func (d *Database) Tablespace() string { return d.tablespace }
func (d *Database) ACL() string { return d.acl }

// SetName queues a rename. Renames always apply last.
func (d *Database) SetName(name string) {
	if d.name == name {
		return
	}
	d.name = name
	if !d.ephemeral() {
		d.changes.set(PropertyName, func() sql.Composable {
			return sql.MustFormat("ALTER DATABASE {db} RENAME TO {new}", sql.Args{
				"db":  d.target(),
				"new": sql.Ident(d.name),
			})
		})
	}
}

// SetOwner queues an owner change.
func (d *Database) SetOwner(owner string) {
	if d.owner == owner {
		return
	}
	d.owner = owner
	if !d.ephemeral() {
		d.changes.set(PropertyOwner, func() sql.Composable {
			return sql.MustFormat("ALTER DATABASE {db} OWNER TO {new}", sql.Args{
				"db":  d.target(),
				"new": sql.Ident(d.owner),
			})
		})
	}
}

// SetTablespace queues a move to another tablespace.
func (d *Database) SetTablespace(tablespace string) {
	if d.tablespace == tablespace {
		return
	}
	d.tablespace = tablespace
	if !d.ephemeral() {
		d.changes.set(PropertyTablespace, func() sql.Composable {
			return sql.MustFormat("ALTER DATABASE {db} SET TABLESPACE {new}", sql.Args{
				"db":  d.target(),
				"new": sql.Ident(d.tablespace),
			})
		})
	}
}

// SetIsTemplate queues an IS_TEMPLATE change.
func (d *Database) SetIsTemplate(on bool) {
	if d.isTemplate == on {
		return
	}
	d.isTemplate = on
	if !d.ephemeral() {
		d.changes.set(PropertyIsTemplate, func() sql.Composable {
			return sql.MustInlineFormat("ALTER DATABASE {db} WITH IS_TEMPLATE {value}", sql.Args{
				"db":    d.target(),
				"value": sql.Value(d.isTemplate),
			})
		})
	}
}

// SetAllowConnections queues an ALLOW_CONNECTIONS change.
func (d *Database) SetAllowConnections(on bool) {
	if d.allowConnections == on {
		return
	}
	d.allowConnections = on
	if !d.ephemeral() {
		d.changes.set(PropertyAllowConnections, func() sql.Composable {
			return sql.MustInlineFormat("ALTER DATABASE {db} WITH ALLOW_CONNECTIONS {value}", sql.Args{
				"db":    d.target(),
				"value": sql.Value(d.allowConnections),
			})
		})
	}
}

// SetConnectionLimit queues a connection limit change.
func (d *Database) SetConnectionLimit(limit int64) {
	if d.connectionLimit == limit {
		return
	}
	d.connectionLimit = limit
	if !d.ephemeral() {
		d.changes.set(PropertyConnectionLimit, func() sql.Composable {
			return sql.MustInlineFormat("ALTER DATABASE {db} WITH CONNECTION LIMIT {limit}", sql.Args{
				"db":    d.target(),
				"limit": sql.Value(d.connectionLimit),
			})
		})
	}
}

// Disable immediately forbids new connections to the database by flipping
// datallowconn. Unlike SetAllowConnections this works on template databases.
func (d *Database) Disable(ctx context.Context) error {
	if err := d.ensureSynced("disable"); err != nil {
		return err
	}
	stmt := sql.MustFormat("UPDATE pg_catalog.pg_database SET datallowconn = false WHERE datname = {name}", sql.Args{
		"name": sql.Value(d.remoteName),
	})
	if _, err := d.exec.Execute(ctx, stmt); err != nil {
		return err
	}
	d.allowConnections = false
	return nil
}

// Create creates the database and records its OID.
func (d *Database) Create(ctx context.Context) error {
	if err := d.ensureEphemeral("create"); err != nil {
		return err
	}
	text, err := sql.RenderInline(d.createStatement())
	if err != nil {
		return err
	}
	if _, err := d.exec.Execute(ctx, sql.Raw(text)); err != nil {
		return err
	}

	rows, err := d.exec.Execute(ctx, sql.MustFormat(
		"SELECT oid FROM pg_catalog.pg_database WHERE datname = {name}",
		sql.Args{"name": sql.Value(d.name)},
	))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &NotFoundError{Kind: d.kind, Key: d.Key()}
	}
	d.markSynced(rows[0].OID(0))
	return nil
}

// Alter applies queued changes.
func (d *Database) Alter(ctx context.Context) error { return d.alter(ctx) }

// Drop removes the database. The server refuses while sessions are connected;
// terminate them first.
func (d *Database) Drop(ctx context.Context) error { return d.drop(ctx, false) }

// DropIfExists issues DROP DATABASE IF EXISTS, tolerating a database that was
// never created or already removed on the server.
func (d *Database) DropIfExists(ctx context.Context) error { return d.drop(ctx, true) }

func (d *Database) drop(ctx context.Context, ifExists bool) error {
	if err := d.ensureDroppable(ifExists); err != nil {
		return err
	}
	text := "DROP DATABASE {db}"
	if ifExists {
		text = "DROP DATABASE IF EXISTS {db}"
	}
	stmt := sql.MustFormat(text, sql.Args{"db": d.dropTarget()})
	if _, err := d.exec.Execute(ctx, stmt); err != nil {
		return err
	}
	d.markDropped()
	return nil
}

// Refresh discards queued changes and reloads every attribute from the
// server.
func (d *Database) Refresh(ctx context.Context) error {
	if err := d.ensureSynced("refresh"); err != nil {
		return err
	}
	row, err := fetchByOID(ctx, d.exec, catalog.Databases, d.kind, d.Key(), d.oid)
	if err != nil {
		return err
	}
	d.changes.clear()
	mapDatabase(d, row)
	return nil
}

// Script renders the CREATE DATABASE statement reproducing this database.
func (d *Database) Script() (string, error) {
	return sql.RenderInline(d.createStatement())
}

func (d *Database) createStatement() sql.Composable {
	parts := []sql.Composable{
		sql.MustFormat("CREATE DATABASE {db}", sql.Args{"db": sql.Ident(d.name)}),
	}
	if d.owner != "" {
		parts = append(parts, sql.MustFormat(" OWNER {owner}", sql.Args{"owner": sql.Ident(d.owner)}))
	}
	if d.template != "" {
		parts = append(parts, sql.MustFormat(" TEMPLATE {template}", sql.Args{"template": sql.Ident(d.template)}))
	}
	if d.encoding != "" {
		parts = append(parts, sql.MustFormat(" ENCODING {encoding}", sql.Args{"encoding": sql.Value(d.encoding)}))
	}
	if d.collation != "" {
		parts = append(parts, sql.MustFormat(" LC_COLLATE {collation}", sql.Args{"collation": sql.Value(d.collation)}))
	}
	if d.characterType != "" {
		parts = append(parts, sql.MustFormat(" LC_CTYPE {ctype}", sql.Args{"ctype": sql.Value(d.characterType)}))
	}
	if d.tablespace != "" {
		parts = append(parts, sql.MustFormat(" TABLESPACE {tablespace}", sql.Args{"tablespace": sql.Ident(d.tablespace)}))
	}
	if d.isTemplate {
		parts = append(parts, sql.Raw(" IS_TEMPLATE true"))
	}
	if d.connectionLimit != -1 {
		parts = append(parts, sql.MustFormat(" CONNECTION LIMIT {limit}", sql.Args{"limit": sql.Value(d.connectionLimit)}))
	}
	return sql.Concat(parts...)
}

// mapDatabase populates a database from a catalog row (column order per the
// databases catalog query).
func mapDatabase(d *Database, row adapter.Row) {
	d.name = row.String(0)
	d.owner = row.String(1)
	d.encoding = row.String(2)
	d.collation = row.String(3)
	d.characterType = row.String(4)
	d.isTemplate = row.Bool(5)
	d.allowConnections = row.Bool(6)
	d.connectionLimit = row.Int(7)
	d.frozenXID = row.String(8)
	d.minMultixactID = row.String(9)
	d.tablespace = row.String(10)
	d.acl = row.String(11)
	d.markSynced(row.OID(12))
}

// Databases is the database collection, keyed by database name.
type Databases struct {
	*Collection[*Database]
}

// NewDatabases builds the database collection with the given load strategy.
func NewDatabases(ctx context.Context, exec Executor, strategy LoadStrategy) (*Databases, error) {
	c, err := newCollection(ctx, exec, strategy, kindSpec[*Database]{
		kind:  "DATABASE",
		query: catalog.Databases,
		keyOf: func(row adapter.Row) string { return row.String(0) },
		build: func(exec Executor, rows []adapter.Row) (*Database, error) {
			d := NewDatabase(exec, rows[0].String(0), DatabaseOptions{})
			mapDatabase(d, rows[0])
			return d, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &Databases{Collection: c}, nil
}

// New returns an ephemeral database attached to this collection's executor.
func (d *Databases) New(name string, opts DatabaseOptions) *Database {
	return NewDatabase(d.exec, name, opts)
}

// Add creates the database on the server and registers it in the collection.
func (d *Databases) Add(ctx context.Context, db *Database) error {
	return d.add(ctx, db.Key(), db, db.Create)
}
