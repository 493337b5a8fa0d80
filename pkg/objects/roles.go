package objects

import (
	"context"
	"time"

	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	"github.com/pseudomuto/pgkeeper/pkg/catalog"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
)

// Role represents a server login or group role.
type Role struct {
	object

	superuser       bool
	inherit         bool
	createRole      bool
	createDB        bool
	login           bool
	replication     bool
	bypassRLS       bool
	connectionLimit int64
	validUntil      *time.Time
	password        string // write-only, consumed by Create
}

// NewRole returns an ephemeral role with server defaults: INHERIT, all other
// flags off, no connection limit.
func NewRole(exec Executor, name string) *Role {
	return &Role{
		object:          newObject(exec, "ROLE", name, ""),
		inherit:         true,
		connectionLimit: -1,
	}
}

func (r *Role) Superuser() bool        { return r.superuser }
func (r *Role) Inherit() bool          { return r.inherit }
func (r *Role) CreateRole() bool       { return r.createRole }
func (r *Role) CreateDB() bool         { return r.createDB }
func (r *Role) Login() bool            { return r.login }
func (r *Role) Replication() bool      { return r.replication }
func (r *Role) BypassRLS() bool        { return r.bypassRLS }
func (r *Role) ConnectionLimit() int64 { return r.connectionLimit }
func (r *Role) ValidUntil() *time.Time { return r.validUntil }

// SetName queues a rename. Renames always apply last.
func (r *Role) SetName(name string) {
	if r.name == name {
		return
	}
	r.name = name
	if !r.ephemeral() {
		r.changes.set(PropertyName, func() sql.Composable {
			return sql.MustFormat("ALTER ROLE {role} RENAME TO {new}", sql.Args{
				"role": r.target(),
				"new":  sql.Ident(r.name),
			})
		})
	}
}

func (r *Role) SetSuperuser(on bool) {
	r.setFlag(&r.superuser, on, PropertySuperuser, "SUPERUSER")
}

func (r *Role) SetInherit(on bool) {
	r.setFlag(&r.inherit, on, PropertyInherit, "INHERIT")
}

func (r *Role) SetCreateRole(on bool) {
	r.setFlag(&r.createRole, on, PropertyCreateRole, "CREATEROLE")
}

func (r *Role) SetCreateDB(on bool) {
	r.setFlag(&r.createDB, on, PropertyCreateDB, "CREATEDB")
}

func (r *Role) SetLogin(on bool) {
	r.setFlag(&r.login, on, PropertyLogin, "LOGIN")
}

func (r *Role) SetReplication(on bool) {
	r.setFlag(&r.replication, on, PropertyReplication, "REPLICATION")
}

func (r *Role) SetBypassRLS(on bool) {
	r.setFlag(&r.bypassRLS, on, PropertyBypassRLS, "BYPASSRLS")
}

func (r *Role) setFlag(field *bool, on bool, prop Property, keyword string) {
	if *field == on {
		return
	}
	*field = on
	if !r.ephemeral() {
		r.changes.set(prop, func() sql.Composable {
			return sql.MustFormat("ALTER ROLE {role} WITH "+flagKeyword(keyword, *field), sql.Args{
				"role": r.target(),
			})
		})
	}
}

func (r *Role) SetConnectionLimit(limit int64) {
	if r.connectionLimit == limit {
		return
	}
	r.connectionLimit = limit
	if !r.ephemeral() {
		r.changes.set(PropertyConnectionLimit, func() sql.Composable {
			return sql.MustInlineFormat("ALTER ROLE {role} WITH CONNECTION LIMIT {limit}", sql.Args{
				"role":  r.target(),
				"limit": sql.Value(r.connectionLimit),
			})
		})
	}
}

func (r *Role) SetValidUntil(until *time.Time) {
	if equalTimes(r.validUntil, until) {
		return
	}
	r.validUntil = until
	if !r.ephemeral() {
		r.changes.set(PropertyValidUntil, func() sql.Composable {
			value := sql.Composable(sql.Raw("'infinity'"))
			if r.validUntil != nil {
				value = sql.Value(*r.validUntil)
			}
			return sql.MustInlineFormat("ALTER ROLE {role} WITH VALID UNTIL {until}", sql.Args{
				"role":  r.target(),
				"until": value,
			})
		})
	}
}

// SetPassword stores the password an ephemeral role will be created with. It
// never queues a change; use ChangePassword on an existing role.
func (r *Role) SetPassword(password string) { r.password = password }

// ChangePassword immediately changes the role's password on the server. The
// password never appears in any error text or log line.
func (r *Role) ChangePassword(ctx context.Context, password string) error {
	if err := r.ensureSynced("change password of"); err != nil {
		return err
	}
	// ALTER ROLE cannot carry bind parameters; the password is inlined with
	// deterministic quoting and stays out of every error and log line.
	stmt := sql.MustInlineFormat("ALTER ROLE {role} WITH PASSWORD {password}", sql.Args{
		"role":     r.target(),
		"password": sql.Value(password),
	})
	_, err := r.exec.Execute(ctx, stmt)
	return err
}

// PasswordMD5 reads the stored password hash from pg_authid.
func (r *Role) PasswordMD5(ctx context.Context) (string, error) {
	if err := r.ensureSynced("read password of"); err != nil {
		return "", err
	}
	rows, err := r.exec.Execute(ctx, sql.MustFormat(
		"SELECT rolpassword FROM pg_catalog.pg_authid WHERE oid = {oid}",
		sql.Args{"oid": sql.Value(r.oid)},
	))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", &NotFoundError{Kind: r.kind, Key: r.Key()}
	}
	if hash := rows[0].NullString(0); hash != nil {
		return *hash, nil
	}
	return "", nil
}

// Create creates the role on the server and records its OID.
func (r *Role) Create(ctx context.Context) error {
	if err := r.ensureEphemeral("create"); err != nil {
		return err
	}
	// CREATE ROLE is a utility statement, so the whole thing renders inline.
	text, err := sql.RenderInline(r.createStatement(roleCreatePassword{value: r.password}))
	if err != nil {
		return err
	}
	if _, err := r.exec.Execute(ctx, sql.Raw(text)); err != nil {
		return err
	}
	r.password = ""

	rows, err := r.exec.Execute(ctx, sql.MustFormat(
		"SELECT oid FROM pg_catalog.pg_roles WHERE rolname = {name}",
		sql.Args{"name": sql.Value(r.name)},
	))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &NotFoundError{Kind: r.kind, Key: r.Key()}
	}
	r.markSynced(rows[0].OID(0))
	return nil
}

// Alter applies queued changes.
func (r *Role) Alter(ctx context.Context) error { return r.alter(ctx) }

// Drop removes the role from the server.
func (r *Role) Drop(ctx context.Context) error { return r.drop(ctx, false) }

// DropIfExists issues DROP ROLE IF EXISTS, tolerating a role that was never
// created or already removed on the server.
func (r *Role) DropIfExists(ctx context.Context) error { return r.drop(ctx, true) }

func (r *Role) drop(ctx context.Context, ifExists bool) error {
	if err := r.ensureDroppable(ifExists); err != nil {
		return err
	}
	text := "DROP ROLE {role}"
	if ifExists {
		text = "DROP ROLE IF EXISTS {role}"
	}
	stmt := sql.MustFormat(text, sql.Args{"role": r.dropTarget()})
	if _, err := r.exec.Execute(ctx, stmt); err != nil {
		return err
	}
	r.markDropped()
	return nil
}

// Refresh discards queued changes and reloads every attribute from the
// server.
func (r *Role) Refresh(ctx context.Context) error {
	if err := r.ensureSynced("refresh"); err != nil {
		return err
	}
	row, err := fetchByOID(ctx, r.exec, catalog.Roles, r.kind, r.Key(), r.oid)
	if err != nil {
		return err
	}
	r.changes.clear()
	mapRole(r, row)
	return nil
}

// Script renders the CREATE ROLE statement reproducing this role, password
// hash included.
func (r *Role) Script(ctx context.Context) (string, error) {
	if err := r.ensureSynced("script"); err != nil {
		return "", err
	}
	hash, err := r.PasswordMD5(ctx)
	if err != nil {
		return "", err
	}
	return sql.RenderInline(r.createStatement(roleCreatePassword{value: hash, hashed: true}))
}

type roleCreatePassword struct {
	value  string
	hashed bool
}

func (r *Role) createStatement(password roleCreatePassword) sql.Composable {
	parts := []sql.Composable{
		sql.MustFormat("CREATE ROLE {role} WITH", sql.Args{"role": sql.Ident(r.name)}),
		sql.Raw(" " + flagKeyword("SUPERUSER", r.superuser)),
		sql.Raw(" " + flagKeyword("CREATEDB", r.createDB)),
		sql.Raw(" " + flagKeyword("CREATEROLE", r.createRole)),
		sql.Raw(" " + flagKeyword("INHERIT", r.inherit)),
		sql.Raw(" " + flagKeyword("LOGIN", r.login)),
		sql.Raw(" " + flagKeyword("REPLICATION", r.replication)),
		sql.Raw(" " + flagKeyword("BYPASSRLS", r.bypassRLS)),
		sql.MustFormat(" CONNECTION LIMIT {limit}", sql.Args{"limit": sql.Value(r.connectionLimit)}),
	}
	if r.validUntil != nil {
		parts = append(parts, sql.MustFormat(" VALID UNTIL {until}", sql.Args{"until": sql.Value(*r.validUntil)}))
	}
	if password.value != "" {
		keyword := " PASSWORD {password}"
		if password.hashed {
			keyword = " ENCRYPTED PASSWORD {password}"
		}
		parts = append(parts, sql.MustFormat(keyword, sql.Args{"password": sql.Value(password.value)}))
	}
	return sql.Concat(parts...)
}

func flagKeyword(keyword string, on bool) string {
	if on {
		return keyword
	}
	return "NO" + keyword
}

func equalTimes(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// mapRole populates a role from a catalog row (column order per the roles
// catalog query).
func mapRole(r *Role, row adapter.Row) {
	r.name = row.String(0)
	r.superuser = row.Bool(1)
	r.inherit = row.Bool(2)
	r.createRole = row.Bool(3)
	r.createDB = row.Bool(4)
	r.login = row.Bool(5)
	r.replication = row.Bool(6)
	r.connectionLimit = row.Int(7)
	r.validUntil = row.Time(8)
	r.bypassRLS = row.Bool(9)
	r.markSynced(row.OID(10))
}

// Roles is the role collection, keyed by role name.
type Roles struct {
	*Collection[*Role]
}

// NewRoles builds the role collection with the given load strategy.
func NewRoles(ctx context.Context, exec Executor, strategy LoadStrategy) (*Roles, error) {
	c, err := newCollection(ctx, exec, strategy, kindSpec[*Role]{
		kind:  "ROLE",
		query: catalog.Roles,
		keyOf: func(row adapter.Row) string { return row.String(0) },
		build: func(exec Executor, rows []adapter.Row) (*Role, error) {
			r := NewRole(exec, rows[0].String(0))
			mapRole(r, rows[0])
			return r, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &Roles{Collection: c}, nil
}

// New returns an ephemeral role attached to this collection's executor.
func (r *Roles) New(name string) *Role { return NewRole(r.exec, name) }

// Add creates the role on the server and registers it in the collection.
func (r *Roles) Add(ctx context.Context, role *Role) error {
	return r.add(ctx, role.Key(), role, role.Create)
}
