// Package stdsql implements the adapter port over database/sql, so any
// registered driver that understands $n placeholders (lib/pq among them) can
// back a cluster.
package stdsql

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/adapter"
)

// Adapter wraps a *sql.DB but pins a single connection out of the pool and
// routes every statement through it. Session state (SET ROLE, temp tables,
// sequence currval) lives on the server connection, so letting the pool
// rotate between statements would silently discard it. Autocommit mode is
// emulated with an explicit transaction, mirroring the pgx adapter.
type Adapter struct {
	db     *sql.DB
	conn   *sql.Conn
	tx     *sql.Tx
	shared bool
}

var (
	_ adapter.Adapter = (*Adapter)(nil)
	_ adapter.Cloner  = (*Adapter)(nil)
)

// Open opens a database handle for the named driver, pins a connection, and
// verifies it with a ping.
//
// Example:
//
//	import _ "github.com/lib/pq"
//
//	a, err := stdsql.Open(ctx, "postgres", dsn)
func Open(ctx context.Context, driver, dsn string) (*Adapter, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, adapter.WrapError("open database handle", err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, adapter.WrapError("connect to server", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, adapter.WrapError("connect to server", err)
	}
	return &Adapter{db: db, conn: conn}, nil
}

// New wraps an existing database handle. The session connection is pinned on
// first use.
func New(db *sql.DB) *Adapter { return &Adapter{db: db} }

// session returns the pinned connection, acquiring one from the pool if the
// adapter doesn't hold one yet.
func (a *Adapter) session(ctx context.Context) (*sql.Conn, error) {
	if a.db == nil {
		return nil, errors.New("database handle is closed")
	}
	if a.conn == nil {
		conn, err := a.db.Conn(ctx)
		if err != nil {
			return nil, err
		}
		a.conn = conn
	}
	return a.conn, nil
}

// Cursor implements adapter.Adapter.
func (a *Adapter) Cursor() (adapter.Cursor, error) {
	if a.db == nil {
		return nil, adapter.WrapError("open cursor", errors.New("database handle is closed"))
	}
	return &cursor{adapter: a}, nil
}

// IsConnected implements adapter.Adapter.
func (a *Adapter) IsConnected() bool {
	if a.conn != nil {
		return a.conn.PingContext(context.Background()) == nil
	}
	return a.db != nil && a.db.Ping() == nil
}

// SetAutocommit implements adapter.Adapter.
func (a *Adapter) SetAutocommit(ctx context.Context, on bool) error {
	switch {
	case on && a.tx != nil:
		tx := a.tx
		a.tx = nil
		if err := tx.Commit(); err != nil {
			return adapter.WrapError("commit transaction", err)
		}
	case !on && a.tx == nil:
		conn, err := a.session(ctx)
		if err != nil {
			return adapter.WrapError("begin transaction", err)
		}
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return adapter.WrapError("begin transaction", err)
		}
		a.tx = tx
	}
	return nil
}

// Autocommit implements adapter.Adapter.
func (a *Adapter) Autocommit() bool { return a.tx == nil }

// Rollback implements adapter.Adapter.
func (a *Adapter) Rollback(context.Context) error {
	if a.tx == nil {
		return nil
	}
	tx := a.tx
	a.tx = nil
	if err := tx.Rollback(); err != nil {
		return adapter.WrapError("roll back transaction", err)
	}
	return nil
}

// Clone implements adapter.Cloner. The clone shares the pool but pins its own
// connection, so it holds independent session state.
func (a *Adapter) Clone(ctx context.Context) (adapter.Adapter, error) {
	if a.db == nil {
		return nil, adapter.WrapError("clone connection", errors.New("database handle is closed"))
	}
	conn, err := a.db.Conn(ctx)
	if err != nil {
		return nil, adapter.WrapError("clone connection", err)
	}
	return &Adapter{db: a.db, conn: conn, shared: true}, nil
}

// Close implements adapter.Adapter. The pinned connection is always released;
// closing a clone leaves the shared pool open.
func (a *Adapter) Close(context.Context) error {
	if a.db == nil {
		return nil
	}
	db, conn := a.db, a.conn
	a.db, a.conn, a.tx = nil, nil, nil
	if conn != nil {
		_ = conn.Close()
	}
	if a.shared {
		return nil
	}
	if err := db.Close(); err != nil {
		return adapter.WrapError("close connection", err)
	}
	return nil
}

func (a *Adapter) query(ctx context.Context, query string, args []any) (*sql.Rows, error) {
	if a.tx != nil {
		return a.tx.QueryContext(ctx, query, args...)
	}
	conn, err := a.session(ctx)
	if err != nil {
		return nil, err
	}
	return conn.QueryContext(ctx, query, args...)
}

type cursor struct {
	adapter *Adapter
	rows    []adapter.Row
	hasRows bool
}

// Execute implements adapter.Cursor.
func (c *cursor) Execute(ctx context.Context, query string, args []any) error {
	c.rows, c.hasRows = nil, false

	rows, err := c.adapter.query(ctx, query, args)
	if err != nil {
		return adapter.WrapError("execute statement", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return adapter.WrapError("describe result set", err)
	}

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return adapter.WrapError("read result row", err)
		}
		c.rows = append(c.rows, adapter.Row(values))
		c.hasRows = true
	}
	if err := rows.Err(); err != nil {
		return adapter.WrapError("execute statement", err)
	}
	c.hasRows = c.hasRows || len(columns) > 0
	return nil
}

// Fetch implements adapter.Cursor.
func (c *cursor) Fetch() ([]adapter.Row, error) {
	if !c.hasRows {
		return nil, nil
	}
	return c.rows, nil
}

// Close implements adapter.Cursor.
func (c *cursor) Close() error {
	c.rows, c.hasRows = nil, false
	return nil
}
