// Package pgx implements the adapter port on top of a single jackc/pgx
// connection. This is the production adapter used by the pgkeeper CLI.
package pgx

import (
	"context"

	pgxlib "github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/adapter"
)

// Adapter owns one pgx connection. Autocommit mode is emulated with an
// explicit transaction: switching autocommit off opens one, switching it back
// on commits it.
type Adapter struct {
	conn   *pgxlib.Conn
	config *pgxlib.ConnConfig
	tx     pgxlib.Tx
}

var (
	_ adapter.Adapter = (*Adapter)(nil)
	_ adapter.Cloner  = (*Adapter)(nil)
)

// Connect dials dsn (URL or keyword/value form) and returns a connected
// adapter.
//
// Example:
//
//	a, err := pgx.Connect(ctx, "postgres://app@localhost:5432/postgres")
//	if err != nil {
//		return err
//	}
//	defer a.Close(ctx)
func Connect(ctx context.Context, dsn string) (*Adapter, error) {
	config, err := pgxlib.ParseConfig(dsn)
	if err != nil {
		return nil, adapter.WrapError("parse connection parameters", err)
	}
	return ConnectConfig(ctx, config)
}

// ConnectConfig dials with a prepared pgx configuration.
func ConnectConfig(ctx context.Context, config *pgxlib.ConnConfig) (*Adapter, error) {
	conn, err := pgxlib.ConnectConfig(ctx, config)
	if err != nil {
		return nil, adapter.WrapError("connect to server", err)
	}
	return &Adapter{conn: conn, config: config}, nil
}

// New wraps an already established pgx connection.
func New(conn *pgxlib.Conn) *Adapter {
	return &Adapter{conn: conn}
}

// Cursor implements adapter.Adapter.
func (a *Adapter) Cursor() (adapter.Cursor, error) {
	if !a.IsConnected() {
		return nil, adapter.WrapError("open cursor", errors.New("connection is closed"))
	}
	return &cursor{adapter: a}, nil
}

// IsConnected implements adapter.Adapter.
func (a *Adapter) IsConnected() bool {
	return a.conn != nil && !a.conn.IsClosed()
}

// SetAutocommit implements adapter.Adapter.
func (a *Adapter) SetAutocommit(ctx context.Context, on bool) error {
	switch {
	case on && a.tx != nil:
		tx := a.tx
		a.tx = nil
		if err := tx.Commit(ctx); err != nil {
			return adapter.WrapError("commit transaction", err)
		}
	case !on && a.tx == nil:
		tx, err := a.conn.Begin(ctx)
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
func (a *Adapter) Rollback(ctx context.Context) error {
	if a.tx == nil {
		return nil
	}
	tx := a.tx
	a.tx = nil
	if err := tx.Rollback(ctx); err != nil {
		return adapter.WrapError("roll back transaction", err)
	}
	return nil
}

// Clone implements adapter.Cloner by dialing an independent connection with
// the same parameters.
func (a *Adapter) Clone(ctx context.Context) (adapter.Adapter, error) {
	if a.config == nil {
		return nil, adapter.WrapError("clone connection", errNoConfig)
	}
	return ConnectConfig(ctx, a.config.Copy())
}

// Close implements adapter.Adapter.
func (a *Adapter) Close(ctx context.Context) error {
	if a.conn == nil {
		return nil
	}
	if err := a.conn.Close(ctx); err != nil {
		return adapter.WrapError("close connection", err)
	}
	return nil
}

func (a *Adapter) querier() querier {
	if a.tx != nil {
		return a.tx
	}
	return a.conn
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgxlib.Rows, error)
}

type cursor struct {
	adapter *Adapter
	rows    []adapter.Row
	hasRows bool
}

// Execute implements adapter.Cursor. Statements without bind parameters run
// over the simple protocol so DDL that cannot be prepared still executes.
func (c *cursor) Execute(ctx context.Context, query string, args []any) error {
	c.rows, c.hasRows = nil, false

	callArgs := args
	if len(callArgs) == 0 {
		callArgs = []any{pgxlib.QueryExecModeSimpleProtocol}
	}
	rows, err := c.adapter.querier().Query(ctx, query, callArgs...)
	if err != nil {
		return adapter.WrapError("execute statement", err)
	}
	defer rows.Close()

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return adapter.WrapError("read result row", err)
		}
		c.rows = append(c.rows, adapter.Row(values))
		c.hasRows = true
	}
	if err := rows.Err(); err != nil {
		return adapter.WrapError("execute statement", err)
	}
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

// Adapters built with New over a raw connection cannot dial new ones.
var errNoConfig = errors.New("adapter was built without dial configuration")
