package adapter

import (
	"context"
	"fmt"
)

type (
	// Adapter is the connection-level capability set consumed by the engine.
	// One Adapter owns exactly one underlying connection; callers serialize
	// access to it.
	Adapter interface {
		// Cursor returns a scoped cursor for executing one statement at a time.
		Cursor() (Cursor, error)

		// IsConnected reports whether the underlying connection is usable.
		IsConnected() bool

		// SetAutocommit switches the connection's autocommit mode. Turning
		// autocommit off opens a transaction; turning it back on commits the
		// open transaction, if any.
		SetAutocommit(ctx context.Context, on bool) error

		// Autocommit reports the current autocommit mode.
		Autocommit() bool

		// Rollback aborts the transaction opened by SetAutocommit(false) and
		// restores autocommit mode. It is a no-op when autocommit is on.
		Rollback(ctx context.Context) error

		// Close releases the underlying connection.
		Close(ctx context.Context) error
	}

	// Cursor executes a single statement and exposes its result set.
	Cursor interface {
		// Execute runs query with the given ordered bind parameters.
		Execute(ctx context.Context, query string, args []any) error

		// Fetch returns all rows produced by the last Execute call, or nil
		// when the statement produced no result set.
		Fetch() ([]Row, error)

		// Close releases the cursor.
		Close() error
	}

	// Cloner is an optional Adapter capability: open an independent connection
	// with the same parameters. Parallel collection loading requires it.
	Cloner interface {
		Clone(ctx context.Context) (Adapter, error)
	}

	// Row is one result row as returned by a driver, with positional typed
	// accessors. Accessors are lenient about driver-specific integer widths.
	Row []any

	// Error wraps a driver failure with the intent of the failing operation.
	// The driver error is preserved as the cause; the operation text must
	// describe intent only and never carry credentials.
	Error struct {
		Op  string
		err error
	}
)

func (e *Error) Error() string { return fmt.Sprintf("adapter: %s: %v", e.Op, e.err) }

// Unwrap returns the underlying driver error.
func (e *Error) Unwrap() error { return e.err }

// WrapError wraps err with the failing operation's intent. A nil err returns nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, err: err}
}
