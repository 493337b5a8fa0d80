// Package adapter defines the capability surface pgkeeper requires from a
// PostgreSQL driver: open a cursor, execute a parameterized statement, fetch
// the resulting rows, and control the connection's autocommit mode.
//
// The engine never depends on a concrete driver. Anything satisfying Adapter
// can back a cluster; production implementations live in the pgx and stdsql
// subpackages, and tests use in-memory fakes.
//
// Driver and connection failures are wrapped in *Error, which records the
// failing operation's intent and preserves the driver error as the cause.
// Credentials and connection strings never appear in error text.
package adapter
