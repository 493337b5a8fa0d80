// Package cluster binds the catalog object collections to one PostgreSQL
// connection. A Cluster routes every statement the engine issues, scopes
// multi-statement changes in a single transaction, and provides server-level
// operations: backend termination, configuration reload, ownership
// reassignment, and shell command execution on the server host.
package cluster
