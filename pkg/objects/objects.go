package objects

import (
	"context"
	"strings"

	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	"github.com/pseudomuto/pgkeeper/pkg/catalog"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
)

type (
	// Executor is the surface objects need from a cluster connection. It is
	// implemented by cluster.Cluster.
	Executor interface {
		// Execute renders the composable and runs it, returning any result
		// rows.
		Execute(ctx context.Context, stmt sql.Composable, args ...any) ([]adapter.Row, error)

		// NoAutocommit runs fn with autocommit disabled, committing on
		// success and rolling back on error. Nested calls join the outer
		// scope.
		NoAutocommit(ctx context.Context, fn func(context.Context) error) error

		// ServerVersion reports the version of the connected server.
		ServerVersion() catalog.Version

		// RunOSCommand executes a shell command on the server host and
		// returns its combined output.
		RunOSCommand(ctx context.Context, command string) (string, error)
	}

	objectState int

	// container is the parent collection hook used to evict dropped objects.
	container interface {
		evict(key string)
	}

	// object carries the identity and change tracking shared by every
	// catalog object kind.
	object struct {
		kind   string
		name   string
		schema string // empty for global kinds
		oid    uint32

		// The identity the server currently knows the object by. It trails
		// name and schema while a rename or schema move is queued and
		// catches up as the change applies.
		remoteName   string
		remoteSchema string

		exec    Executor
		state   objectState
		parent  container
		changes changeSet
	}
)

const (
	stateEphemeral objectState = iota
	stateSynced
	stateDropped
)

func newObject(exec Executor, kind, name, schema string) object {
	return object{kind: kind, name: name, schema: schema, exec: exec}
}

func syncedObject(exec Executor, kind, name, schema string, oid uint32) object {
	return object{
		kind: kind, name: name, schema: schema, oid: oid,
		remoteName: name, remoteSchema: schema,
		exec: exec, state: stateSynced,
	}
}

// Kind returns the object kind, e.g. "ROLE" or "TABLE".
func (o *object) Kind() string { return o.kind }

// Name returns the object name.
func (o *object) Name() string { return o.name }

// OID returns the object's catalog OID, or zero for an ephemeral object.
func (o *object) OID() uint32 { return o.oid }

// Key returns the collection key: the bare name, or "schema.name" outside the
// public schema.
func (o *object) Key() string { return ObjectKey(o.schema, o.name) }

// Pending returns the properties with queued but unapplied changes.
func (o *object) Pending() []Property { return o.changes.pending() }

// DiscardChanges drops queued changes without touching the server.
func (o *object) DiscardChanges() { o.changes.clear() }

// ephemeral reports whether the object has no server identity yet.
func (o *object) ephemeral() bool { return o.state == stateEphemeral }

func (o *object) fqn() sql.Composable {
	if o.schema == "" {
		return sql.Ident(o.name)
	}
	return sql.Join(sql.Raw("."), sql.Ident(o.schema), sql.Ident(o.name))
}

// target references the object as the server currently knows it, which can
// differ from the local identity while a rename or schema move is queued.
func (o *object) target() sql.Composable {
	if o.remoteSchema == "" {
		return sql.Ident(o.remoteName)
	}
	return sql.Join(sql.Raw("."), sql.Ident(o.remoteSchema), sql.Ident(o.remoteName))
}

func (o *object) ensureSynced(op string) error {
	switch o.state {
	case stateDropped:
		return &StaleStateError{Kind: o.kind, Key: o.Key(), Op: op, Reason: "object has been dropped"}
	case stateEphemeral:
		return &StaleStateError{Kind: o.kind, Key: o.Key(), Op: op, Reason: "object has not been created"}
	}
	return nil
}

// ensureDroppable gates a drop. With ifExists an object that was never
// created may still be dropped; a dropped object stays terminal either way.
func (o *object) ensureDroppable(ifExists bool) error {
	if ifExists && o.state == stateEphemeral {
		return nil
	}
	return o.ensureSynced("drop")
}

// dropTarget references the object for a DROP statement: the remote identity
// when one exists, otherwise the local name (if-exists drops run on objects
// that were never created).
func (o *object) dropTarget() sql.Composable {
	if o.ephemeral() {
		return o.fqn()
	}
	return o.target()
}

func (o *object) ensureEphemeral(op string) error {
	switch o.state {
	case stateDropped:
		return &StaleStateError{Kind: o.kind, Key: o.Key(), Op: op, Reason: "object has been dropped"}
	case stateSynced:
		return &StaleStateError{Kind: o.kind, Key: o.Key(), Op: op, Reason: "object already exists on the server"}
	}
	return nil
}

// markSynced records the server identity after a successful create or map.
func (o *object) markSynced(oid uint32) {
	o.oid = oid
	o.remoteName = o.name
	o.remoteSchema = o.schema
	o.state = stateSynced
}

func (o *object) setParent(p container) { o.parent = p }

// markDropped makes the object terminal and removes it from its parent
// collection under the key it was registered with.
func (o *object) markDropped() {
	name, schema := o.remoteName, o.remoteSchema
	if name == "" {
		name, schema = o.name, o.schema
	}
	key := ObjectKey(schema, name)
	o.state = stateDropped
	o.changes.clear()
	if o.parent != nil {
		o.parent.evict(key)
		o.parent = nil
	}
}

// alter applies queued changes. A single change executes directly; multiple
// changes run inside one no-autocommit scope. On success the queue clears and
// the locally visible values become the new baseline; on failure the scope
// rolls back and the queue is left intact.
//
// The remote identity cursor advances as the schema move and rename
// statements run, so later statements in the batch reference the object
// where it actually is. A failed batch restores the cursor along with the
// server-side rollback.
func (o *object) alter(ctx context.Context) error {
	if err := o.ensureSynced("alter"); err != nil {
		return err
	}

	name, schema := o.remoteName, o.remoteSchema
	err := o.changes.apply(ctx, o.exec, func(p Property) {
		switch p {
		case PropertySchema:
			o.remoteSchema = o.schema
		case PropertyName:
			o.remoteName = o.name
		}
	})
	if err != nil {
		o.remoteName, o.remoteSchema = name, schema
		return err
	}
	return nil
}

// fetchByOID wraps a catalog query with an oid filter and returns the single
// matching row.
func fetchByOID(ctx context.Context, exec Executor, queryName, kind, key string, oid uint32) (adapter.Row, error) {
	return fetchOne(ctx, exec, queryName, kind, key, "oid", oid)
}

func fetchOne(ctx context.Context, exec Executor, queryName, kind, key, column string, value any) (adapter.Row, error) {
	text, err := catalog.Query(queryName, exec.ServerVersion())
	if err != nil {
		return nil, err
	}

	stmt, err := sql.Format("SELECT * FROM (\n{query}\n) AS src WHERE src.{column} = {value}", sql.Args{
		"query":  sql.Raw(text),
		"column": sql.Ident(column),
		"value":  sql.Value(value),
	})
	if err != nil {
		return nil, err
	}

	rows, err := exec.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{Kind: kind, Key: key}
	}
	return rows[0], nil
}

// ObjectKey builds the collection key for a named object: the bare name when
// the schema is "public" (or empty for global kinds), "schema.name"
// otherwise.
func ObjectKey(schema, name string) string {
	if schema == "" || schema == "public" {
		return name
	}
	return schema + "." + name
}

// normalizeKey folds a user-supplied lookup key the way the server folds
// identifiers: unquoted parts are lowercased, quoted parts keep their exact
// content with doubled quotes unescaped. A "public." qualifier folds away so
// both spellings of a public-schema key resolve to the same entry.
func normalizeKey(key string) string {
	var b strings.Builder
	part := func(s string) string {
		if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
			return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
		}
		return strings.ToLower(s)
	}

	start, quoted := 0, false
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '"':
			quoted = !quoted
		case '.':
			if !quoted {
				b.WriteString(part(key[start:i]))
				b.WriteByte('.')
				start = i + 1
			}
		}
	}
	b.WriteString(part(key[start:]))
	return strings.TrimPrefix(b.String(), "public.")
}
