package objects

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	"github.com/pseudomuto/pgkeeper/pkg/catalog"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
)

// Sequence represents a sequence.
type Sequence struct {
	object

	owner     string
	dataType  string
	start     int64
	min       int64
	max       int64
	increment int64
	cycle     bool
	cacheSize int64
	lastValue *int64
}

// NewSequence returns an ephemeral sequence definition in the given schema.
// An empty schema means public. The zero values yield the server defaults on
// create.
func NewSequence(exec Executor, name, schema string) *Sequence {
	if schema == "" {
		schema = "public"
	}
	return &Sequence{
		object:    newObject(exec, "SEQUENCE", name, schema),
		dataType:  "bigint",
		start:     1,
		min:       1,
		increment: 1,
		cacheSize: 1,
	}
}

func (s *Sequence) Schema() string { return s.schema }
func (s *Sequence) Owner() string { return s.owner }
func (s *Sequence) DataType() string { return s.dataType }
func (s *Sequence) Start() int64 { return s.start }
func (s *Sequence) Min() int64 { return s.min }
func (s *Sequence) Max() int64 { return s.max }
func (s *Sequence) Increment() int64 { return s.increment }
func (s *Sequence) Cycle() bool { return s.cycle }
func (s *Sequence) CacheSize() int64 { return s.cacheSize }

// LastValue is the value observed at the last refresh, nil before the first
// nextval call.
func (s *Sequence) LastValue() *int64 { return s.lastValue }

// SetName queues a rename. Renames always apply last.
func (s *Sequence) SetName(name string) {
	if s.name == name {
		return
	}
	s.name = name
	if !s.ephemeral() {
		s.changes.set(PropertyName, func() sql.Composable {
			return sql.MustFormat("ALTER SEQUENCE {seq} RENAME TO {new}", sql.Args{
				"seq": s.target(),
				"new": sql.Ident(s.name),
			})
		})
	}
}

// SetOwner queues an owner change.
func (s *Sequence) SetOwner(owner string) {
	if s.owner == owner {
		return
	}
	s.owner = owner
	if !s.ephemeral() {
		s.changes.set(PropertyOwner, func() sql.Composable {
			return sql.MustFormat("ALTER SEQUENCE {seq} OWNER TO {new}", sql.Args{
				"seq": s.target(),
				"new": sql.Ident(s.owner),
			})
		})
	}
}

// SetSchema queues a move to another schema.
func (s *Sequence) SetSchema(schema string) {
	if s.schema == schema {
		return
	}
	s.schema = schema
	if !s.ephemeral() {
		s.changes.set(PropertySchema, func() sql.Composable {
			return sql.MustFormat("ALTER SEQUENCE {seq} SET SCHEMA {new}", sql.Args{
				"seq": s.target(),
				"new": sql.Ident(s.schema),
			})
		})
	}
}

// NextValue advances the sequence and returns the new value.
func (s *Sequence) NextValue(ctx context.Context) (int64, error) {
	if err := s.ensureSynced("advance"); err != nil {
		return 0, err
	}
	rows, err := s.exec.Execute(ctx, sql.MustFormat("SELECT nextval({oid})", sql.Args{
		"oid": sql.Value(int64(s.oid)),
	}))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errors.Errorf("nextval on %s %q returned no row", s.kind, s.Key())
	}
	v := rows[0].Int(0)
	s.lastValue = &v
	return v, nil
}

// CurrentValue returns the value most recently produced by NextValue in this
// session. The server errors when nextval has not been called yet.
func (s *Sequence) CurrentValue(ctx context.Context) (int64, error) {
	if err := s.ensureSynced("read"); err != nil {
		return 0, err
	}
	rows, err := s.exec.Execute(ctx, sql.MustFormat("SELECT currval({oid})", sql.Args{
		"oid": sql.Value(int64(s.oid)),
	}))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errors.Errorf("currval on %s %q returned no row", s.kind, s.Key())
	}
	return rows[0].Int(0), nil
}

// SetValue repositions the sequence. With isCalled, the next nextval returns
// value+increment; otherwise it returns value itself.
func (s *Sequence) SetValue(ctx context.Context, value int64, isCalled bool) error {
	if err := s.ensureSynced("reposition"); err != nil {
		return err
	}
	_, err := s.exec.Execute(ctx, sql.MustFormat("SELECT setval({oid}, {value}, {called})", sql.Args{
		"oid":    sql.Value(int64(s.oid)),
		"value":  sql.Value(value),
		"called": sql.Value(isCalled),
	}))
	if err != nil {
		return err
	}
	s.lastValue = &value
	return nil
}

// Create creates the sequence and records its OID.
func (s *Sequence) Create(ctx context.Context) error {
	if err := s.ensureEphemeral("create"); err != nil {
		return err
	}
	text, err := sql.RenderInline(s.createStatement())
	if err != nil {
		return err
	}
	if _, err := s.exec.Execute(ctx, sql.Raw(text)); err != nil {
		return err
	}

	rows, err := s.exec.Execute(ctx, sql.MustFormat(
		"SELECT c.oid FROM pg_catalog.pg_class c"+
			" JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace"+
			" WHERE c.relname = {name} AND n.nspname = {schema}",
		sql.Args{"name": sql.Value(s.name), "schema": sql.Value(s.schema)},
	))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &NotFoundError{Kind: s.kind, Key: s.Key()}
	}
	s.markSynced(rows[0].OID(0))
	return nil
}

// Alter applies queued changes.
func (s *Sequence) Alter(ctx context.Context) error { return s.alter(ctx) }

// Drop removes the sequence. With cascade, dependent defaults go with it.
func (s *Sequence) Drop(ctx context.Context, cascade bool) error { return s.drop(ctx, cascade, false) }

// DropIfExists issues DROP SEQUENCE IF EXISTS, tolerating a sequence that was
// never created or already removed on the server.
func (s *Sequence) DropIfExists(ctx context.Context, cascade bool) error {
	return s.drop(ctx, cascade, true)
}

func (s *Sequence) drop(ctx context.Context, cascade, ifExists bool) error {
	if err := s.ensureDroppable(ifExists); err != nil {
		return err
	}
	text := "DROP SEQUENCE {seq}"
	if ifExists {
		text = "DROP SEQUENCE IF EXISTS {seq}"
	}
	stmt := sql.MustFormat(text, sql.Args{"seq": s.dropTarget()})
	if cascade {
		stmt = sql.Concat(stmt, sql.Raw(" CASCADE"))
	}
	if _, err := s.exec.Execute(ctx, stmt); err != nil {
		return err
	}
	s.markDropped()
	return nil
}

// Refresh discards queued changes and reloads the sequence's attributes.
func (s *Sequence) Refresh(ctx context.Context) error {
	if err := s.ensureSynced("refresh"); err != nil {
		return err
	}
	row, err := fetchByOID(ctx, s.exec, catalog.Sequences, s.kind, s.Key(), s.oid)
	if err != nil {
		return err
	}
	s.changes.clear()
	mapSequence(s, row)
	return nil
}

// Script renders the CREATE SEQUENCE statement reproducing this sequence.
func (s *Sequence) Script() (string, error) {
	return sql.RenderInline(s.createStatement())
}

func (s *Sequence) createStatement() sql.Composable {
	parts := []sql.Composable{
		sql.MustFormat("CREATE SEQUENCE {seq}", sql.Args{"seq": s.fqn()}),
		sql.MustFormat(" AS {type}", sql.Args{"type": sql.Raw(s.dataType)}),
		sql.MustFormat(" INCREMENT BY {n}", sql.Args{"n": sql.Value(s.increment)}),
		sql.MustFormat(" MINVALUE {n}", sql.Args{"n": sql.Value(s.min)}),
	}
	if s.max != 0 {
		parts = append(parts, sql.MustFormat(" MAXVALUE {n}", sql.Args{"n": sql.Value(s.max)}))
	}
	parts = append(parts,
		sql.MustFormat(" START WITH {n}", sql.Args{"n": sql.Value(s.start)}),
		sql.MustFormat(" CACHE {n}", sql.Args{"n": sql.Value(s.cacheSize)}),
	)
	if s.cycle {
		parts = append(parts, sql.Raw(" CYCLE"))
	}
	return sql.Concat(parts...)
}

func mapSequence(s *Sequence, row adapter.Row) {
	s.name = row.String(0)
	s.owner = row.String(1)
	s.schema = row.String(2)
	s.dataType = row.String(3)
	s.start = row.Int(4)
	s.min = row.Int(5)
	s.max = row.Int(6)
	s.increment = row.Int(7)
	s.cycle = row.Bool(8)
	s.cacheSize = row.Int(9)
	s.lastValue = row.NullInt(10)
	s.markSynced(row.OID(11))
}

// Sequences is the sequence collection, keyed by name ("schema.name" outside
// public).
type Sequences struct {
	*Collection[*Sequence]
}

// NewSequences builds the sequence collection with the given load strategy.
func NewSequences(ctx context.Context, exec Executor, strategy LoadStrategy) (*Sequences, error) {
	c, err := newCollection(ctx, exec, strategy, kindSpec[*Sequence]{
		kind:  "SEQUENCE",
		query: catalog.Sequences,
		keyOf: func(row adapter.Row) string { return ObjectKey(row.String(2), row.String(0)) },
		build: func(exec Executor, rows []adapter.Row) (*Sequence, error) {
			s := NewSequence(exec, rows[0].String(0), rows[0].String(2))
			mapSequence(s, rows[0])
			return s, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &Sequences{Collection: c}, nil
}

// New returns an ephemeral sequence attached to this collection's executor.
func (s *Sequences) New(name, schema string) *Sequence {
	return NewSequence(s.exec, name, schema)
}

// Add creates the sequence on the server and registers it in the collection.
func (s *Sequences) Add(ctx context.Context, seq *Sequence) error {
	return s.add(ctx, seq.Key(), seq, seq.Create)
}
