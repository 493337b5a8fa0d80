package objects

import (
	"context"

	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	"github.com/pseudomuto/pgkeeper/pkg/catalog"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
)

type (
	// ProcedureKind distinguishes the callable flavors sharing pg_proc.
	ProcedureKind string

	// Volatility is the planner's view of a function's side effects.
	Volatility string

	// ParallelSafety is the function's parallel query classification.
	ParallelSafety string
)

const (
	KindFunction  ProcedureKind = "f"
	KindProcedure ProcedureKind = "p"
	KindAggregate ProcedureKind = "a"
	KindWindow    ProcedureKind = "w"

	VolatilityImmutable Volatility = "i"
	VolatilityStable    Volatility = "s"
	VolatilityVolatile  Volatility = "v"

	ParallelSafe       ParallelSafety = "s"
	ParallelRestricted ParallelSafety = "r"
	ParallelUnsafe     ParallelSafety = "u"
)

// Procedure represents one callable: a function, procedure, aggregate, or
// window function. Overloads of the same name are separate Procedure values
// reachable through Variations.
type Procedure struct {
	object

	owner           string
	language        string
	procKind        ProcedureKind
	securityDefiner bool
	leakproof       bool
	strict          bool
	volatility      Volatility
	parallel        ParallelSafety
	argTypes        []string

	variations []*Procedure
}

func (p *Procedure) Schema() string { return p.schema }
func (p *Procedure) Owner() string { return p.owner }
func (p *Procedure) Language() string { return p.language }
func (p *Procedure) ProcedureKind() ProcedureKind { return p.procKind }
func (p *Procedure) SecurityDefiner() bool { return p.securityDefiner }
func (p *Procedure) Leakproof() bool { return p.leakproof }
func (p *Procedure) Strict() bool { return p.strict }
func (p *Procedure) Volatility() Volatility { return p.volatility }
func (p *Procedure) ParallelSafety() ParallelSafety { return p.parallel }

// ArgTypes returns the ordered argument type names, nil for a zero-argument
// callable.
func (p *Procedure) ArgTypes() []string { return p.argTypes }

// Variations returns every overload sharing this name, this one included.
func (p *Procedure) Variations() []*Procedure {
	if len(p.variations) == 0 {
		return []*Procedure{p}
	}
	return p.variations
}

// alterKeyword picks the ALTER/DROP noun for this callable's flavor. Window
// functions are plain functions as far as DDL is concerned.
func (p *Procedure) alterKeyword() string {
	switch p.procKind {
	case KindProcedure:
		return "PROCEDURE"
	case KindAggregate:
		return "AGGREGATE"
	default:
		return "FUNCTION"
	}
}

// signature renders "schema"."name"(type, type) so overloads stay
// unambiguous. It uses the identity the server currently knows.
func (p *Procedure) signature() sql.Composable { return p.signatureFor(p.target()) }

func (p *Procedure) signatureFor(base sql.Composable) sql.Composable {
	parts := []sql.Composable{base, sql.Raw("(")}
	for i, t := range p.argTypes {
		if i > 0 {
			parts = append(parts, sql.Raw(", "))
		}
		parts = append(parts, sql.Raw(t))
	}
	return sql.Concat(append(parts, sql.Raw(")"))...)
}

// SetName queues a rename for this overload. Renames always apply last.
func (p *Procedure) SetName(name string) {
	if p.name == name {
		return
	}
	p.name = name
	if !p.ephemeral() {
		p.changes.set(PropertyName, func() sql.Composable {
			return sql.MustFormat("ALTER {kw} {proc} RENAME TO {new}", sql.Args{
				"kw":   sql.Raw(p.alterKeyword()),
				"proc": p.signature(),
				"new":  sql.Ident(p.name),
			})
		})
	}
}

// SetOwner queues an owner change for this overload.
func (p *Procedure) SetOwner(owner string) {
	if p.owner == owner {
		return
	}
	p.owner = owner
	if !p.ephemeral() {
		p.changes.set(PropertyOwner, func() sql.Composable {
			return sql.MustFormat("ALTER {kw} {proc} OWNER TO {new}", sql.Args{
				"kw":   sql.Raw(p.alterKeyword()),
				"proc": p.signature(),
				"new":  sql.Ident(p.owner),
			})
		})
	}
}

// SetSchema queues a move to another schema for this overload.
func (p *Procedure) SetSchema(schema string) {
	if p.schema == schema {
		return
	}
	p.schema = schema
	if !p.ephemeral() {
		p.changes.set(PropertySchema, func() sql.Composable {
			return sql.MustFormat("ALTER {kw} {proc} SET SCHEMA {new}", sql.Args{
				"kw":   sql.Raw(p.alterKeyword()),
				"proc": p.signature(),
				"new":  sql.Ident(p.schema),
			})
		})
	}
}

// Alter applies queued changes.
func (p *Procedure) Alter(ctx context.Context) error { return p.alter(ctx) }

// Drop removes this overload only. With cascade, dependent objects go with
// it.
func (p *Procedure) Drop(ctx context.Context, cascade bool) error {
	return p.drop(ctx, cascade, false)
}

// DropIfExists issues DROP FUNCTION/PROCEDURE IF EXISTS, tolerating an
// overload that was never created or already removed on the server.
func (p *Procedure) DropIfExists(ctx context.Context, cascade bool) error {
	return p.drop(ctx, cascade, true)
}

func (p *Procedure) drop(ctx context.Context, cascade, ifExists bool) error {
	if err := p.ensureDroppable(ifExists); err != nil {
		return err
	}
	text := "DROP {kw} {proc}"
	if ifExists {
		text = "DROP {kw} IF EXISTS {proc}"
	}
	stmt := sql.MustFormat(text, sql.Args{
		"kw":   sql.Raw(p.alterKeyword()),
		"proc": p.signatureFor(p.dropTarget()),
	})
	if cascade {
		stmt = sql.Concat(stmt, sql.Raw(" CASCADE"))
	}
	if _, err := p.exec.Execute(ctx, stmt); err != nil {
		return err
	}
	p.markDropped()
	return nil
}

// Refresh discards queued changes and reloads this overload's attributes.
func (p *Procedure) Refresh(ctx context.Context) error {
	if err := p.ensureSynced("refresh"); err != nil {
		return err
	}
	row, err := fetchByOID(ctx, p.exec, catalog.Procedures, p.kind, p.Key(), p.oid)
	if err != nil {
		return err
	}
	p.changes.clear()
	mapProcedure(p, row)
	return nil
}

func newProcedure(exec Executor, row adapter.Row) *Procedure {
	p := &Procedure{object: newObject(exec, "PROCEDURE", row.String(1), row.String(2))}
	mapProcedure(p, row)
	return p
}

func mapProcedure(p *Procedure, row adapter.Row) {
	p.name = row.String(1)
	p.schema = row.String(2)
	p.owner = row.String(3)
	p.language = row.String(4)
	p.procKind = ProcedureKind(row.String(5))
	p.securityDefiner = row.Bool(6)
	p.leakproof = row.Bool(7)
	p.strict = row.Bool(8)
	p.volatility = Volatility(row.String(9))
	p.parallel = ParallelSafety(row.String(10))
	p.argTypes = row.Strings(11)
	p.markSynced(row.OID(0))
}

// Procedures is the callable collection, keyed by name ("schema.name"
// outside public). Overloads share one key.
type Procedures struct {
	*Collection[*Procedure]
}

// NewProcedures builds the callable collection with the given load strategy.
func NewProcedures(ctx context.Context, exec Executor, strategy LoadStrategy) (*Procedures, error) {
	c, err := newCollection(ctx, exec, strategy, kindSpec[*Procedure]{
		kind:    "PROCEDURE",
		query:   catalog.Procedures,
		grouped: true,
		keyOf:   func(row adapter.Row) string { return ObjectKey(row.String(2), row.String(1)) },
		build: func(exec Executor, rows []adapter.Row) (*Procedure, error) {
			head := newProcedure(exec, rows[0])
			if len(rows) > 1 {
				head.variations = make([]*Procedure, 0, len(rows))
				head.variations = append(head.variations, head)
				for _, row := range rows[1:] {
					head.variations = append(head.variations, newProcedure(exec, row))
				}
			}
			return head, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &Procedures{Collection: c}, nil
}
