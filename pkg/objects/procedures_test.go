package objects_test

import (
	"context"
	"testing"

	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	. "github.com/pseudomuto/pgkeeper/pkg/objects"
	"github.com/stretchr/testify/require"
)

func procedureRow(oid uint32, name, schema, kind string, argTypes []string) adapter.Row {
	var args any
	if argTypes != nil {
		args = argTypes
	}
	return adapter.Row{oid, name, schema, "postgres", "sql", kind, false, false, true, "v", "u", args}
}

func proceduresFixture(t *testing.T, f *fakeExec) *Procedures {
	t.Helper()

	f.on("p.prosecdef",
		procedureRow(401, "add", "public", "f", []string{"int4", "int4"}),
		procedureRow(402, "add", "public", "f", []string{"int8", "int8"}),
		procedureRow(403, "cleanup", "ops", "p", nil),
		procedureRow(404, "total", "public", "a", []string{"numeric"}),
	)
	procs, err := NewProcedures(context.Background(), f, LoadLazy)
	require.NoError(t, err)
	return procs
}

func TestProceduresGroupOverloads(t *testing.T) {
	f := newFakeExec()
	procs := proceduresFixture(t, f)

	keys, err := procs.Keys(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"add", "ops.cleanup", "total"}, keys)

	add, err := procs.Get(context.Background(), "add")
	require.NoError(t, err)
	variations := add.Variations()
	require.Len(t, variations, 2)
	require.Same(t, add, variations[0])
	require.Equal(t, []string{"int4", "int4"}, variations[0].ArgTypes())
	require.Equal(t, []string{"int8", "int8"}, variations[1].ArgTypes())

	cleanup, err := procs.Get(context.Background(), "ops.cleanup")
	require.NoError(t, err)
	require.Len(t, cleanup.Variations(), 1)
	require.Equal(t, KindProcedure, cleanup.ProcedureKind())
	require.Nil(t, cleanup.ArgTypes())
}

func TestProcedureAlterUsesSignature(t *testing.T) {
	f := newFakeExec()
	procs := proceduresFixture(t, f)

	add, err := procs.Get(context.Background(), "add")
	require.NoError(t, err)

	add.SetOwner("owner2")
	add.SetSchema("math")
	add.SetName("sum")
	require.NoError(t, add.Alter(context.Background()))

	stmts := f.statements()
	require.Equal(t, []string{
		`ALTER FUNCTION "public"."add"(int4, int4) OWNER TO "owner2"`,
		`ALTER FUNCTION "public"."add"(int4, int4) SET SCHEMA "math"`,
		`ALTER FUNCTION "math"."add"(int4, int4) RENAME TO "sum"`,
	}, stmts[len(stmts)-3:])
}

func TestProcedureDDLKeywordPerKind(t *testing.T) {
	f := newFakeExec()
	procs := proceduresFixture(t, f)

	cleanup, err := procs.Get(context.Background(), "ops.cleanup")
	require.NoError(t, err)
	require.NoError(t, cleanup.Drop(context.Background(), false))
	require.Contains(t, f.statements(), `DROP PROCEDURE "ops"."cleanup"()`)

	total, err := procs.Get(context.Background(), "total")
	require.NoError(t, err)
	total.SetOwner("owner2")
	require.NoError(t, total.Alter(context.Background()))
	require.Contains(t, f.statements(), `ALTER AGGREGATE "public"."total"(numeric) OWNER TO "owner2"`)
}

func TestProcedureVolatilityAndParallel(t *testing.T) {
	f := newFakeExec()
	procs := proceduresFixture(t, f)

	add, err := procs.Get(context.Background(), "add")
	require.NoError(t, err)
	require.Equal(t, VolatilityVolatile, add.Volatility())
	require.Equal(t, ParallelUnsafe, add.ParallelSafety())
	require.True(t, add.Strict())
	require.False(t, add.SecurityDefiner())
	require.Equal(t, "sql", add.Language())
}
