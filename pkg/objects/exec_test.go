package objects_test

import (
	"context"
	"strings"

	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	"github.com/pseudomuto/pgkeeper/pkg/catalog"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
)

type (
	// fakeExec records every rendered statement and answers queries with
	// canned rows matched by substring, first registration winning.
	fakeExec struct {
		version  catalog.Version
		stubs    []stub
		executed []executedStmt
		osCmds   []string
		osOutput string
		scopes   int
	}

	stub struct {
		contains string
		rows     []adapter.Row
		err      error
	}

	executedStmt struct {
		text string
		args []any
	}
)

func newFakeExec() *fakeExec {
	return &fakeExec{version: catalog.MustParseVersion("12.4")}
}

func (f *fakeExec) on(contains string, rows ...adapter.Row) {
	f.stubs = append(f.stubs, stub{contains: contains, rows: rows})
}

func (f *fakeExec) failOn(contains string, err error) {
	f.stubs = append(f.stubs, stub{contains: contains, err: err})
}

func (f *fakeExec) statements() []string {
	out := make([]string, len(f.executed))
	for i, s := range f.executed {
		out[i] = s.text
	}
	return out
}

func (f *fakeExec) Execute(_ context.Context, stmt sql.Composable, args ...any) ([]adapter.Row, error) {
	text, params, err := sql.Render(stmt)
	if err != nil {
		return nil, err
	}
	f.executed = append(f.executed, executedStmt{text: text, args: append(params, args...)})
	for _, s := range f.stubs {
		if strings.Contains(text, s.contains) {
			return s.rows, s.err
		}
	}
	return nil, nil
}

func (f *fakeExec) NoAutocommit(ctx context.Context, fn func(context.Context) error) error {
	f.scopes++
	return fn(ctx)
}

func (f *fakeExec) ServerVersion() catalog.Version { return f.version }

func (f *fakeExec) RunOSCommand(_ context.Context, command string) (string, error) {
	f.osCmds = append(f.osCmds, command)
	return f.osOutput, nil
}

func roleRow(name string, oid uint32) adapter.Row {
	return adapter.Row{name, false, true, false, false, true, false, int64(-1), nil, false, oid}
}

func tableRow(name, owner, schema, tablespace string, rls bool, oid uint32) adapter.Row {
	return adapter.Row{name, owner, schema, tablespace, rls, oid}
}

func sequenceRow(name, schema string, oid uint32) adapter.Row {
	return adapter.Row{
		name, "postgres", schema, "bigint",
		int64(1), int64(1), int64(9223372036854775807), int64(1),
		false, int64(1), nil, oid,
	}
}
