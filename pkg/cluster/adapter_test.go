package cluster_test

import (
	"context"
	"strings"
	"sync"

	"github.com/pseudomuto/pgkeeper/pkg/adapter"
)

type (
	// fakeBackend is the shared state behind one or more fake adapters, so a
	// cloned adapter records into the same log. Queries are answered by
	// substring, the most recent registration winning.
	fakeBackend struct {
		mu       sync.Mutex
		stubs    []backendStub
		executed []backendStmt

		begins    int
		commits   int
		rollbacks int
		clones    int
	}

	backendStub struct {
		contains string
		rows     []adapter.Row
		err      error
	}

	backendStmt struct {
		text string
		args []any
	}

	fakeAdapter struct {
		backend    *fakeBackend
		autocommit bool
		closed     bool
	}

	fakeCursor struct {
		adapter *fakeAdapter
		rows    []adapter.Row
	}
)

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{backend: &fakeBackend{}, autocommit: true}
}

func (b *fakeBackend) on(contains string, rows ...adapter.Row) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stubs = append(b.stubs, backendStub{contains: contains, rows: rows})
}

func (b *fakeBackend) failOn(contains string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stubs = append(b.stubs, backendStub{contains: contains, err: err})
}

func (b *fakeBackend) statements() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.executed))
	for i, s := range b.executed {
		out[i] = s.text
	}
	return out
}

func (b *fakeBackend) last() backendStmt {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.executed[len(b.executed)-1]
}

func (b *fakeBackend) run(text string, args []any) ([]adapter.Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.executed = append(b.executed, backendStmt{text: text, args: args})
	for i := len(b.stubs) - 1; i >= 0; i-- {
		if strings.Contains(text, b.stubs[i].contains) {
			return b.stubs[i].rows, b.stubs[i].err
		}
	}
	return nil, nil
}

func (a *fakeAdapter) Cursor() (adapter.Cursor, error) {
	return &fakeCursor{adapter: a}, nil
}

func (a *fakeAdapter) IsConnected() bool { return !a.closed }

func (a *fakeAdapter) SetAutocommit(_ context.Context, on bool) error {
	b := a.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case on && !a.autocommit:
		b.commits++
	case !on && a.autocommit:
		b.begins++
	}
	a.autocommit = on
	return nil
}

func (a *fakeAdapter) Autocommit() bool { return a.autocommit }

func (a *fakeAdapter) Rollback(context.Context) error {
	b := a.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !a.autocommit {
		b.rollbacks++
		a.autocommit = true
	}
	return nil
}

func (a *fakeAdapter) Clone(context.Context) (adapter.Adapter, error) {
	a.backend.mu.Lock()
	a.backend.clones++
	a.backend.mu.Unlock()
	return &fakeAdapter{backend: a.backend, autocommit: true}, nil
}

func (a *fakeAdapter) Close(context.Context) error {
	a.closed = true
	return nil
}

func (c *fakeCursor) Execute(_ context.Context, query string, args []any) error {
	rows, err := c.adapter.backend.run(query, args)
	c.rows = rows
	return err
}

func (c *fakeCursor) Fetch() ([]adapter.Row, error) { return c.rows, nil }

func (c *fakeCursor) Close() error { return nil }

const serverBanner = "PostgreSQL 12.4 on x86_64-pc-linux-gnu, compiled by gcc, 64-bit"

func identityStub(a *fakeAdapter, database string) {
	a.backend.on("current_database(), version()", adapter.Row{database, serverBanner})
}
