package cluster_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	. "github.com/pseudomuto/pgkeeper/pkg/cluster"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
	"github.com/stretchr/testify/require"
)

func openCluster(t *testing.T, opts ...Option) (*Cluster, *fakeAdapter) {
	t.Helper()

	a := newFakeAdapter()
	identityStub(a, "app")
	c, err := Open(context.Background(), a, opts...)
	require.NoError(t, err)
	return c, a
}

func TestOpen(t *testing.T) {
	c, _ := openCluster(t)

	require.Equal(t, "app", c.CurrentDatabase())
	require.Equal(t, "12.4", c.ServerVersion().String())
	require.Empty(t, c.BecomeRole())
}

func TestOpenBecome(t *testing.T) {
	c, a := openCluster(t, Become("postgres"))

	require.Equal(t, "postgres", c.BecomeRole())
	require.Contains(t, a.backend.statements(), `SET ROLE "postgres"`)
}

func TestOpenBadBanner(t *testing.T) {
	a := newFakeAdapter()
	a.backend.on("current_database(), version()", adapter.Row{"app", "not a postgres banner"})
	_, err := Open(context.Background(), a)
	require.ErrorContains(t, err, "unrecognized server version banner")
}

func TestExecute(t *testing.T) {
	c, a := openCluster(t)

	a.backend.on("SELECT datname", adapter.Row{"app"})
	rows, err := c.Execute(context.Background(), sql.MustFormat(
		"SELECT datname FROM pg_database WHERE datname = {name}",
		sql.Args{"name": sql.Value("app")},
	))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	last := a.backend.last()
	require.Equal(t, "SELECT datname FROM pg_database WHERE datname = $1", last.text)
	require.Equal(t, []any{"app"}, last.args)
}

func TestNoAutocommitCommitsOnSuccess(t *testing.T) {
	c, a := openCluster(t)
	ctx := context.Background()

	err := c.NoAutocommit(ctx, func(ctx context.Context) error {
		require.False(t, a.Autocommit())
		// A nested scope joins the outer transaction.
		return c.NoAutocommit(ctx, func(context.Context) error { return nil })
	})
	require.NoError(t, err)
	require.True(t, a.Autocommit())
	require.Equal(t, 1, a.backend.begins)
	require.Equal(t, 1, a.backend.commits)
	require.Zero(t, a.backend.rollbacks)
}

func TestNoAutocommitRollsBackOnError(t *testing.T) {
	c, a := openCluster(t)

	boom := errors.New("boom")
	err := c.NoAutocommit(context.Background(), func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.True(t, a.Autocommit())
	require.Equal(t, 1, a.backend.begins)
	require.Zero(t, a.backend.commits)
	require.Equal(t, 1, a.backend.rollbacks)
}

func TestTerminate(t *testing.T) {
	c, a := openCluster(t)

	a.backend.on("pg_terminate_backend(pid)",
		adapter.Row{int64(1234), true},
		adapter.Row{int64(999), false},
	)
	pids, err := c.Terminate(context.Background(), TerminateOptions{
		Databases:    []string{"qwe", "rty"},
		ExcludeRoles: []string{"postgres"},
		ExcludePIDs:  []int64{123},
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1234}, pids)

	last := a.backend.last()
	require.Equal(t,
		"SELECT pid, pg_terminate_backend(pid) FROM pg_stat_activity WHERE pid != pg_backend_pid()"+
			" AND datname = ANY($1) AND usename != ALL($2) AND pid != ALL($3)",
		last.text,
	)
	require.Equal(t, []any{[]string{"qwe", "rty"}, []string{"postgres"}, []int64{123}}, last.args)
}

func TestReload(t *testing.T) {
	c, a := openCluster(t)

	require.NoError(t, c.Reload(context.Background()))
	require.Equal(t, "SELECT pg_reload_conf()", a.backend.last().text)
}

func TestReassignOwned(t *testing.T) {
	c, a := openCluster(t)

	require.NoError(t, c.ReassignOwned(context.Background(), "app", "postgres"))
	require.Equal(t, `REASSIGN OWNED BY "app" TO "postgres"`, a.backend.last().text)
}

func TestRunOSCommand(t *testing.T) {
	c, a := openCluster(t)

	a.backend.on("SELECT line FROM pgkeeper_shell",
		adapter.Row{"fileA"},
		adapter.Row{"fileB"},
		adapter.Row{"0"},
	)
	out, err := c.RunOSCommand(context.Background(), "ls /tmp")
	require.NoError(t, err)
	require.Equal(t, "fileA\nfileB", out)

	stmts := a.backend.statements()
	require.Contains(t, stmts, "CREATE TEMPORARY TABLE pgkeeper_shell (id serial, line text)")
	require.Contains(t, stmts, "COPY pgkeeper_shell (line) FROM PROGRAM 'ls /tmp 2>&1; echo $?'")
	require.Contains(t, stmts, "DROP TABLE pgkeeper_shell")
}

func TestRunOSCommandFailure(t *testing.T) {
	c, a := openCluster(t)

	a.backend.on("SELECT line FROM pgkeeper_shell",
		adapter.Row{"no such file"},
		adapter.Row{"2"},
	)
	out, err := c.RunOSCommand(context.Background(), "ls /nope")
	require.ErrorContains(t, err, "exited with code 2")
	require.Equal(t, "no such file", out)
}

func TestCollectionAccessorsAreCached(t *testing.T) {
	c, a := openCluster(t)
	ctx := context.Background()

	a.backend.on("r.rolbypassrls", adapter.Row{
		"postgres", true, true, true, true, true, true, int64(-1), nil, true, uint32(10),
	})

	roles, err := c.Roles(ctx)
	require.NoError(t, err)
	again, err := c.Roles(ctx)
	require.NoError(t, err)
	require.Same(t, roles, again)

	c.Refresh()
	rebuilt, err := c.Roles(ctx)
	require.NoError(t, err)
	require.NotSame(t, roles, rebuilt)
}
