package cluster

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
)

// TerminateOptions filters the backends Terminate will kill. Empty slices
// leave the corresponding dimension unfiltered. The calling backend is always
// excluded.
type TerminateOptions struct {
	Databases        []string
	ExcludeDatabases []string
	Roles            []string
	ExcludeRoles     []string
	PIDs             []int64
	ExcludePIDs      []int64
}

// Terminate kills backends matching the given filters and returns the pids
// that were actually terminated.
func (c *Cluster) Terminate(ctx context.Context, opts TerminateOptions) ([]int64, error) {
	var stmt sql.Composable = sql.Raw(
		"SELECT pid, pg_terminate_backend(pid) FROM pg_stat_activity WHERE pid != pg_backend_pid()",
	)

	filter := func(clause string, value any) {
		stmt = sql.Concat(stmt, sql.MustFormat(clause, sql.Args{"v": sql.Value(value)}))
	}
	if len(opts.Databases) > 0 {
		filter(" AND datname = ANY({v})", opts.Databases)
	}
	if len(opts.ExcludeDatabases) > 0 {
		filter(" AND datname != ALL({v})", opts.ExcludeDatabases)
	}
	if len(opts.Roles) > 0 {
		filter(" AND usename = ANY({v})", opts.Roles)
	}
	if len(opts.ExcludeRoles) > 0 {
		filter(" AND usename != ALL({v})", opts.ExcludeRoles)
	}
	if len(opts.PIDs) > 0 {
		filter(" AND pid = ANY({v})", opts.PIDs)
	}
	if len(opts.ExcludePIDs) > 0 {
		filter(" AND pid != ALL({v})", opts.ExcludePIDs)
	}

	rows, err := c.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}

	var pids []int64
	for _, row := range rows {
		if row.Bool(1) {
			pids = append(pids, row.Int(0))
		}
	}
	return pids, nil
}

// Reload signals the server to re-read its configuration files.
func (c *Cluster) Reload(ctx context.Context) error {
	_, err := c.Execute(ctx, sql.Raw("SELECT pg_reload_conf()"))
	return err
}

// ReassignOwned transfers ownership of every object owned by owner to
// newOwner within the current database.
func (c *Cluster) ReassignOwned(ctx context.Context, owner, newOwner string) error {
	stmt := sql.MustFormat("REASSIGN OWNED BY {old} TO {new}", sql.Args{
		"old": sql.Ident(owner),
		"new": sql.Ident(newOwner),
	})
	_, err := c.Execute(ctx, stmt)
	return err
}

// RunOSCommand executes a shell command on the server host through COPY FROM
// PROGRAM and returns its combined stdout and stderr. A non-zero exit code is
// an error carrying the command output.
func (c *Cluster) RunOSCommand(ctx context.Context, command string) (string, error) {
	if _, err := c.Execute(ctx, sql.Raw(
		"CREATE TEMPORARY TABLE pgkeeper_shell (id serial, line text)",
	)); err != nil {
		return "", err
	}
	defer c.Execute(ctx, sql.Raw("DROP TABLE pgkeeper_shell")) //nolint:errcheck

	// The exit code rides along as the final output line. COPY FROM PROGRAM
	// supports no bind parameters, so the command is inlined with
	// deterministic quoting.
	stmt := sql.MustInlineFormat("COPY pgkeeper_shell (line) FROM PROGRAM {cmd}", sql.Args{
		"cmd": sql.Value(command + " 2>&1; echo $?"),
	})
	if _, err := c.Execute(ctx, stmt); err != nil {
		return "", err
	}

	rows, err := c.Execute(ctx, sql.Raw("SELECT line FROM pgkeeper_shell ORDER BY id"))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", errors.New("shell command produced no output")
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = row.String(0)
	}
	code, err := strconv.Atoi(strings.TrimSpace(lines[len(lines)-1]))
	if err != nil {
		return "", errors.Wrap(err, "parsing shell exit code")
	}

	output := strings.Join(lines[:len(lines)-1], "\n")
	if code != 0 {
		return output, errors.Errorf("shell command exited with code %d: %s", code, output)
	}
	return output, nil
}
