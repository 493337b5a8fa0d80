package sql_test

import (
	"testing"

	"github.com/pseudomuto/pgkeeper/pkg/sql"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	stmt, err := sql.Format("SELECT {field} FROM {table}", sql.Args{
		"field": sql.Ident("foo"),
		"table": sql.Ident("bar"),
	})
	require.NoError(t, err)
	require.Len(t, stmt.Fragments(), 4)

	stmt, err = sql.Format("SELECT {field} FROM t WHERE {field} = {value}", sql.Args{
		"field": sql.Ident("foo"),
		"value": sql.Value(1),
	})
	require.NoError(t, err)
	require.Len(t, stmt.Fragments(), 6)
}

func TestFormatEscapedBraces(t *testing.T) {
	stmt, err := sql.Format("SELECT '{{}}' || {v}", sql.Args{"v": sql.Value("x")})
	require.NoError(t, err)

	query, params, err := sql.Render(stmt)
	require.NoError(t, err)
	require.Equal(t, "SELECT '{}' || $1", query)
	require.Equal(t, []any{"x"}, params)
}

func TestFormatErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		args     sql.Args
	}{
		{name: "missing argument", template: "DROP TABLE {table}", args: sql.Args{}},
		{name: "nil fragment", template: "DROP TABLE {table}", args: sql.Args{"table": nil}},
		{name: "unterminated placeholder", template: "DROP TABLE {table", args: sql.Args{"table": sql.Ident("t")}},
		{name: "unmatched closing brace", template: "DROP TABLE t}", args: sql.Args{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sql.Format(tt.template, tt.args)
			require.Error(t, err)

			var cerr *sql.CompositionError
			require.ErrorAs(t, err, &cerr)
		})
	}
}

func TestJoin(t *testing.T) {
	fqn := sql.Join(sql.Raw("."), sql.Ident("public"), sql.Ident("accounts"))
	query, params, err := sql.Render(fqn)
	require.NoError(t, err)
	require.Equal(t, `"public"."accounts"`, query)
	require.Empty(t, params)

	list := sql.Join(sql.Raw(", "), sql.Value(1), sql.Value(2), sql.Value(3))
	query, params, err = sql.Render(list)
	require.NoError(t, err)
	require.Equal(t, "$1, $2, $3", query)
	require.Equal(t, []any{1, 2, 3}, params)
}

func TestConcat(t *testing.T) {
	stmt := sql.Concat(sql.Raw("DROP TABLE "), sql.Ident("t"), sql.Raw(" CASCADE"))
	query, params, err := sql.Render(stmt)
	require.NoError(t, err)
	require.Equal(t, `DROP TABLE "t" CASCADE`, query)
	require.Empty(t, params)
}

func TestRenderIdentifierQuoting(t *testing.T) {
	tests := []struct {
		name     string
		ident    string
		expected string
	}{
		{name: "plain", ident: "accounts", expected: `"accounts"`},
		{name: "embedded quote doubled", ident: `a"b`, expected: `"a""b"`},
		{name: "only quotes", ident: `""`, expected: `""""""`},
		{name: "mixed case preserved", ident: "MiXeD", expected: `"MiXeD"`},
		{name: "injection attempt", ident: `t"; DROP TABLE u; --`, expected: `"t""; DROP TABLE u; --"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, _, err := sql.Render(sql.Ident(tt.ident))
			require.NoError(t, err)
			require.Equal(t, tt.expected, query)
		})
	}
}

// Quoting then parsing back per PostgreSQL identifier rules yields the
// original value.
func TestIdentifierRoundTrip(t *testing.T) {
	for _, ident := range []string{`a"b`, `plain`, `wei"rd""`, `sp ace`} {
		quoted := sql.QuoteIdentifier(ident)
		require.Equal(t, ident, parseIdentifier(t, quoted))
	}
}

func parseIdentifier(t *testing.T, quoted string) string {
	t.Helper()
	require.True(t, len(quoted) >= 2 && quoted[0] == '"' && quoted[len(quoted)-1] == '"')

	inner := quoted[1 : len(quoted)-1]
	var out []byte
	for i := 0; i < len(inner); i++ {
		if inner[i] == '"' {
			require.True(t, i+1 < len(inner) && inner[i+1] == '"', "lone quote inside identifier")
			i++
		}
		out = append(out, inner[i])
	}
	return string(out)
}

func TestRenderLiteralsNeverInline(t *testing.T) {
	evil := "'; DROP TABLE accounts; --"
	stmt, err := sql.Format("UPDATE t SET v = {v}", sql.Args{"v": sql.Value(evil)})
	require.NoError(t, err)

	query, params, err := sql.Render(stmt)
	require.NoError(t, err)
	require.Equal(t, "UPDATE t SET v = $1", query)
	require.Equal(t, []any{evil}, params)
	require.NotContains(t, query, "DROP TABLE")
}

func TestRenderParamOrdering(t *testing.T) {
	stmt := sql.Concat(
		sql.Raw("SELECT "), sql.Value("a"),
		sql.Raw(", "), sql.Value("b"),
		sql.Raw(", "), sql.Value("c"),
	)
	query, params, err := sql.Render(stmt)
	require.NoError(t, err)
	require.Equal(t, "SELECT $1, $2, $3", query)
	require.Equal(t, []any{"a", "b", "c"}, params)
}

func TestSafe(t *testing.T) {
	lit, err := sql.Safe(42)
	require.NoError(t, err)

	query, params, err := sql.Render(sql.Concat(sql.Raw("LIMIT "), lit))
	require.NoError(t, err)
	require.Equal(t, "LIMIT 42", query)
	require.Empty(t, params)

	_, err = sql.Safe("42; DROP TABLE t")
	require.Error(t, err)

	var cerr *sql.CompositionError
	require.ErrorAs(t, err, &cerr)
}

func TestRenderInline(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{name: "string", value: "foo", expected: "'foo'"},
		{name: "string with quote", value: "it's", expected: "'it''s'"},
		{name: "string with backslash", value: `a\b`, expected: `E'a\\b'`},
		{name: "int", value: 42, expected: "42"},
		{name: "bool", value: true, expected: "true"},
		{name: "nil", value: nil, expected: "NULL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := sql.RenderInline(sql.Concat(sql.Raw("SELECT "), sql.Value(tt.value)))
			require.NoError(t, err)
			require.Equal(t, "SELECT "+tt.expected, text)
		})
	}
}

func TestFragmentsFlattening(t *testing.T) {
	inner := sql.Concat(sql.Value(1), sql.Raw(","), sql.Value(2))
	outer := sql.Concat(sql.Raw("SELECT * FROM t WHERE x IN ("), inner, sql.Raw(")"))
	require.Len(t, outer.Fragments(), 5)

	query, params, err := sql.Render(outer)
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM t WHERE x IN ($1,$2)", query)
	require.Equal(t, []any{1, 2}, params)
}
