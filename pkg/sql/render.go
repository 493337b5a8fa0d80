package sql

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Render produces the final query text and the ordered bind-parameter list
// for a fragment. Literals become $1..$n placeholders in composition order;
// identifiers are quoted with embedded double quotes doubled.
func Render(c Composable) (string, []any, error) {
	if c == nil {
		return "", nil, compositionErrorf("cannot render a nil fragment")
	}

	var (
		query  strings.Builder
		params []any
	)
	for _, frag := range c.Fragments() {
		switch t := frag.(type) {
		case SQL:
			query.WriteString(string(t))
		case SafeLiteral:
			query.WriteString(string(t))
		case Identifier:
			query.WriteString(QuoteIdentifier(string(t)))
		case Literal:
			params = append(params, t.v)
			query.WriteByte('$')
			query.WriteString(strconv.Itoa(len(params)))
		default:
			return "", nil, compositionErrorf("unknown fragment type %T", frag)
		}
	}
	return query.String(), params, nil
}

// RenderInline produces fully inlined statement text with literal values
// quoted and escaped deterministically. It serves script generation and
// utility statements (CREATE, ALTER, DROP), which the server refuses to
// execute with bind parameters. Queries and DML should go through Render so
// values stay out of the statement text.
func RenderInline(c Composable) (string, error) {
	if c == nil {
		return "", compositionErrorf("cannot render a nil fragment")
	}

	var query strings.Builder
	for _, frag := range c.Fragments() {
		switch t := frag.(type) {
		case SQL:
			query.WriteString(string(t))
		case SafeLiteral:
			query.WriteString(string(t))
		case Identifier:
			query.WriteString(QuoteIdentifier(string(t)))
		case Literal:
			lit, err := quoteValue(t.v)
			if err != nil {
				return "", err
			}
			query.WriteString(lit)
		default:
			return "", compositionErrorf("unknown fragment type %T", frag)
		}
	}
	return query.String(), nil
}

// InlineFormat composes a template and renders it inline in one step. Use it
// for utility statements that need literal values but cannot carry bind
// parameters.
func InlineFormat(template string, args Args) (SQL, error) {
	c, err := Format(template, args)
	if err != nil {
		return "", err
	}
	text, err := RenderInline(c)
	if err != nil {
		return "", err
	}
	return SQL(text), nil
}

// MustInlineFormat is like InlineFormat but panics on error. Safe for static
// templates whose argument values are strings, numbers, booleans or times.
func MustInlineFormat(template string, args Args) SQL {
	s, err := InlineFormat(template, args)
	if err != nil {
		panic(err)
	}
	return s
}

// QuoteIdentifier escapes name as a PostgreSQL identifier: embedded double
// quotes are doubled and the result is wrapped in double quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteValue renders a literal value as PostgreSQL constant text.
// Strings containing backslashes use the E'' form so the escape rules are
// explicit regardless of the server's standard_conforming_strings setting.
func quoteValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quoteString(t), nil
	case []byte:
		return quoteString(string(t)), nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t), nil
	case float32, float64:
		return fmt.Sprintf("%v", t), nil
	case time.Time:
		return quoteString(t.Format("2006-01-02 15:04:05.999999Z07:00")), nil
	default:
		return "", compositionErrorf("cannot inline literal of type %T", v)
	}
}

func quoteString(s string) string {
	quoted := strings.ReplaceAll(s, "'", "''")
	if strings.Contains(quoted, `\`) {
		return "E'" + strings.ReplaceAll(quoted, `\`, `\\`) + "'"
	}
	return "'" + quoted + "'"
}
