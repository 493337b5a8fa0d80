package sql

import (
	"fmt"
	"strings"
)

type (
	// Composable is an immutable SQL fragment that can be combined with other
	// fragments and rendered into a parameterized query. Implementations are
	// SQL, Identifier, Literal, SafeLiteral and Composed.
	Composable interface {
		// Fragments returns the flattened sequence of leaf fragments.
		Fragments() []Composable

		fmt.Stringer
	}

	// SQL is a fragment of trusted raw statement text. It must never be built
	// from user input; untrusted values belong in Identifier or Literal.
	SQL string

	// Identifier is an object name (table, role, schema, ...) rendered as a
	// quoted PostgreSQL identifier. Embedded double quotes are doubled, so any
	// value round-trips safely.
	Identifier string

	// Literal is a value passed to the driver as a bind parameter. It renders
	// as a positional placeholder and never appears in the query text.
	Literal struct {
		v any
	}

	// SafeLiteral is a constant rendered inline into the query text. Values
	// can only be produced through Safe, which restricts them to numeric and
	// boolean constants with deterministic formatting.
	SafeLiteral string

	// Composed is a sequence of fragments rendered in order.
	Composed struct {
		parts []Composable
	}

	// Args names the fragments substituted into a Format template.
	Args map[string]Composable

	// CompositionError reports invalid input to the composition layer. It is
	// raised at build time, before any statement reaches the server.
	CompositionError struct {
		msg string
	}
)

func (e *CompositionError) Error() string { return "sql composition: " + e.msg }

func compositionErrorf(format string, args ...any) *CompositionError {
	return &CompositionError{msg: fmt.Sprintf(format, args...)}
}

// Raw returns a trusted raw text fragment.
func Raw(text string) SQL { return SQL(text) }

// Ident returns a quoted identifier fragment for name.
func Ident(name string) Identifier { return Identifier(name) }

// Value returns a bind-parameter fragment carrying v.
func Value(v any) Literal { return Literal{v: v} }

// Safe returns an inline constant fragment for v. Only integers, floats and
// booleans are accepted; anything else is a CompositionError.
func Safe(v any) (SafeLiteral, error) {
	switch t := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return SafeLiteral(fmt.Sprintf("%d", t)), nil
	case float32, float64:
		return SafeLiteral(fmt.Sprintf("%v", t)), nil
	case bool:
		if t {
			return SafeLiteral("true"), nil
		}
		return SafeLiteral("false"), nil
	default:
		return "", compositionErrorf("unsupported safe literal type %T", v)
	}
}

// Fragments implements Composable.
func (s SQL) Fragments() []Composable { return []Composable{s} }

// String implements fmt.Stringer.
func (s SQL) String() string { return fmt.Sprintf("SQL(%q)", string(s)) }

// Fragments implements Composable.
func (i Identifier) Fragments() []Composable { return []Composable{i} }

// String implements fmt.Stringer.
func (i Identifier) String() string { return fmt.Sprintf("Identifier(%q)", string(i)) }

// Fragments implements Composable.
func (l Literal) Fragments() []Composable { return []Composable{l} }

// String implements fmt.Stringer.
func (l Literal) String() string { return fmt.Sprintf("Literal(%v)", l.v) }

// Fragments implements Composable.
func (s SafeLiteral) Fragments() []Composable { return []Composable{s} }

// String implements fmt.Stringer.
func (s SafeLiteral) String() string { return fmt.Sprintf("SafeLiteral(%s)", string(s)) }

// Fragments implements Composable by flattening nested Composed parts.
func (c Composed) Fragments() []Composable {
	out := make([]Composable, 0, len(c.parts))
	for _, p := range c.parts {
		out = append(out, p.Fragments()...)
	}
	return out
}

// String implements fmt.Stringer.
func (c Composed) String() string {
	parts := make([]string, len(c.parts))
	for i, p := range c.parts {
		parts[i] = p.String()
	}
	return "Composed(" + strings.Join(parts, " + ") + ")"
}

// Len returns the number of leaf fragments.
func (c Composed) Len() int { return len(c.Fragments()) }

// Concat combines fragments into a single Composed sequence, in order.
func Concat(parts ...Composable) Composed {
	out := make([]Composable, 0, len(parts))
	for _, p := range parts {
		out = append(out, p.Fragments()...)
	}
	return Composed{parts: out}
}

// Join combines fragments with sep between each pair. Identifiers are never
// merged without an explicit separator, so FQNs are built as
// Join(Raw("."), Ident(schema), Ident(name)).
func Join(sep Composable, parts ...Composable) Composed {
	out := make([]Composable, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			out = append(out, sep.Fragments()...)
		}
		out = append(out, p.Fragments()...)
	}
	return Composed{parts: out}
}

// Format substitutes named fragments into {name} slots of the template and
// returns the resulting sequence. Literal braces are escaped by doubling
// ("{{", "}}"). A slot without a matching argument, a nil fragment, or an
// unterminated slot is a CompositionError.
func Format(template string, args Args) (Composed, error) {
	var (
		parts []Composable
		text  strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, SQL(text.String()))
			text.Reset()
		}
	}
	for i := 0; i < len(template); i++ {
		switch template[i] {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				text.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				return Composed{}, compositionErrorf("unterminated placeholder in %q", template)
			}
			name := template[i+1 : i+end]
			frag, ok := args[name]
			if !ok {
				return Composed{}, compositionErrorf("no fragment for placeholder %q", name)
			}
			if frag == nil {
				return Composed{}, compositionErrorf("nil fragment for placeholder %q", name)
			}
			flush()
			parts = append(parts, frag.Fragments()...)
			i += end
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				text.WriteByte('}')
				i++
				continue
			}
			return Composed{}, compositionErrorf("unmatched '}' in %q", template)
		default:
			text.WriteByte(template[i])
		}
	}
	flush()
	return Composed{parts: parts}, nil
}

// MustFormat is Format for static templates known to be well formed.
// It panics on composition errors.
func MustFormat(template string, args Args) Composed {
	c, err := Format(template, args)
	if err != nil {
		panic(err)
	}
	return c
}
