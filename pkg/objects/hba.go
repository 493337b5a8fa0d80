package objects

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/catalog"
	"github.com/pseudomuto/pgkeeper/pkg/compare"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
	"github.com/pseudomuto/pgkeeper/pkg/utils"
)

type (
	// HBARule is one line of the host-based authentication file. Comment and
	// blank lines keep their text but carry no parsed fields. Two rules are
	// equal when their whitespace-normalized text matches, so indentation
	// differences never matter.
	HBARule struct {
		line string

		connType    string
		database    string
		user        string
		address     string
		mask        string
		authMethod  string
		authOptions string
	}

	// HBARules is the ordered content of the authentication file. Mutations
	// stay local until Alter writes the file back through the server.
	HBARules struct {
		exec  Executor
		rules []*HBARule
	}
)

// ParseHBARule parses one authentication file line. Anything that is blank
// or starts with # is kept verbatim as a comment rule.
func ParseHBARule(line string) *HBARule {
	r := &HBARule{line: line}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return r
	}
	if i := strings.Index(trimmed, "#"); i >= 0 {
		trimmed = trimmed[:i]
	}

	fields := strings.Fields(trimmed)
	if len(fields) < 4 {
		return r
	}
	r.connType = fields[0]
	r.database = fields[1]
	r.user = fields[2]

	rest := fields[3:]
	if r.connType != "local" {
		r.address = rest[0]
		rest = rest[1:]
		// A second token without "=" before the method is a netmask spelled
		// separately from the address.
		if len(rest) >= 2 && !strings.Contains(rest[0], "=") && !strings.Contains(rest[1], "=") {
			r.mask = rest[0]
			rest = rest[1:]
		}
	}
	if len(rest) == 0 {
		return r
	}
	r.authMethod = rest[0]
	r.authOptions = strings.Join(rest[1:], " ")
	return r
}

// NewHBARule composes a rule from its fields. Pass empty mask, or empty
// options, to omit them.
func NewHBARule(connType, database, user, address, mask, authMethod, authOptions string) *HBARule {
	fields := []string{connType, database, user}
	if connType != "local" && address != "" {
		fields = append(fields, address)
		if mask != "" {
			fields = append(fields, mask)
		}
	}
	fields = append(fields, authMethod)
	if authOptions != "" {
		fields = append(fields, authOptions)
	}
	return ParseHBARule(strings.Join(fields, " "))
}

func (r *HBARule) ConnType() string { return r.connType }
func (r *HBARule) Database() string { return r.database }
func (r *HBARule) User() string { return r.user }
func (r *HBARule) Address() string { return r.address }
func (r *HBARule) Mask() string { return r.mask }
func (r *HBARule) AuthMethod() string { return r.authMethod }
func (r *HBARule) AuthOptions() string { return r.authOptions }

// IsComment reports whether the line carries no rule.
func (r *HBARule) IsComment() bool { return r.connType == "" }

// String returns the line as it appears in the file.
func (r *HBARule) String() string { return r.line }

func (r *HBARule) normalized() string { return strings.Join(strings.Fields(r.line), " ") }

// Equal reports whitespace-insensitive equality with other.
func (r *HBARule) Equal(other *HBARule) bool {
	if eq, more := compare.NilCheck(r, other); !more {
		return eq
	}
	return r.normalized() == other.normalized()
}

// NewHBARules loads the authentication file through the server.
func NewHBARules(ctx context.Context, exec Executor) (*HBARules, error) {
	h := &HBARules{exec: exec}
	if err := h.Refresh(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// Rules returns the lines in file order, comments included.
func (h *HBARules) Rules() []*HBARule { return h.rules }

// Len returns the number of lines.
func (h *HBARules) Len() int { return len(h.rules) }

// Index returns the position of the first line equal to rule, or -1.
func (h *HBARules) Index(rule *HBARule) int {
	for i, r := range h.rules {
		if r.Equal(rule) {
			return i
		}
	}
	return -1
}

// Contains reports whether a line equal to rule is present.
func (h *HBARules) Contains(rule *HBARule) bool { return h.Index(rule) >= 0 }

// Equal reports whether both files hold the same lines in the same order.
func (h *HBARules) Equal(other *HBARules) bool {
	if eq, more := compare.NilCheck(h, other); !more {
		return eq
	}
	return compare.Slices(h.rules, other.rules, func(a, b *HBARule) bool { return a.Equal(b) })
}

// Append adds rule at the end of the file.
func (h *HBARules) Append(rule *HBARule) { h.rules = append(h.rules, rule) }

// Insert places rule at position i, shifting later lines down.
func (h *HBARules) Insert(i int, rule *HBARule) error {
	if i < 0 || i > len(h.rules) {
		return errors.Errorf("hba: insert position %d out of range [0, %d]", i, len(h.rules))
	}
	h.rules = append(h.rules, nil)
	copy(h.rules[i+1:], h.rules[i:])
	h.rules[i] = rule
	return nil
}

// Remove deletes the first line equal to rule.
func (h *HBARules) Remove(rule *HBARule) error {
	i := h.Index(rule)
	if i < 0 {
		return &NotFoundError{Kind: "HBA RULE", Key: rule.normalized()}
	}
	h.rules = append(h.rules[:i], h.rules[i+1:]...)
	return nil
}

// Refresh discards local edits and reloads the file through the server.
func (h *HBARules) Refresh(ctx context.Context) error {
	query, err := catalog.Query(catalog.HBARules, h.exec.ServerVersion())
	if err != nil {
		return err
	}
	rows, err := h.exec.Execute(ctx, sql.Raw(query))
	if err != nil {
		return err
	}
	rules := make([]*HBARule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, ParseHBARule(row.String(0)))
	}
	// pg_read_file yields a trailing empty line for the file's final newline.
	if n := len(rules); n > 0 && strings.TrimSpace(rules[n-1].line) == "" {
		rules = rules[:n-1]
	}
	h.rules = rules
	return nil
}

// Alter writes the local lines back to the authentication file. The previous
// content is first copied to a sibling .bak file on the server host. The
// change takes effect after a configuration reload.
func (h *HBARules) Alter(ctx context.Context) error {
	rows, err := h.exec.Execute(ctx, sql.Raw("SELECT current_setting('hba_file')"))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.New("hba: server did not report the hba_file setting")
	}
	path := rows[0].String(0)

	backup := "cp " + utils.ShellQuote(path) + " " + utils.ShellQuote(path+".bak")
	if _, err := h.exec.RunOSCommand(ctx, backup); err != nil {
		return errors.Wrap(err, "hba: backing up the authentication file")
	}

	if _, err := h.exec.Execute(ctx, sql.Raw(
		"CREATE TEMPORARY TABLE hba_stage (id serial, line text)",
	)); err != nil {
		return err
	}
	defer h.exec.Execute(ctx, sql.Raw("DROP TABLE hba_stage")) //nolint:errcheck

	for _, rule := range h.rules {
		stmt := sql.MustFormat("INSERT INTO hba_stage (line) VALUES ({line})", sql.Args{
			"line": sql.Value(rule.line),
		})
		if _, err := h.exec.Execute(ctx, stmt); err != nil {
			return err
		}
	}

	// COPY TO supports no bind parameters, so the target path is inlined
	// with deterministic quoting.
	stmt := sql.MustInlineFormat("COPY (SELECT line FROM hba_stage ORDER BY id) TO {path}", sql.Args{
		"path": sql.Value(path),
	})
	if _, err := h.exec.Execute(ctx, stmt); err != nil {
		return err
	}
	return nil
}
