package adapter

import "time"

// String returns the column at i as a string, or "" when the column is NULL,
// absent, or not textual.
func (r Row) String(i int) string {
	if s := r.NullString(i); s != nil {
		return *s
	}
	return ""
}

// NullString returns the column at i as a *string, nil for NULL or absent.
func (r Row) NullString(i int) *string {
	if i < 0 || i >= len(r) || r[i] == nil {
		return nil
	}
	switch t := r[i].(type) {
	case string:
		return &t
	case []byte:
		s := string(t)
		return &s
	default:
		return nil
	}
}

// Int returns the column at i as an int64, 0 when NULL or non-numeric.
func (r Row) Int(i int) int64 {
	if v := r.NullInt(i); v != nil {
		return *v
	}
	return 0
}

// NullInt returns the column at i as a *int64, nil for NULL or absent.
// Integer widths vary by driver, so all of them are accepted.
func (r Row) NullInt(i int) *int64 {
	if i < 0 || i >= len(r) || r[i] == nil {
		return nil
	}
	var v int64
	switch t := r[i].(type) {
	case int64:
		v = t
	case int32:
		v = int64(t)
	case int16:
		v = int64(t)
	case int8:
		v = int64(t)
	case int:
		v = int64(t)
	case uint32:
		v = int64(t)
	case uint64:
		v = int64(t)
	case float64:
		v = int64(t)
	default:
		return nil
	}
	return &v
}

// Bool returns the column at i as a bool, false when NULL or not boolean.
func (r Row) Bool(i int) bool {
	if i < 0 || i >= len(r) || r[i] == nil {
		return false
	}
	b, ok := r[i].(bool)
	return ok && b
}

// OID returns the column at i as a PostgreSQL object identifier, 0 when NULL.
func (r Row) OID(i int) uint32 {
	if i < 0 || i >= len(r) || r[i] == nil {
		return 0
	}
	switch t := r[i].(type) {
	case uint32:
		return t
	case int64:
		return uint32(t)
	case int32:
		return uint32(t)
	case int:
		return uint32(t)
	default:
		return 0
	}
}

// Time returns the column at i as a *time.Time, nil for NULL or absent.
func (r Row) Time(i int) *time.Time {
	if i < 0 || i >= len(r) || r[i] == nil {
		return nil
	}
	if t, ok := r[i].(time.Time); ok {
		return &t
	}
	return nil
}

// Strings returns the column at i as a string slice (text array columns).
func (r Row) Strings(i int) []string {
	if i < 0 || i >= len(r) || r[i] == nil {
		return nil
	}
	switch t := r[i].(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
