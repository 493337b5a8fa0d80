package backup

import "strings"

// ShellEnv describes the shell environment on the server host. The zero value
// is a POSIX shell with "/" separators.
type ShellEnv struct{}

// JoinPath joins path segments with "/", skipping empty segments and trimming
// trailing separators. Absolute paths and gs:// URLs keep their prefixes.
func (ShellEnv) JoinPath(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		part = strings.TrimRight(part, "/")
		segments = append(segments, part)
	}
	return strings.Join(segments, "/")
}
