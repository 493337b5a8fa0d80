package utils

import "strings"

var shellEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"`", "\\`",
	`$`, `\$`,
)

// ShellQuote wraps s in double quotes, escaping the characters the shell
// would otherwise interpret inside them.
func ShellQuote(s string) string {
	return `"` + shellEscaper.Replace(s) + `"`
}
