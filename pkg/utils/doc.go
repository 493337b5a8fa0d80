// Package utils provides small helpers shared across the pgkeeper codebase:
// shell quoting for commands run on the server host and pointer construction
// for optional values.
package utils
