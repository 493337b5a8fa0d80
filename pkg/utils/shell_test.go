package utils_test

import (
	"testing"

	. "github.com/pseudomuto/pgkeeper/pkg/utils"
	"github.com/stretchr/testify/require"
)

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "foo", want: `"foo"`},
		{in: "/tmp/foo bar", want: `"/tmp/foo bar"`},
		{in: `say "hi"`, want: `"say \"hi\""`},
		{in: `a\b`, want: `"a\\b"`},
		{in: "$HOME", want: `"\$HOME"`},
		{in: "`id`", want: "\"\\`id\\`\""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, ShellQuote(tt.in))
		})
	}
}

func TestPtr(t *testing.T) {
	n := Ptr(42)
	require.Equal(t, 42, *n)

	s := Ptr("x")
	require.Equal(t, "x", *s)
}
