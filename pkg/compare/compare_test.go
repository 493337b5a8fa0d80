package compare_test

import (
	"testing"

	"github.com/pseudomuto/pgkeeper/pkg/compare"
	"github.com/stretchr/testify/require"
)

func TestNilCheck(t *testing.T) {
	one, two := 1, 2

	tests := []struct {
		name      string
		a, b      *int
		equal     bool
		needsMore bool
	}{
		{name: "both nil", equal: true},
		{name: "first nil", b: &one},
		{name: "second nil", a: &one},
		{name: "both set", a: &one, b: &two, needsMore: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eq, more := compare.NilCheck(tt.a, tt.b)
			require.Equal(t, tt.equal, eq)
			require.Equal(t, tt.needsMore, more)
		})
	}
}

func TestSlices(t *testing.T) {
	eq := func(a, b string) bool { return a == b }

	require.True(t, compare.Slices(nil, nil, eq))
	require.True(t, compare.Slices([]string{"a", "b"}, []string{"a", "b"}, eq))
	require.False(t, compare.Slices([]string{"a"}, []string{"a", "b"}, eq))
	require.False(t, compare.Slices([]string{"a", "b"}, []string{"b", "a"}, eq))
}
