// Package compare provides small generic helpers for implementing Equal
// methods without repeating nil-check and slice-walk boilerplate.
package compare

// NilCheck performs a nil check on two pointers and returns whether they are
// equal and whether more comparison checks are needed.
//
// Example:
//
//	func (r *HBARule) Equal(other *HBARule) bool {
//	    if eq, more := compare.NilCheck(r, other); !more {
//	        return eq
//	    }
//	    // Continue with field comparisons...
//	}
func NilCheck[T any](a, b *T) (equal bool, needsMoreChecks bool) {
	if a == nil && b == nil {
		return true, false
	}
	if a == nil || b == nil {
		return false, false
	}
	return false, true
}

// Slices compares two slices element-wise using an equality function.
// Both length and order must match.
func Slices[T any](a, b []T, equalFunc func(T, T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalFunc(a[i], b[i]) {
			return false
		}
	}
	return true
}
