package catalog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Version is a dot-separated numeric version. It tracks major, minor, build
// and revision components, left to right; absent components compare as zero,
// so "1.2" equals "1.2.0.0".
type Version struct {
	parts []int
}

var serverVersionPattern = regexp.MustCompile(`PostgreSQL ([0-9]+(?:\.[0-9]+)*)`)

// ParseVersion parses a dot-separated numeric version string.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, errors.New("empty version string")
	}

	fields := strings.Split(s, ".")
	parts := make([]int, len(fields))
	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 {
			return Version{}, errors.Errorf("unsupported version string %q: only dot-separated numbers are supported", s)
		}
		parts[i] = n
	}
	return Version{parts: parts}, nil
}

// MustParseVersion is like ParseVersion but panics on error. Use for
// constants only.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseServerVersion extracts the server version from the banner returned by
// version(), e.g. "PostgreSQL 10.12 on x86_64-pc-linux-gnu, compiled by...".
func ParseServerVersion(banner string) (Version, error) {
	match := serverVersionPattern.FindStringSubmatch(banner)
	if match == nil {
		return Version{}, errors.Errorf("unrecognized server version banner %q", banner)
	}
	return ParseVersion(match[1])
}

func (v Version) part(i int) int {
	if i >= len(v.parts) {
		return 0
	}
	return v.parts[i]
}

// Major returns the first version component.
func (v Version) Major() int { return v.part(0) }

// Minor returns the second version component.
func (v Version) Minor() int { return v.part(1) }

// Build returns the third version component.
func (v Version) Build() int { return v.part(2) }

// Revision returns the fourth version component.
func (v Version) Revision() int { return v.part(3) }

// Compare returns -1, 0 or 1 when v is less than, equal to, or greater than
// other. Trailing zero components are insignificant.
func (v Version) Compare(other Version) int {
	size := max(len(v.parts), len(other.parts))
	for i := 0; i < size; i++ {
		a, b := v.part(i), other.part(i)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// Equal reports whether the versions compare equal.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// Less reports whether v is strictly older than other.
func (v Version) Less(other Version) bool { return v.Compare(other) == -1 }

// String renders the version with its original number of components.
func (v Version) String() string {
	fields := make([]string, len(v.parts))
	for i, p := range v.parts {
		fields[i] = strconv.Itoa(p)
	}
	return strings.Join(fields, ".")
}
