package migration

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a dotted numeric migration version such as "1", "1.2" or "2_1".
// Parts compare numerically; missing trailing parts compare as zero, so
// "1" and "1.0" are the same version.
type Version struct {
	parts []uint64
}

// ParseVersion parses a version token. Underscores are accepted as
// separators and leading zeros are ignored.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, fmt.Errorf("%w: empty version", ErrInvalidVersion)
	}

	fields := strings.Split(strings.ReplaceAll(s, "_", "."), ".")
	parts := make([]uint64, len(fields))

	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 64)
		if f == "" || err != nil {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}

		parts[i] = n
	}

	return Version{parts: trimZeros(parts)}, nil
}

// MustParseVersion is like ParseVersion but panics on error. Intended for tests and constants.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}

	return v
}

// Compare returns -1, 0 or +1 depending on whether v is lower than, equal to
// or higher than o.
func (v Version) Compare(o Version) int {
	n := max(len(v.parts), len(o.parts))

	for i := range n {
		a, b := v.part(i), o.part(i)

		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}

	return 0
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// IsZero reports whether v is the zero Version (never parsed).
func (v Version) IsZero() bool { return len(v.parts) == 0 }

// String returns the canonical dotted form, e.g. "1.2".
func (v Version) String() string {
	if v.IsZero() {
		return ""
	}

	s := make([]string, len(v.parts))
	for i, p := range v.parts {
		s[i] = strconv.FormatUint(p, 10)
	}

	return strings.Join(s, ".")
}

func (v Version) part(i int) uint64 {
	if i < len(v.parts) {
		return v.parts[i]
	}

	return 0
}

// trimZeros drops trailing zero parts so equal versions share one canonical form.
// A version consisting only of zeros keeps a single part.
func trimZeros(parts []uint64) []uint64 {
	end := len(parts)
	for end > 1 && parts[end-1] == 0 {
		end--
	}

	return parts[:end]
}
