package services

import (
	"fmt"
	"strconv"
	"strings"

	version "github.com/hashicorp/go-version"
)

// NuGetVersion is a package version with up to four numeric segments and an optional prerelease label.
type NuGetVersion struct {
	v *version.Version
}

// ParseVersion parses a NuGet version string.
func ParseVersion(s string) (*NuGetVersion, error) {
	v, err := version.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", s, err)
	}
	if len(v.Segments64()) > 4 {
		return nil, fmt.Errorf("invalid version %q: more than four segments", s)
	}
	return &NuGetVersion{v: v}, nil
}

// MustParseVersion parses a version and panics on error.
func MustParseVersion(s string) *NuGetVersion {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare returns -1, 0 or 1
func (n *NuGetVersion) Compare(other *NuGetVersion) int {
	return n.v.Compare(other.v)
}

// GreaterThan reports whether n > other
func (n *NuGetVersion) GreaterThan(other *NuGetVersion) bool {
	return n.Compare(other) > 0
}

// IsPrerelease reports whether the version carries a prerelease label
func (n *NuGetVersion) IsPrerelease() bool {
	return n.v.Prerelease() != ""
}

// Original returns the version as it was parsed
func (n *NuGetVersion) Original() string {
	return n.v.Original()
}

// String returns the normalized form: three segments, a fourth one only when it is not zero, and
// the prerelease label. Build metadata is dropped. This is also the published package version.
func (n *NuGetVersion) String() string {
	segments := n.v.Segments64()
	if len(segments) == 4 && segments[3] == 0 {
		segments = segments[:3]
	}
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = strconv.FormatInt(s, 10)
	}
	out := strings.Join(parts, ".")
	if pre := n.v.Prerelease(); pre != "" {
		out += "-" + pre
	}
	return out
}

// VersionRange is a NuGet version interval: 1.0 (>= 1.0), [1.0,), (1.0,), [1.0], (,1.0], [1.0,2.0).
// A nil bound is unbounded.
type VersionRange struct {
	Min          *NuGetVersion
	MinInclusive bool
	Max          *NuGetVersion
	MaxInclusive bool
	original     string
}

// ParseVersionRange parses NuGet range notation.
func ParseVersionRange(s string) (*VersionRange, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return nil, fmt.Errorf("empty version range")
	}

	r := &VersionRange{original: text}
	if text[0] != '[' && text[0] != '(' {
		v, err := ParseVersion(text)
		if err != nil {
			return nil, err
		}
		r.Min, r.MinInclusive = v, true
		return r, nil
	}

	last := text[len(text)-1]
	if len(text) < 3 || (last != ']' && last != ')') {
		return nil, fmt.Errorf("invalid version range %q", s)
	}
	r.MinInclusive = text[0] == '['
	r.MaxInclusive = last == ']'
	inner := text[1 : len(text)-1]

	bounds := strings.Split(inner, ",")
	switch len(bounds) {
	case 1:
		// [1.0] is the only single-version form
		if !r.MinInclusive || !r.MaxInclusive {
			return nil, fmt.Errorf("invalid version range %q", s)
		}
		v, err := ParseVersion(bounds[0])
		if err != nil {
			return nil, err
		}
		r.Min, r.Max = v, v
		return r, nil
	case 2:
	default:
		return nil, fmt.Errorf("invalid version range %q", s)
	}

	if lower := strings.TrimSpace(bounds[0]); lower != "" {
		v, err := ParseVersion(lower)
		if err != nil {
			return nil, err
		}
		r.Min = v
	} else {
		r.MinInclusive = false
	}
	if upper := strings.TrimSpace(bounds[1]); upper != "" {
		v, err := ParseVersion(upper)
		if err != nil {
			return nil, err
		}
		r.Max = v
	} else {
		r.MaxInclusive = false
	}

	if r.Min != nil && r.Max != nil {
		c := r.Min.Compare(r.Max)
		if c > 0 || (c == 0 && !(r.MinInclusive && r.MaxInclusive)) {
			return nil, fmt.Errorf("invalid version range %q: empty interval", s)
		}
	}
	return r, nil
}

// Satisfies reports whether v lies inside the range.
func (r *VersionRange) Satisfies(v *NuGetVersion) bool {
	if r.Min != nil {
		c := v.Compare(r.Min)
		if c < 0 || (c == 0 && !r.MinInclusive) {
			return false
		}
	}
	if r.Max != nil {
		c := v.Compare(r.Max)
		if c > 0 || (c == 0 && !r.MaxInclusive) {
			return false
		}
	}
	return true
}

// IsSubsetOf reports whether every version satisfying r also satisfies other.
func (r *VersionRange) IsSubsetOf(other *VersionRange) bool {
	if other.Min != nil {
		if r.Min == nil {
			return false
		}
		c := r.Min.Compare(other.Min)
		if c < 0 || (c == 0 && r.MinInclusive && !other.MinInclusive) {
			return false
		}
	}
	if other.Max != nil {
		if r.Max == nil {
			return false
		}
		c := r.Max.Compare(other.Max)
		if c > 0 || (c == 0 && r.MaxInclusive && !other.MaxInclusive) {
			return false
		}
	}
	return true
}

// MinVersion returns the lower bound, nil when unbounded
func (r *VersionRange) MinVersion() *NuGetVersion {
	return r.Min
}

func (r *VersionRange) String() string {
	return r.original
}
