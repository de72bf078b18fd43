package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Pattern is the accepted version grammar. Missing segments default to zero.
const Pattern = `(\d+)(\.(\d+)(\.(\d+)(\.([-_0-9A-Za-z]+))?)?)?`

var grammar = regexp.MustCompile(`^` + Pattern + `$`)

// Version is a major.minor.micro version with an optional qualifier.
type Version struct {
	Major     uint64
	Minor     uint64
	Micro     uint64
	Qualifier string
}

// Segment names the version position a change requires to be bumped.
type Segment int

const (
	SegmentNone Segment = iota
	SegmentMicro
	SegmentMinor
	SegmentMajor
)

func (s Segment) String() string {
	switch s {
	case SegmentMajor:
		return "major"
	case SegmentMinor:
		return "minor"
	case SegmentMicro:
		return "micro"
	default:
		return "none"
	}
}

// New constructs a version without qualifier.
func New(major, minor, micro uint64) Version {
	return Version{Major: major, Minor: minor, Micro: micro}
}

// Parse parses a version string using the package grammar.
func Parse(value string) (Version, error) {
	trimmed := strings.TrimSpace(value)
	match := grammar.FindStringSubmatch(trimmed)
	if match == nil {
		return Version{}, fmt.Errorf("invalid version %q", value)
	}
	var v Version
	var err error
	if v.Major, err = parseSegment(match[1]); err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", value, err)
	}
	if v.Minor, err = parseSegment(match[3]); err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", value, err)
	}
	if v.Micro, err = parseSegment(match[5]); err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", value, err)
	}
	v.Qualifier = match[7]
	return v, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(value string) Version {
	v, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseOptional returns nil for blank input.
func ParseOptional(value string) (*Version, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	v, err := Parse(value)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseSegment(raw string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

// String renders the version with all three numeric segments.
func (v Version) String() string {
	base := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
	if v.Qualifier != "" {
		return base + "." + v.Qualifier
	}
	return base
}

func (v Version) core() *semver.Version {
	return semver.New(v.Major, v.Minor, v.Micro, "", "")
}

// Compare orders versions numerically, then by qualifier. A version without
// qualifier sorts before the same version with one.
func (v Version) Compare(other Version) int {
	if c := v.core().Compare(other.core()); c != 0 {
		return c
	}
	return strings.Compare(v.Qualifier, other.Qualifier)
}

// Equal reports whether both versions are identical, qualifier included.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Bump increments the requested segment and resets the lower ones. The
// qualifier is dropped for any real bump.
func (v Version) Bump(segment Segment) Version {
	var next semver.Version
	switch segment {
	case SegmentMajor:
		next = v.core().IncMajor()
	case SegmentMinor:
		next = v.core().IncMinor()
	case SegmentMicro:
		next = v.core().IncPatch()
	default:
		return v
	}
	return Version{Major: next.Major(), Minor: next.Minor(), Micro: next.Patch()}
}

// WithoutQualifier strips the qualifier.
func (v Version) WithoutQualifier() Version {
	v.Qualifier = ""
	return v
}

// EqualPtr compares optional versions; two nils are equal.
func EqualPtr(a, b *Version) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	default:
		return a.Equal(*b)
	}
}

// Ptr returns a pointer to a copy of v.
func Ptr(v Version) *Version {
	return &v
}
