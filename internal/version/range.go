package version

import (
	"fmt"
	"strings"
)

// Range is a version interval. A range without High is open ended
// ("1.0.0" means every version from 1.0.0 upwards).
type Range struct {
	Low           Version
	High          *Version
	LowExclusive  bool
	HighExclusive bool
}

// Exact returns the single-version range [v,v].
func Exact(v Version) Range {
	high := v
	return Range{Low: v, High: &high}
}

// AtLeast returns the open-ended range starting at v.
func AtLeast(v Version) Range {
	return Range{Low: v}
}

// ParseRange parses "[a,b]", "[a,b)", "(a,b]", "(a,b)" or a bare version.
func ParseRange(value string) (Range, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Range{}, fmt.Errorf("empty version range")
	}
	first := trimmed[0]
	if first != '[' && first != '(' {
		low, err := Parse(trimmed)
		if err != nil {
			return Range{}, err
		}
		return AtLeast(low), nil
	}
	last := trimmed[len(trimmed)-1]
	if last != ']' && last != ')' {
		return Range{}, fmt.Errorf("invalid version range %q: missing closing bracket", value)
	}
	parts := strings.Split(trimmed[1:len(trimmed)-1], ",")
	if len(parts) != 2 {
		return Range{}, fmt.Errorf("invalid version range %q: expected two endpoints", value)
	}
	low, err := Parse(parts[0])
	if err != nil {
		return Range{}, fmt.Errorf("invalid version range %q: %w", value, err)
	}
	high, err := Parse(parts[1])
	if err != nil {
		return Range{}, fmt.Errorf("invalid version range %q: %w", value, err)
	}
	if high.Less(low) {
		return Range{}, fmt.Errorf("invalid version range %q: high endpoint below low endpoint", value)
	}
	return Range{
		Low:           low,
		High:          &high,
		LowExclusive:  first == '(',
		HighExclusive: last == ')',
	}, nil
}

// Includes reports whether v falls inside the range.
func (r Range) Includes(v Version) bool {
	c := v.Compare(r.Low)
	if c < 0 || (c == 0 && r.LowExclusive) {
		return false
	}
	if r.High == nil {
		return true
	}
	c = v.Compare(*r.High)
	return c < 0 || (c == 0 && !r.HighExclusive)
}

// IsExact reports whether the range selects exactly one version.
func (r Range) IsExact() bool {
	return r.High != nil && !r.LowExclusive && !r.HighExclusive && r.Low.Equal(*r.High)
}

func (r Range) String() string {
	if r.High == nil {
		return r.Low.String()
	}
	open, closing := "[", "]"
	if r.LowExclusive {
		open = "("
	}
	if r.HighExclusive {
		closing = ")"
	}
	return open + r.Low.String() + "," + r.High.String() + closing
}
