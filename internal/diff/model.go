package diff

import (
	"fmt"
	"sort"
	"strings"

	"releasekit/internal/version"
)

// Delta is the kind of change a package went through.
type Delta string

const (
	DeltaAdded     Delta = "ADDED"
	DeltaRemoved   Delta = "REMOVED"
	DeltaModified  Delta = "MODIFIED"
	DeltaUnchanged Delta = "UNCHANGED"
)

// ParseDelta accepts any casing of the four delta names.
func ParseDelta(value string) (Delta, error) {
	switch d := Delta(strings.ToUpper(strings.TrimSpace(value))); d {
	case DeltaAdded, DeltaRemoved, DeltaModified, DeltaUnchanged:
		return d, nil
	case "":
		return DeltaUnchanged, nil
	default:
		return "", fmt.Errorf("unknown delta %q", value)
	}
}

// Severity ranks a package change by the version segment it requires to be
// bumped. Values are ordered: SeverityNone < SeverityMicro < SeverityMinor <
// SeverityMajor.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMicro
	SeverityMinor
	SeverityMajor
)

// ParseSeverity accepts any casing of NONE, MICRO, MINOR and MAJOR.
func ParseSeverity(value string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", "NONE":
		return SeverityNone, nil
	case "MICRO":
		return SeverityMicro, nil
	case "MINOR":
		return SeverityMinor, nil
	case "MAJOR":
		return SeverityMajor, nil
	default:
		return SeverityNone, fmt.Errorf("unknown severity %q", value)
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityMajor:
		return "MAJOR"
	case SeverityMinor:
		return "MINOR"
	case SeverityMicro:
		return "MICRO"
	default:
		return "NONE"
	}
}

// Segment maps a severity to the version segment it forces.
func (s Severity) Segment() version.Segment {
	switch s {
	case SeverityMajor:
		return version.SegmentMajor
	case SeverityMinor:
		return version.SegmentMinor
	case SeverityMicro:
		return version.SegmentMicro
	default:
		return version.SegmentNone
	}
}

// Package is one package-level change record.
type Package struct {
	Name             string
	OldVersion       *version.Version
	SuggestedVersion *version.Version
	OldRange         string
	SuggestedRange   string
	Delta            Delta
	Severity         Severity
	Imported         bool
	Exported         bool
	Suggestions      []version.Version
}

// Changed reports whether the record describes an actual change.
func (p Package) Changed() bool {
	return p.Delta != DeltaUnchanged
}

// Editable reports whether an operator may choose another version for the
// package. Import-only and removed packages are fixed.
func (p Package) Editable() bool {
	if p.Imported && !p.Exported {
		return false
	}
	if p.Delta == DeltaRemoved {
		return false
	}
	if p.Delta == DeltaModified && p.Severity == SeverityMicro {
		return true
	}
	return p.SuggestedVersion != nil
}

// NeedsMarker reports whether the package's version marker must be
// rewritten: exported, not removed, and either new or moved to a different
// version.
func (p Package) NeedsMarker() bool {
	if !p.Exported || p.Delta == DeltaRemoved || p.SuggestedVersion == nil {
		return false
	}
	if p.OldVersion == nil {
		return true
	}
	return !p.OldVersion.Equal(*p.SuggestedVersion)
}

// Result is the comparison outcome for one module.
type Result struct {
	Name             string
	OldVersion       *version.Version
	SuggestedVersion version.Version
	Suggestions      []version.Version
	Packages         []Package
}

// Changed reports whether the module's version moves.
func (r Result) Changed() bool {
	return r.OldVersion == nil || !r.OldVersion.Equal(r.SuggestedVersion)
}

// MaxSeverity is the highest severity across all package records.
func (r Result) MaxSeverity() Severity {
	highest := SeverityNone
	for _, pkg := range r.Packages {
		if pkg.Severity > highest {
			highest = pkg.Severity
		}
	}
	return highest
}

// MinimumVersion is the lowest version the package changes allow: the old
// version bumped by MaxSeverity. A new module has no minimum beyond its
// suggestion.
func (r Result) MinimumVersion() version.Version {
	if r.OldVersion == nil {
		return r.SuggestedVersion
	}
	return r.OldVersion.Bump(r.MaxSeverity().Segment())
}

// ChangedPackages returns packages with a delta other than UNCHANGED.
func (r Result) ChangedPackages() []Package {
	out := make([]Package, 0, len(r.Packages))
	for _, pkg := range r.Packages {
		if pkg.Changed() {
			out = append(out, pkg)
		}
	}
	return out
}

// Package looks up a package record by name.
func (r Result) Package(name string) (Package, bool) {
	for _, pkg := range r.Packages {
		if pkg.Name == name {
			return pkg, true
		}
	}
	return Package{}, false
}

// ModuleCandidates is the closed set an operator may pick the module version
// from: the old version, the suggestion and every suggested alternative.
func (r Result) ModuleCandidates() []version.Version {
	set := newCandidateSet()
	set.addPtr(r.OldVersion)
	set.add(r.SuggestedVersion)
	set.add(r.Suggestions...)
	return set.sorted()
}

// PackageCandidates is the closed set for one package: its own old and
// suggested versions plus every module-level candidate.
func (r Result) PackageCandidates(pkg Package) []version.Version {
	set := newCandidateSet()
	set.addPtr(pkg.OldVersion)
	set.addPtr(pkg.SuggestedVersion)
	set.add(pkg.Suggestions...)
	set.add(r.ModuleCandidates()...)
	return set.sorted()
}

// Clone deep-copies the result so callers can derive snapshots.
func (r Result) Clone() Result {
	out := r
	out.OldVersion = clonePtr(r.OldVersion)
	out.Suggestions = append([]version.Version(nil), r.Suggestions...)
	out.Packages = make([]Package, len(r.Packages))
	for i, pkg := range r.Packages {
		pkg.OldVersion = clonePtr(pkg.OldVersion)
		pkg.SuggestedVersion = clonePtr(pkg.SuggestedVersion)
		pkg.Suggestions = append([]version.Version(nil), pkg.Suggestions...)
		out.Packages[i] = pkg
	}
	return out
}

func clonePtr(v *version.Version) *version.Version {
	if v == nil {
		return nil
	}
	return version.Ptr(*v)
}

type candidateSet map[string]version.Version

func newCandidateSet() candidateSet { return candidateSet{} }

func (s candidateSet) add(values ...version.Version) {
	for _, v := range values {
		s[v.String()] = v
	}
}

func (s candidateSet) addPtr(v *version.Version) {
	if v != nil {
		s.add(*v)
	}
}

func (s candidateSet) sorted() []version.Version {
	out := make([]version.Version, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
