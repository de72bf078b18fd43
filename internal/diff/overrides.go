package diff

import (
	"fmt"
	"strings"

	"releasekit/internal/version"
)

// Overrides holds operator-chosen versions keyed by ModuleKey or PackageKey.
type Overrides map[string]version.Version

// ModuleKey addresses a module's own version.
func ModuleKey(module string) string {
	return module
}

// PackageKey addresses one package inside a module.
func PackageKey(module, pkg string) string {
	return module + "/" + pkg
}

// SetModule records a module version choice.
func (o Overrides) SetModule(module string, v version.Version) {
	o[ModuleKey(module)] = v
}

// SetPackage records a package version choice.
func (o Overrides) SetPackage(module, pkg string, v version.Version) {
	o[PackageKey(module, pkg)] = v
}

// ParseAssignment parses "module=1.2.3" or "module/pkg=1.2.3" and records it.
func (o Overrides) ParseAssignment(value string) error {
	key, raw, ok := strings.Cut(value, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("override %q: expected name=version", value)
	}
	v, err := version.Parse(raw)
	if err != nil {
		return fmt.Errorf("override %q: %w", value, err)
	}
	o[key] = v
	return nil
}

// Apply returns new snapshots with the overrides folded in. Inputs are left
// untouched. Keys that name no module or package are reported as an error.
func Apply(results []Result, overrides Overrides) ([]Result, error) {
	out := make([]Result, len(results))
	used := make(map[string]bool, len(overrides))
	for i, result := range results {
		next := result.Clone()
		if v, ok := overrides[ModuleKey(result.Name)]; ok {
			next.SuggestedVersion = v
			used[ModuleKey(result.Name)] = true
		}
		for j := range next.Packages {
			key := PackageKey(result.Name, next.Packages[j].Name)
			v, ok := overrides[key]
			if !ok {
				continue
			}
			if !next.Packages[j].Editable() {
				return nil, fmt.Errorf("override %s: package version is not editable", key)
			}
			next.Packages[j].SuggestedVersion = version.Ptr(v)
			used[key] = true
		}
		out[i] = next
	}
	for key := range overrides {
		if !used[key] {
			return nil, fmt.Errorf("override %s: no such module or package", key)
		}
	}
	return out, nil
}
