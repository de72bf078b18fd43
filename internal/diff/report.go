package diff

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"releasekit/internal/version"
)

// report is the on-disk shape. JSON reports decode through the same path
// since JSON is valid YAML.
type report struct {
	Modules []moduleRecord `yaml:"modules"`
}

type moduleRecord struct {
	Name              string          `yaml:"name"`
	OldVersion        string          `yaml:"old_version,omitempty"`
	SuggestedVersion  string          `yaml:"suggested_version"`
	SuggestedVersions []string        `yaml:"suggested_versions,omitempty"`
	Packages          []packageRecord `yaml:"packages,omitempty"`
}

type packageRecord struct {
	Name              string   `yaml:"name"`
	OldVersion        string   `yaml:"old_version,omitempty"`
	SuggestedVersion  string   `yaml:"suggested_version,omitempty"`
	SuggestedVersions []string `yaml:"suggested_versions,omitempty"`
	OldRange          string   `yaml:"old_range,omitempty"`
	SuggestedRange    string   `yaml:"suggested_range,omitempty"`
	Delta             string   `yaml:"delta"`
	Severity          string   `yaml:"severity"`
	Imported          bool     `yaml:"imported"`
	Exported          bool     `yaml:"exported"`
}

// Decode parses a diff report. Unknown fields are rejected so typos surface
// instead of silently dropping data.
func Decode(r io.Reader) ([]Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read diff report: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var doc report
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse diff report: %w", err)
	}

	results := make([]Result, 0, len(doc.Modules))
	seen := make(map[string]struct{}, len(doc.Modules))
	for i, rec := range doc.Modules {
		result, err := rec.toResult()
		if err != nil {
			return nil, fmt.Errorf("diff report module %d: %w", i, err)
		}
		if _, dup := seen[result.Name]; dup {
			return nil, fmt.Errorf("diff report: duplicate module %q", result.Name)
		}
		seen[result.Name] = struct{}{}
		results = append(results, result)
	}
	return results, nil
}

func (m moduleRecord) toResult() (Result, error) {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return Result{}, errors.New("name is required")
	}
	old, err := version.ParseOptional(m.OldVersion)
	if err != nil {
		return Result{}, fmt.Errorf("%s: old_version: %w", name, err)
	}
	suggested, err := version.Parse(m.SuggestedVersion)
	if err != nil {
		return Result{}, fmt.Errorf("%s: suggested_version: %w", name, err)
	}
	suggestions, err := parseList(m.SuggestedVersions)
	if err != nil {
		return Result{}, fmt.Errorf("%s: suggested_versions: %w", name, err)
	}

	result := Result{
		Name:             name,
		OldVersion:       old,
		SuggestedVersion: suggested,
		Suggestions:      suggestions,
		Packages:         make([]Package, 0, len(m.Packages)),
	}
	for _, rec := range m.Packages {
		pkg, err := rec.toPackage()
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", name, err)
		}
		result.Packages = append(result.Packages, pkg)
	}
	return result, nil
}

func (p packageRecord) toPackage() (Package, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return Package{}, errors.New("package name is required")
	}
	old, err := version.ParseOptional(p.OldVersion)
	if err != nil {
		return Package{}, fmt.Errorf("package %s: old_version: %w", name, err)
	}
	suggested, err := version.ParseOptional(p.SuggestedVersion)
	if err != nil {
		return Package{}, fmt.Errorf("package %s: suggested_version: %w", name, err)
	}
	suggestions, err := parseList(p.SuggestedVersions)
	if err != nil {
		return Package{}, fmt.Errorf("package %s: suggested_versions: %w", name, err)
	}
	delta, err := ParseDelta(p.Delta)
	if err != nil {
		return Package{}, fmt.Errorf("package %s: %w", name, err)
	}
	severity, err := ParseSeverity(p.Severity)
	if err != nil {
		return Package{}, fmt.Errorf("package %s: %w", name, err)
	}
	if severity == SeverityMajor && delta == DeltaAdded {
		return Package{}, fmt.Errorf("package %s: an added package cannot break compatibility", name)
	}
	for _, raw := range []string{p.OldRange, p.SuggestedRange} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := version.ParseRange(raw); err != nil {
			return Package{}, fmt.Errorf("package %s: %w", name, err)
		}
	}
	return Package{
		Name:             name,
		OldVersion:       old,
		SuggestedVersion: suggested,
		OldRange:         strings.TrimSpace(p.OldRange),
		SuggestedRange:   strings.TrimSpace(p.SuggestedRange),
		Delta:            delta,
		Severity:         severity,
		Imported:         p.Imported,
		Exported:         p.Exported,
		Suggestions:      suggestions,
	}, nil
}

func parseList(values []string) ([]version.Version, error) {
	out := make([]version.Version, 0, len(values))
	for _, raw := range values {
		v, err := version.Parse(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Encode writes results back in report form.
func Encode(w io.Writer, results []Result) error {
	doc := report{Modules: make([]moduleRecord, 0, len(results))}
	for _, result := range results {
		rec := moduleRecord{
			Name:              result.Name,
			OldVersion:        optionalString(result.OldVersion),
			SuggestedVersion:  result.SuggestedVersion.String(),
			SuggestedVersions: formatList(result.Suggestions),
		}
		for _, pkg := range result.Packages {
			rec.Packages = append(rec.Packages, packageRecord{
				Name:              pkg.Name,
				OldVersion:        optionalString(pkg.OldVersion),
				SuggestedVersion:  optionalString(pkg.SuggestedVersion),
				SuggestedVersions: formatList(pkg.Suggestions),
				OldRange:          pkg.OldRange,
				SuggestedRange:    pkg.SuggestedRange,
				Delta:             strings.ToLower(string(pkg.Delta)),
				Severity:          strings.ToLower(pkg.Severity.String()),
				Imported:          pkg.Imported,
				Exported:          pkg.Exported,
			})
		}
		doc.Modules = append(doc.Modules, rec)
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encode diff report: %w", err)
	}
	return encoder.Close()
}

func optionalString(v *version.Version) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func formatList(values []version.Version) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}
