package workspace

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest's name at the project root.
const ManifestFile = "releasekit.yaml"

//go:embed manifest.cue
var manifestSchema string

// Manifest is the decoded releasekit.yaml.
type Manifest struct {
	Name      string           `yaml:"name"`
	SourceDir string           `yaml:"source_dir"`
	OutputDir string           `yaml:"output_dir"`
	Modules   []ManifestModule `yaml:"modules"`
	Build     BuildSpec        `yaml:"build"`
}

// ManifestModule declares one module and its descriptor path relative to
// the project root.
type ManifestModule struct {
	Name       string `yaml:"name"`
	Descriptor string `yaml:"descriptor"`
}

// BuildSpec holds the build commands. Argument lists may use {module} and
// {version} placeholders; Artifact is a path template relative to the root.
type BuildSpec struct {
	Full     []string `yaml:"full"`
	Module   []string `yaml:"module"`
	Artifact string   `yaml:"artifact"`
}

// ParseManifest decodes and validates manifest bytes.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if raw == nil {
		return nil, errors.New("manifest is empty")
	}
	if err := validateManifest(raw); err != nil {
		return nil, err
	}

	var manifest Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&manifest); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	seen := make(map[string]struct{}, len(manifest.Modules))
	for _, module := range manifest.Modules {
		if _, dup := seen[module.Name]; dup {
			return nil, fmt.Errorf("manifest: duplicate module %q", module.Name)
		}
		seen[module.Name] = struct{}{}
	}
	return &manifest, nil
}

func validateManifest(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(manifestSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile manifest schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Manifest"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup manifest schema: %w", err)
	}

	value := ctx.Encode(raw)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	return nil
}
