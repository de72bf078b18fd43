package repository

import (
	"context"
	_ "crypto/sha256" // registers digest.Canonical
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/opencontainers/go-digest"

	"releasekit/internal/services"
	"releasekit/internal/version"
)

// Extension is the file suffix used for published artifacts.
const Extension = ".jar"

// Artifact is one versioned binary produced for a module.
type Artifact struct {
	Name    string
	Version version.Version
	Path    string
	Size    int64
	Digest  digest.Digest
}

// NewArtifact describes the file at path, computing its size and digest.
func NewArtifact(name string, v version.Version, path string) (*Artifact, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("artifact %s is a directory", path)
	}
	dgst, err := digest.FromReader(file)
	if err != nil {
		return nil, fmt.Errorf("digest artifact: %w", err)
	}
	return &Artifact{
		Name:    name,
		Version: v,
		Path:    path,
		Size:    info.Size(),
		Digest:  dgst,
	}, nil
}

// Exists reports whether the artifact points at a non-empty file.
func (a *Artifact) Exists() bool {
	if a == nil || strings.TrimSpace(a.Path) == "" {
		return false
	}
	info, err := os.Stat(a.Path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Size() > 0
}

// FileName is the canonical "<name>-<version>.jar" file name.
func (a *Artifact) FileName() string {
	return FileName(a.Name, a.Version)
}

func (a *Artifact) String() string {
	if a == nil {
		return "<none>"
	}
	return a.Name + "-" + a.Version.String()
}

// FileName builds the canonical artifact file name.
func FileName(name string, v version.Version) string {
	return name + "-" + v.String() + Extension
}

// ParseFileName extracts the version from a canonical artifact file name.
func ParseFileName(name, file string) (version.Version, bool) {
	prefix := name + "-"
	if !strings.HasPrefix(file, prefix) || !strings.HasSuffix(file, Extension) {
		return version.Version{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(file, prefix), Extension)
	v, err := version.Parse(raw)
	if err != nil {
		return version.Version{}, false
	}
	return v, true
}

// Strategy picks one version out of the versions matching a range.
type Strategy int

const (
	StrategyHighest Strategy = iota
	StrategyLowest
	StrategyExact
)

func (s Strategy) String() string {
	switch s {
	case StrategyLowest:
		return "lowest"
	case StrategyExact:
		return "exact"
	default:
		return "highest"
	}
}

// Repository stores artifacts by symbolic name and exact version.
type Repository interface {
	Name() string
	// Put stores the artifact and returns a locator describing where it went.
	Put(ctx context.Context, artifact *Artifact) (string, error)
	// Get resolves an artifact within the range. Implementations return an
	// error wrapping services.ErrNotFound when nothing matches.
	Get(ctx context.Context, name string, r version.Range, strategy Strategy) (*Artifact, error)
}

// Select chooses a version from candidates according to strategy.
// StrategyExact only matches the low endpoint of the range.
func Select(candidates []version.Version, r version.Range, strategy Strategy) (version.Version, bool) {
	matches := make([]version.Version, 0, len(candidates))
	for _, v := range candidates {
		if r.Includes(v) {
			matches = append(matches, v)
		}
	}
	if len(matches) == 0 {
		return version.Version{}, false
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Less(matches[j]) })
	switch strategy {
	case StrategyExact:
		for _, v := range matches {
			if v.Equal(r.Low) {
				return v, true
			}
		}
		return version.Version{}, false
	case StrategyLowest:
		return matches[0], true
	default:
		return matches[len(matches)-1], true
	}
}

// NotFound reports that no artifact named name matched r.
func NotFound(repo, name string, r version.Range) error {
	return services.Wrap(services.ErrNotFound, "", "get", fmt.Sprintf("%s %s not in repository %s", name, r, repo), nil)
}
