// Package dir stores artifacts in a plain directory tree laid out as
// <root>/<name>/<name>-<version>.jar.
package dir

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"releasekit/internal/fileutil"
	"releasekit/internal/repository"
	"releasekit/internal/services"
	"releasekit/internal/version"
)

// Repository is a directory-backed artifact repository.
type Repository struct {
	name string
	root string
}

// New returns a repository rooted at root. The directory is created on the
// first Put.
func New(name, root string) (*Repository, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "dir repository", "root path is required", nil)
	}
	return &Repository{name: name, root: root}, nil
}

// Name returns the configured repository name.
func (r *Repository) Name() string { return r.name }

// Root returns the repository root directory.
func (r *Repository) Root() string { return r.root }

// Put copies the artifact into place. Republishing identical content is a
// no-op; different content under an existing version is rejected.
func (r *Repository) Put(ctx context.Context, artifact *repository.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if artifact == nil {
		return "", errors.New("nil artifact")
	}
	dst := r.path(artifact.Name, artifact.Version)
	if existing, err := repository.NewArtifact(artifact.Name, artifact.Version, dst); err == nil {
		if existing.Digest == artifact.Digest {
			return dst, nil
		}
		return "", fmt.Errorf("%s already published with digest %s", artifact, existing.Digest)
	}
	if _, err := fileutil.CopyFileVerified(artifact.Path, dst, artifact.Digest); err != nil {
		return "", fmt.Errorf("copy %s: %w", artifact, err)
	}
	return dst, nil
}

// Get resolves the artifact within rng from the on-disk listing.
func (r *Repository) Get(ctx context.Context, name string, rng version.Range, strategy repository.Strategy) (*repository.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(r.root, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, repository.NotFound(r.name, name, rng)
		}
		return nil, fmt.Errorf("list %s: %w", name, err)
	}
	candidates := make([]version.Version, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if v, ok := repository.ParseFileName(name, entry.Name()); ok {
			candidates = append(candidates, v)
		}
	}
	selected, ok := repository.Select(candidates, rng, strategy)
	if !ok {
		return nil, repository.NotFound(r.name, name, rng)
	}
	return repository.NewArtifact(name, selected, r.path(name, selected))
}

func (r *Repository) path(name string, v version.Version) string {
	return filepath.Join(r.root, name, repository.FileName(name, v))
}
