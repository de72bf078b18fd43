// Package oci publishes artifacts as single-layer OCI artifacts, either into
// a local OCI image layout (one layout per module under the root directory)
// or to a remote registry (one repository per module under the reference).
// Every version is a tag.
package oci

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"

	"releasekit/internal/repository"
	"releasekit/internal/services"
	"releasekit/internal/version"
)

const (
	// ArtifactType marks manifests produced by releasekit.
	ArtifactType = "application/vnd.releasekit.artifact.v1"
	// LayerMediaType is the media type of the single artifact layer.
	LayerMediaType = "application/java-archive"

	annotationName    = "dev.releasekit.name"
	annotationVersion = "dev.releasekit.version"
)

// Options configures an OCI repository. Exactly one of Layout or Reference
// must be set.
type Options struct {
	// Layout is a directory holding one OCI image layout per module.
	Layout string
	// Reference is "<registry>/<namespace>"; modules become child repositories.
	Reference string
	PlainHTTP bool
	Username  string
	Password  string
	// CacheDir receives read-back copies.
	CacheDir string
}

type target interface {
	oras.Target
	registry.TagLister
}

// Repository is an OCI-backed artifact repository.
type Repository struct {
	name string
	opts Options
}

// New validates opts and returns a repository.
func New(name string, opts Options) (*Repository, error) {
	opts.Layout = strings.TrimSpace(opts.Layout)
	opts.Reference = strings.TrimSuffix(strings.TrimSpace(opts.Reference), "/")
	switch {
	case opts.Layout == "" && opts.Reference == "":
		return nil, services.Wrap(services.ErrConfiguration, "", "oci repository", "layout path or reference is required", nil)
	case opts.Layout != "" && opts.Reference != "":
		return nil, services.Wrap(services.ErrConfiguration, "", "oci repository", "layout path and reference are mutually exclusive", nil)
	case strings.TrimSpace(opts.CacheDir) == "":
		return nil, services.Wrap(services.ErrConfiguration, "", "oci repository", "cache dir is required", nil)
	}
	return &Repository{name: name, opts: opts}, nil
}

// Name returns the configured repository name.
func (r *Repository) Name() string { return r.name }

// Put pushes the artifact blob, packs a manifest around it and tags the
// manifest with the artifact version.
func (r *Repository) Put(ctx context.Context, artifact *repository.Artifact) (string, error) {
	if artifact == nil {
		return "", errors.New("nil artifact")
	}
	t, err := r.target(ctx, artifact.Name, true)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}

	layer := content.NewDescriptorFromBytes(LayerMediaType, data)
	if artifact.Digest != "" && layer.Digest != artifact.Digest {
		return "", fmt.Errorf("artifact %s changed on disk: digest %s, expected %s", artifact, layer.Digest, artifact.Digest)
	}
	layer.Annotations = map[string]string{ocispec.AnnotationTitle: artifact.FileName()}
	tag := artifact.Version.String()
	if _, err := t.Resolve(ctx, tag); err == nil {
		published, err := r.fetchManifest(ctx, t, artifact.Name, tag)
		if err != nil {
			return "", err
		}
		if published.Layers[0].Digest != layer.Digest {
			return "", fmt.Errorf("%s already published with digest %s", artifact, published.Layers[0].Digest)
		}
		return r.locator(artifact.Name, tag), nil
	} else if !errors.Is(err, errdef.ErrNotFound) {
		return "", fmt.Errorf("resolve %s: %w", r.locator(artifact.Name, tag), err)
	}

	exists, err := t.Exists(ctx, layer)
	if err != nil {
		return "", fmt.Errorf("check blob: %w", err)
	}
	if !exists {
		if _, err := oras.PushBytes(ctx, t, LayerMediaType, data); err != nil {
			return "", fmt.Errorf("push blob: %w", err)
		}
	}

	manifest, err := oras.PackManifest(ctx, t, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers: []ocispec.Descriptor{layer},
		ManifestAnnotations: map[string]string{
			annotationName:    artifact.Name,
			annotationVersion: tag,
		},
	})
	if err != nil {
		return "", fmt.Errorf("pack manifest: %w", err)
	}
	if err := t.Tag(ctx, manifest, tag); err != nil {
		return "", fmt.Errorf("tag %s: %w", tag, err)
	}
	return r.locator(artifact.Name, tag) + "@" + manifest.Digest.String(), nil
}

// Get lists the module's tags, selects one within rng and fetches its layer
// into the cache directory.
func (r *Repository) Get(ctx context.Context, name string, rng version.Range, strategy repository.Strategy) (*repository.Artifact, error) {
	t, err := r.target(ctx, name, false)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, repository.NotFound(r.name, name, rng)
	}

	var candidates []version.Version
	err = t.Tags(ctx, "", func(tags []string) error {
		for _, tag := range tags {
			if v, err := version.Parse(tag); err == nil {
				candidates = append(candidates, v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tags for %s: %w", name, err)
	}
	selected, ok := repository.Select(candidates, rng, strategy)
	if !ok {
		return nil, repository.NotFound(r.name, name, rng)
	}

	tag := selected.String()
	manifest, err := r.fetchManifest(ctx, t, name, tag)
	if err != nil {
		return nil, err
	}
	layer := manifest.Layers[0]
	data, err := content.FetchAll(ctx, t, layer)
	if err != nil {
		return nil, fmt.Errorf("fetch layer %s: %w", layer.Digest, err)
	}

	dst := filepath.Join(r.opts.CacheDir, r.name, name, repository.FileName(name, selected))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return nil, fmt.Errorf("write read-back copy: %w", err)
	}
	return repository.NewArtifact(name, selected, dst)
}

func (r *Repository) fetchManifest(ctx context.Context, t target, name, tag string) (ocispec.Manifest, error) {
	var manifest ocispec.Manifest
	_, raw, err := oras.FetchBytes(ctx, t, tag, oras.DefaultFetchBytesOptions)
	if err != nil {
		return manifest, fmt.Errorf("fetch manifest %s: %w", r.locator(name, tag), err)
	}
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return manifest, fmt.Errorf("decode manifest %s: %w", r.locator(name, tag), err)
	}
	if manifest.ArtifactType != ArtifactType || len(manifest.Layers) != 1 {
		return manifest, fmt.Errorf("%s is not a releasekit artifact", r.locator(name, tag))
	}
	return manifest, nil
}

func (r *Repository) locator(name, tag string) string {
	if r.opts.Layout != "" {
		return "oci-layout://" + filepath.Join(r.opts.Layout, name) + ":" + tag
	}
	return r.opts.Reference + "/" + name + ":" + tag
}

// target opens the per-module store. For layouts, a missing directory yields
// a nil target unless create is set.
func (r *Repository) target(ctx context.Context, name string, create bool) (target, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.opts.Layout != "" {
		dir := filepath.Join(r.opts.Layout, name)
		if !create {
			if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
				return nil, nil
			}
		}
		store, err := oci.New(dir)
		if err != nil {
			return nil, fmt.Errorf("open oci layout %s: %w", dir, err)
		}
		return store, nil
	}
	return r.remote(name)
}

func (r *Repository) remote(name string) (*remote.Repository, error) {
	path := r.opts.Reference + "/" + name
	repo, err := remote.NewRepository(path)
	if err != nil {
		return nil, fmt.Errorf("invalid repository reference %s: %w", path, err)
	}
	repo.PlainHTTP = r.opts.PlainHTTP
	client := &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
	}
	if r.opts.Username != "" {
		client.Credential = auth.StaticCredential(repo.Reference.Registry, auth.Credential{
			Username: r.opts.Username,
			Password: r.opts.Password,
		})
	}
	repo.Client = client
	return repo, nil
}
