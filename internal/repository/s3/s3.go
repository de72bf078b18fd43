// Package s3 stores artifacts in an S3-compatible bucket through minio-go.
// Objects are keyed "<prefix>/<name>/<name>-<version>.jar".
package s3

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"releasekit/internal/repository"
	"releasekit/internal/services"
	"releasekit/internal/version"
)

const (
	contentType = "application/java-archive"
	digestMeta  = "Releasekit-Digest"
)

// Options configures the bucket connection.
type Options struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Secure    bool
	// CacheDir receives read-back copies.
	CacheDir string
}

// Repository is an S3-backed artifact repository.
type Repository struct {
	name   string
	client *minio.Client
	opts   Options
}

// New connects a minio client. No request is made until the first Put or Get.
func New(name string, opts Options) (*Repository, error) {
	opts.Prefix = strings.Trim(strings.TrimSpace(opts.Prefix), "/")
	switch {
	case strings.TrimSpace(opts.Endpoint) == "":
		return nil, services.Wrap(services.ErrConfiguration, "", "s3 repository", "endpoint is required", nil)
	case strings.TrimSpace(opts.Bucket) == "":
		return nil, services.Wrap(services.ErrConfiguration, "", "s3 repository", "bucket is required", nil)
	case strings.TrimSpace(opts.CacheDir) == "":
		return nil, services.Wrap(services.ErrConfiguration, "", "s3 repository", "cache dir is required", nil)
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &Repository{name: name, client: client, opts: opts}, nil
}

// Name returns the configured repository name.
func (r *Repository) Name() string { return r.name }

// Put uploads the artifact unless the same digest is already stored.
func (r *Repository) Put(ctx context.Context, artifact *repository.Artifact) (string, error) {
	if artifact == nil {
		return "", errors.New("nil artifact")
	}
	key := ObjectKey(r.opts.Prefix, artifact.Name, artifact.Version)
	stat, err := r.client.StatObject(ctx, r.opts.Bucket, key, minio.StatObjectOptions{})
	switch {
	case err == nil:
		if existing := stat.UserMetadata[digestMeta]; existing != "" && existing != artifact.Digest.String() {
			return "", fmt.Errorf("%s already published with digest %s", artifact, existing)
		}
		return r.locator(key), nil
	case minio.ToErrorResponse(err).Code != "NoSuchKey":
		return "", fmt.Errorf("stat %s: %w", r.locator(key), err)
	}

	_, err = r.client.FPutObject(ctx, r.opts.Bucket, key, artifact.Path, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{digestMeta: artifact.Digest.String()},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", r.locator(key), err)
	}
	return r.locator(key), nil
}

// Get lists the module's objects, selects a version within rng and downloads
// it into the cache directory.
func (r *Repository) Get(ctx context.Context, name string, rng version.Range, strategy repository.Strategy) (*repository.Artifact, error) {
	listPrefix := path.Join(r.opts.Prefix, name) + "/"
	var candidates []version.Version
	for object := range r.client.ListObjects(ctx, r.opts.Bucket, minio.ListObjectsOptions{Prefix: listPrefix}) {
		if object.Err != nil {
			return nil, fmt.Errorf("list %s: %w", listPrefix, object.Err)
		}
		if v, ok := repository.ParseFileName(name, path.Base(object.Key)); ok {
			candidates = append(candidates, v)
		}
	}
	selected, ok := repository.Select(candidates, rng, strategy)
	if !ok {
		return nil, repository.NotFound(r.name, name, rng)
	}
	key := ObjectKey(r.opts.Prefix, name, selected)
	dst := filepath.Join(r.opts.CacheDir, r.name, name, repository.FileName(name, selected))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if err := r.client.FGetObject(ctx, r.opts.Bucket, key, dst, minio.GetObjectOptions{}); err != nil {
		return nil, fmt.Errorf("download %s: %w", r.locator(key), err)
	}
	return repository.NewArtifact(name, selected, dst)
}

func (r *Repository) locator(key string) string {
	return "s3://" + r.opts.Bucket + "/" + key
}

// ObjectKey builds the object key for an artifact.
func ObjectKey(prefix, name string, v version.Version) string {
	return path.Join(prefix, name, repository.FileName(name, v))
}
