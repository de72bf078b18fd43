package oci_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"releasekit/internal/repository"
	"releasekit/internal/repository/oci"
	"releasekit/internal/services"
	"releasekit/internal/version"
)

func newLayoutRepo(t *testing.T) (*oci.Repository, string) {
	t.Helper()
	layout := t.TempDir()
	repo, err := oci.New("oci-local", oci.Options{Layout: layout, CacheDir: t.TempDir()})
	require.NoError(t, err)
	return repo, layout
}

func newArtifact(t *testing.T, name, ver, body string) *repository.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".jar")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	artifact, err := repository.NewArtifact(name, version.MustParse(ver), path)
	require.NoError(t, err)
	return artifact
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := oci.New("x", oci.Options{CacheDir: t.TempDir()})
	require.ErrorIs(t, err, services.ErrConfiguration)

	_, err = oci.New("x", oci.Options{Layout: "a", Reference: "localhost:5000/ns", CacheDir: t.TempDir()})
	require.ErrorIs(t, err, services.ErrConfiguration)

	_, err = oci.New("x", oci.Options{Layout: "a"})
	require.ErrorIs(t, err, services.ErrConfiguration)
}

func TestPutAndReadBack(t *testing.T) {
	ctx := context.Background()
	repo, layout := newLayoutRepo(t)
	artifact := newArtifact(t, "com.acme.core", "1.1.0", "core bytes")

	locator, err := repo.Put(ctx, artifact)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(locator, "oci-layout://"+filepath.Join(layout, "com.acme.core")+":1.1.0@sha256:"), locator)

	got, err := repo.Get(ctx, "com.acme.core", version.Exact(artifact.Version), repository.StrategyHighest)
	require.NoError(t, err)
	assert.True(t, got.Exists())
	assert.Equal(t, artifact.Digest, got.Digest)
	assert.Equal(t, "1.1.0", got.Version.String())
	assert.NotEqual(t, artifact.Path, got.Path)

	data, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	assert.Equal(t, "core bytes", string(data))
}

func TestGetPicksHighestWithinRange(t *testing.T) {
	ctx := context.Background()
	repo, _ := newLayoutRepo(t)
	for _, v := range []string{"1.0.0", "1.4.0", "2.0.0"} {
		_, err := repo.Put(ctx, newArtifact(t, "util", v, "util "+v))
		require.NoError(t, err)
	}

	rng, err := version.ParseRange("[1.0.0,2.0.0)")
	require.NoError(t, err)
	got, err := repo.Get(ctx, "util", rng, repository.StrategyHighest)
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", got.Version.String())

	got, err = repo.Get(ctx, "util", rng, repository.StrategyLowest)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", got.Version.String())
}

func TestGetUnknownModuleIsNotFound(t *testing.T) {
	repo, layout := newLayoutRepo(t)
	_, err := repo.Get(context.Background(), "missing", version.Exact(version.MustParse("1.0.0")), repository.StrategyHighest)
	require.ErrorIs(t, err, services.ErrNotFound)

	_, statErr := os.Stat(filepath.Join(layout, "missing"))
	assert.True(t, os.IsNotExist(statErr), "read must not create a layout")
}

func TestPutIsIdempotentAndRejectsConflicts(t *testing.T) {
	ctx := context.Background()
	repo, _ := newLayoutRepo(t)

	_, err := repo.Put(ctx, newArtifact(t, "core", "1.0.0", "same"))
	require.NoError(t, err)
	_, err = repo.Put(ctx, newArtifact(t, "core", "1.0.0", "same"))
	require.NoError(t, err)
	_, err = repo.Put(ctx, newArtifact(t, "core", "1.0.0", "different"))
	require.Error(t, err)
}
