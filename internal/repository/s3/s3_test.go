package s3_test

import (
	"errors"
	"testing"

	"releasekit/internal/repository/s3"
	"releasekit/internal/services"
	"releasekit/internal/version"
)

func TestObjectKey(t *testing.T) {
	v := version.MustParse("1.2.0")
	if got := s3.ObjectKey("releases", "com.acme.core", v); got != "releases/com.acme.core/com.acme.core-1.2.0.jar" {
		t.Fatalf("ObjectKey with prefix = %q", got)
	}
	if got := s3.ObjectKey("", "core", v); got != "core/core-1.2.0.jar" {
		t.Fatalf("ObjectKey without prefix = %q", got)
	}
}

func TestNewRequiresBucketAndEndpoint(t *testing.T) {
	cases := []s3.Options{
		{Bucket: "b", CacheDir: "/tmp"},
		{Endpoint: "localhost:9000", CacheDir: "/tmp"},
		{Endpoint: "localhost:9000", Bucket: "b"},
	}
	for _, opts := range cases {
		if _, err := s3.New("remote", opts); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("expected configuration error for %+v, got %v", opts, err)
		}
	}
	repo, err := s3.New("remote", s3.Options{Endpoint: "localhost:9000", Bucket: "b", Prefix: "/rel/", CacheDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if repo.Name() != "remote" {
		t.Fatalf("Name = %q", repo.Name())
	}
}
