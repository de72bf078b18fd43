package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"releasekit/internal/config"
	"releasekit/internal/testsupport"
	"releasekit/internal/workspace"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCreatableDirectory_MissingUnderWritableParent(t *testing.T) {
	result := CheckCreatableDirectory("repo", filepath.Join(t.TempDir(), "a", "b"))
	if !result.Passed {
		t.Fatalf("expected pass for creatable dir, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckCreatableDirectory_BlockedByFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckCreatableDirectory("repo", filepath.Join(f, "sub"))
	if result.Passed {
		t.Fatal("expected failure when ancestor is a file")
	}
}

func TestCheckCommand(t *testing.T) {
	if result := CheckCommand("build", "sh"); !result.Passed {
		t.Fatalf("expected sh on PATH, got: %s", result.Detail)
	}
	if result := CheckCommand("build", "releasekit-no-such-tool"); result.Passed {
		t.Fatal("expected failure for missing tool")
	}
}

func TestCheckEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	if result := CheckEndpoint(context.Background(), "registry", srv.URL+"/v2/"); !result.Passed {
		t.Fatalf("expected 401 to count as reachable, got: %s", result.Detail)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	if result := CheckEndpoint(context.Background(), "registry", broken.URL); result.Passed {
		t.Fatal("expected failure for 502")
	}

	if result := CheckEndpoint(context.Background(), "registry", ""); result.Passed {
		t.Fatal("expected failure for missing url")
	}
}

func TestCheckRepository_S3UsesEndpoint(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	result := CheckRepository(context.Background(), config.Repository{
		Name:     "bucket",
		Type:     config.RepositoryS3,
		Endpoint: strings.TrimPrefix(srv.URL, "http://"),
		Bucket:   "bundles",
	})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if path != "/bundles" {
		t.Fatalf("expected bucket path, got %q", path)
	}
}

func TestRunAll_NilProject(t *testing.T) {
	results := RunAll(context.Background(), nil, Target{})
	if results != nil {
		t.Fatal("expected nil results without project")
	}
}

func TestRunAll_ReleaseTarget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	project, err := workspace.Open(context.Background(), testsupport.NewProject(t))
	if err != nil {
		t.Fatalf("open project: %v", err)
	}
	repo, _ := cfg.Repository("local")

	results := RunAll(context.Background(), cfg, Target{Project: project, Repository: &repo})
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = true
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	for _, want := range []string{"Project directory", "Source directory", "Output directory", "Build command", "Repository local"} {
		if !names[want] {
			t.Fatalf("expected %q in results: %+v", want, results)
		}
	}
}

func TestRunAll_UpdateOnlySkipsPublishChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory())
	project, err := workspace.Open(context.Background(), testsupport.NewProject(t))
	if err != nil {
		t.Fatalf("open project: %v", err)
	}

	results := RunAll(context.Background(), cfg, Target{Project: project, UpdateOnly: true})
	if len(results) != 2 {
		t.Fatalf("expected project and source checks only, got %+v", results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}
