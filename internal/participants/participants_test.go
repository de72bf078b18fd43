package participants_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"releasekit/internal/build"
	"releasekit/internal/config"
	"releasekit/internal/diff"
	"releasekit/internal/history"
	"releasekit/internal/notifications"
	"releasekit/internal/participants"
	"releasekit/internal/propagate"
	"releasekit/internal/release"
	"releasekit/internal/repository/dir"
	"releasekit/internal/testsupport"
	"releasekit/internal/workspace"
)

type run struct {
	cfg     *config.Config
	root    string
	project *workspace.Project
	rc      *release.Context
}

// newRun loads the sample project and report into a release context that
// publishes to the config's "local" repository.
func newRun(t *testing.T, root string, updateOnly bool, opts ...testsupport.ConfigOption) *run {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	project, err := workspace.Open(context.Background(), root)
	if err != nil {
		t.Fatalf("open project: %v", err)
	}
	results, err := diff.Decode(strings.NewReader(testsupport.SampleReport))
	if err != nil {
		t.Fatalf("decode report: %v", err)
	}
	local, _ := cfg.Repository("local")
	repo, err := dir.New(local.Name, local.Path)
	if err != nil {
		t.Fatalf("dir.New: %v", err)
	}
	rc, err := release.NewContext(project, results, repo, updateOnly)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	rc.SetRunID("run-" + t.Name())
	return &run{cfg: cfg, root: root, project: project, rc: rc}
}

func (r *run) execute(t *testing.T, ps ...release.Participant) release.Outcome {
	t.Helper()
	orchestrator, err := release.NewOrchestrator(release.Options{
		Registry:   release.NewRegistry(ps...),
		Propagator: propagate.New(r.project, nil, nil),
		Builder:    build.NewCommandTrigger(nil),
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	outcome, err := orchestrator.Run(context.Background(), r.rc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return outcome
}

type vetoer struct{}

func (vetoer) Name() string { return "vetoer" }

func (vetoer) PreUpdateVersions(context.Context, *release.Context) bool { return false }

func TestPreflightPassesForWritableTargets(t *testing.T) {
	r := newRun(t, testsupport.NewProject(t), false)
	repo, _ := r.cfg.Repository("local")

	outcome := r.execute(t, participants.NewPreflight(r.cfg, &repo, nil))
	if outcome.Status != release.StatusSucceeded {
		t.Fatalf("expected success, got %s: %+v", outcome.Status, outcome.Errors)
	}
	if len(outcome.Released) != 2 {
		t.Fatalf("expected two released artifacts, got %d", len(outcome.Released))
	}
}

func TestPreflightVetoesUnwritableRepository(t *testing.T) {
	r := newRun(t, testsupport.NewProject(t), false)
	blocker := filepath.Join(testsupport.BaseDir(r.cfg), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	repo := config.Repository{Name: "broken", Type: config.RepositoryDir, Path: filepath.Join(blocker, "repo")}

	outcome := r.execute(t, participants.NewPreflight(r.cfg, &repo, nil))
	if outcome.Status != release.StatusVetoed {
		t.Fatalf("expected veto, got %s", outcome.Status)
	}
	if len(outcome.Errors) != 1 || !outcome.Errors[0].HasTable() {
		t.Fatalf("expected one tabular error record, got %+v", outcome.Errors)
	}
	rec := outcome.Errors[0]
	if rec.Phase != release.PhasePreUpdateVersions {
		t.Fatalf("expected record in PRE_UPDATE_VERSIONS, got %s", rec.Phase)
	}
	if len(rec.Rows) != 1 || rec.Rows[0][0] != "Repository broken" {
		t.Fatalf("unexpected rows %+v", rec.Rows)
	}
	data, err := os.ReadFile(filepath.Join(r.root, "core", "core.bnd"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Bundle-Version: 1.0.0") {
		t.Fatalf("descriptor changed after veto: %s", data)
	}
}

type ntfyCapture struct {
	mu     sync.Mutex
	titles []string
	bodies []string
}

func (c *ntfyCapture) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.titles = append(c.titles, r.Header.Get("Title"))
		c.bodies = append(c.bodies, string(body))
		c.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNotifierReportsRelease(t *testing.T) {
	capture := &ntfyCapture{}
	srv := capture.server(t)
	r := newRun(t, testsupport.NewProject(t), false, testsupport.WithNtfyTopic(srv.URL))

	r.execute(t, participants.NewNotifier(notifications.NewService(r.cfg), nil))
	if len(capture.titles) != 1 || capture.titles[0] != "Release Complete" {
		t.Fatalf("expected one completion message, got %v", capture.titles)
	}
	if !strings.Contains(capture.bodies[0], "com.acme.core-1.1.0") {
		t.Fatalf("expected released artifact in body, got %q", capture.bodies[0])
	}
}

func TestNotifierReportsVeto(t *testing.T) {
	capture := &ntfyCapture{}
	srv := capture.server(t)
	r := newRun(t, testsupport.NewProject(t), false, testsupport.WithNtfyTopic(srv.URL))

	r.execute(t, participants.NewNotifier(notifications.NewService(r.cfg), nil), vetoer{})
	if len(capture.titles) != 1 || capture.titles[0] != "Release Vetoed" {
		t.Fatalf("expected one veto message, got %v", capture.titles)
	}
	if capture.bodies[0] != "acme: release vetoed with 1 error" {
		t.Fatalf("unexpected body %q", capture.bodies[0])
	}
}

func TestNotifierReportsUpdateOnly(t *testing.T) {
	capture := &ntfyCapture{}
	srv := capture.server(t)
	r := newRun(t, testsupport.NewProject(t), true, testsupport.WithNtfyTopic(srv.URL))

	r.execute(t, participants.NewNotifier(notifications.NewService(r.cfg), nil))
	if len(capture.bodies) != 1 || capture.bodies[0] != "acme: updated versions\ncom.acme.core-1.1.0" {
		t.Fatalf("unexpected messages %v", capture.bodies)
	}
}

func TestLedgerRecordsReleasedArtifacts(t *testing.T) {
	r := newRun(t, testsupport.NewProject(t), false)
	store := testsupport.MustOpenHistory(t, r.cfg)

	r.execute(t, participants.NewLedger(store, nil))

	got, err := store.Get(context.Background(), r.rc.RunID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != history.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", got.Status)
	}
	if got.Mode != "release" || got.Repository != "local" || got.Project != "acme" {
		t.Fatalf("unexpected run %+v", got)
	}
	if len(got.Artifacts) != 2 {
		t.Fatalf("expected two artifacts, got %+v", got.Artifacts)
	}
	if got.Artifacts[0].Name != "com.acme.core" || got.Artifacts[0].Version != "1.1.0" {
		t.Fatalf("unexpected first artifact %+v", got.Artifacts[0])
	}
	if !strings.HasPrefix(got.Artifacts[0].Digest, "sha256:") {
		t.Fatalf("expected digest, got %q", got.Artifacts[0].Digest)
	}
}

func TestLedgerRecordsVetoBeforeItWasAsked(t *testing.T) {
	r := newRun(t, testsupport.NewProject(t), false)
	store := testsupport.MustOpenHistory(t, r.cfg)

	r.execute(t, vetoer{}, participants.NewLedger(store, nil))

	got, err := store.Get(context.Background(), r.rc.RunID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != history.StatusVetoed {
		t.Fatalf("expected vetoed, got %s", got.Status)
	}
	if len(got.Errors) != 1 || got.Errors[0].Message != "vetoed by vetoer" {
		t.Fatalf("unexpected errors %+v", got.Errors)
	}
	if got.Errors[0].Phase != string(release.PhasePreUpdateVersions) {
		t.Fatalf("unexpected phase %q", got.Errors[0].Phase)
	}
}
