package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiffCommandPrintsPendingChanges(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"diff", "--project", env.projectRoot}, env.configPath, "")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	requireContains(t, out, "Pending changes for acme")
	requireContains(t, out, "com.acme.core.api")
	requireContains(t, out, "com.acme.core: 1.0.0, 1.1.0")

	out, _, err = runCLI(t, []string{"diff", "--project", env.projectRoot, "--yaml", "--set", "com.acme.util=2.0.1"}, env.configPath, "")
	if err != nil {
		t.Fatalf("diff --yaml: %v", err)
	}
	requireContains(t, out, "suggested_version: 2.0.1")
}

func TestReleaseCommandWithAssumeYes(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"release", "--project", env.projectRoot, "--yes"}, env.configPath, "")
	if err != nil {
		t.Fatalf("release: %v\n%s", err, out)
	}
	requireContains(t, out, "Status: succeeded")
	if _, err := os.Stat(filepath.Join(env.repoDir, "com.acme.core", "com.acme.core-1.1.0.jar")); err != nil {
		t.Fatalf("expected published artifact: %v", err)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "succeeded")
	requireContains(t, out, "acme")

	lines := strings.Split(out, "\n")
	if len(lines) < 4 {
		t.Fatalf("unexpected history table:\n%s", out)
	}
	runID := strings.TrimSpace(strings.Split(lines[3], "│")[1])
	out, _, err = runCLI(t, []string{"history", "show", runID}, env.configPath, "")
	if err != nil {
		t.Fatalf("history show %q: %v", runID, err)
	}
	requireContains(t, out, "Run: "+runID)
	requireContains(t, out, "com.acme.core")
}

func TestReleaseCommandCancelledAtPrompt(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"release", "--project", env.projectRoot}, env.configPath, "c\n")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	requireContains(t, out, "Release to local?")
	requireContains(t, out, "Release cancelled")
	data, err := os.ReadFile(filepath.Join(env.projectRoot, "core", "core.bnd"))
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, string(data), "Bundle-Version: 1.0.0")
}

func TestReleaseCommandUpdateOnly(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"release", "--project", env.projectRoot, "--update-only"}, env.configPath, "u\n")
	if err != nil {
		t.Fatalf("release --update-only: %v", err)
	}
	requireContains(t, out, "Mode: update versions")
	if _, err := os.Stat(env.repoDir); !os.IsNotExist(err) {
		t.Fatalf("update-only run touched the repository: %v", err)
	}
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No release runs recorded")
}

func TestReposCommandListsRepositories(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"repos"}, env.configPath, "")
	if err != nil {
		t.Fatalf("repos: %v", err)
	}
	requireContains(t, out, "local")
	requireContains(t, out, "registry.example.com/acme")

	blocker := filepath.Join(env.baseDir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(env.configPath, []byte(`[[repositories]]
name = "broken"
type = "dir"
path = "`+filepath.Join(blocker, "repo")+`"
`), 0o644); err != nil {
		t.Fatal(err)
	}
	out, _, err = runCLI(t, []string{"repos", "--check"}, env.configPath, "")
	if err == nil {
		t.Fatalf("expected failed check, output:\n%s", out)
	}
	requireContains(t, out, "FAIL")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath, "")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications are not configured")
}
