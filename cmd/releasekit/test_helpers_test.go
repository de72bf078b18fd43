package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"releasekit/internal/testsupport"
)

type cliTestEnv struct {
	baseDir     string
	configPath  string
	projectRoot string
	repoDir     string
	stateDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	env := &cliTestEnv{
		baseDir:     base,
		configPath:  filepath.Join(homeDir, ".config", "releasekit", "config.toml"),
		projectRoot: testsupport.NewProject(t),
		repoDir:     filepath.Join(base, "repo"),
		stateDir:    filepath.Join(base, "state"),
	}
	reportPath := filepath.Join(base, "diff.yaml")
	if err := os.WriteFile(reportPath, []byte(testsupport.SampleReport), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}

	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q
cache_dir = %q

[release]
default_repository = "local"
diff_report = %q

[[repositories]]
name = "local"
type = "dir"
path = %q

[[repositories]]
name = "registry"
type = "oci"
reference = "registry.example.com/acme"
username = "acme"
password = "hunter2"

[logging]
level = "error"
`,
		env.stateDir,
		filepath.Join(base, "logs"),
		filepath.Join(base, "cache"),
		reportPath,
		env.repoDir,
	)
	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
