package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"releasekit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test
// and a single directory repository named "local" as the default target.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Repositories = []config.Repository{{
		Name: "local",
		Type: config.RepositoryDir,
		Path: filepath.Join(base, "repo"),
	}}
	cfgVal.Release.DefaultRepository = "local"
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRepository appends a repository definition.
func WithRepository(repo config.Repository) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Repositories = append(b.cfg.Repositories, repo)
	}
}

// WithNtfyTopic points notifications at topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithGit enables the git participant.
func WithGit(requireClean bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Git.Enabled = true
		b.cfg.Git.RequireClean = requireClean
	}
}

// WithoutHistory disables the run ledger.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. Each stub prints nothing and exits 0.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "stubs")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir stub dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
