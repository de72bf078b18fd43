package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Repositories: 2")
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Fatalf("password leaked in output:\n%s", out)
	}
	requireContains(t, out, maskedSecret)
	requireContains(t, out, "registry.example.com/acme")
}
