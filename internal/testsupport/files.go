package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteTree writes files (relative path -> content) under root.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

// SampleManifest declares two modules, core and util, whose module build
// writes "<module>-<version>.jar" into bin/.
const SampleManifest = `name: acme
modules:
  - name: com.acme.core
    descriptor: core/core.bnd
  - name: com.acme.util
    descriptor: util/util.bnd
build:
  module: [sh, -c, "mkdir -p bin && printf '%s' {module}-{version} > bin/{module}-{version}.jar"]
  artifact: "bin/{module}-{version}.jar"
`

// NewProject writes a two-module project into a temp dir and returns its root.
// core starts at 1.0.0 and util at 2.0.0.
func NewProject(t testing.TB) string {
	t.Helper()
	root := t.TempDir()
	WriteTree(t, root, map[string]string{
		"releasekit.yaml":                   SampleManifest,
		"core/core.bnd":                     "Bundle-SymbolicName: com.acme.core\nBundle-Version: 1.0.0\n",
		"util/util.bnd":                     "Bundle-SymbolicName: com.acme.util\nBundle-Version: 2.0.0\n",
		"src/com/acme/core/api/packageinfo": "version 1.0.0\n",
		"src/com/acme/core/api/Api.java":    "package com.acme.core.api;\n",
	})
	return root
}

// SampleReport is a diff report matching NewProject: core moves to 1.1.0 with
// a minor API change, util is unchanged.
const SampleReport = `modules:
  - name: com.acme.core
    old_version: 1.0.0
    suggested_version: 1.1.0
    packages:
      - name: com.acme.core.api
        old_version: 1.0.0
        suggested_version: 1.1.0
        delta: MODIFIED
        severity: MINOR
        exported: true
  - name: com.acme.util
    old_version: 2.0.0
    suggested_version: 2.0.0
`
