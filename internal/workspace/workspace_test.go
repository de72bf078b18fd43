package workspace_test

import (
	"context"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"releasekit/internal/workspace"
)

const manifest = `name: acme
modules:
  - name: com.acme.core
    descriptor: core/core.bnd
  - name: com.acme.util
    descriptor: util/util.bnd
build:
  full: [make, all]
  module: [make, "{module}"]
  artifact: "bin/{module}-{version}.jar"
`

func writeFile(t *testing.T, fs billy.Filesystem, path, content string) {
	t.Helper()
	if err := util.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newFS(t *testing.T) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	writeFile(t, fs, workspace.ManifestFile, manifest)
	writeFile(t, fs, "core/core.bnd", "# core bundle\nbundle-version = 1.0.0\nPrivate-Package: com.acme.core.impl\n")
	writeFile(t, fs, "util/util.bnd", "Bundle-Version: ${base.version}\n")
	return fs
}

func TestLoadReadsModulesInOrder(t *testing.T) {
	project, err := workspace.Load(context.Background(), newFS(t), "/work/acme")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if project.Name != "acme" || project.SourceDir != "src" || project.OutputDir != "bin" {
		t.Fatalf("unexpected project: %+v", project)
	}
	modules := project.Modules()
	if len(modules) != 2 || modules[0].Name != "com.acme.core" || modules[1].Name != "com.acme.util" {
		t.Fatalf("unexpected modules: %+v", modules)
	}
	if modules[0].Version == nil || modules[0].Version.String() != "1.0.0" {
		t.Fatalf("unexpected core version: %+v", modules[0])
	}
	if modules[1].Version != nil || modules[1].RawVersion != "${base.version}" {
		t.Fatalf("expected macro version to stay raw: %+v", modules[1])
	}
	if got := strings.Join(project.Build.Module, " "); got != "make {module}" {
		t.Fatalf("unexpected module build command %q", got)
	}
	if project.PackagePath("com.acme.api") != "src/com/acme/api" {
		t.Fatalf("unexpected package path %q", project.PackagePath("com.acme.api"))
	}
}

func TestManifestSchemaRejectsInvalidManifests(t *testing.T) {
	cases := map[string]string{
		"no modules":        "name: acme\nmodules: []\n",
		"unknown field":     "name: acme\nowner: me\nmodules:\n  - name: a\n    descriptor: a.bnd\n",
		"missing desc":      "name: acme\nmodules:\n  - name: a\n",
		"bad name":          "name: \"acme project\"\nmodules:\n  - name: a\n    descriptor: a.bnd\n",
		"duplicate modules": "name: acme\nmodules:\n  - name: a\n    descriptor: a.bnd\n  - name: a\n    descriptor: b.bnd\n",
	}
	for name, input := range cases {
		if _, err := workspace.ParseManifest([]byte(input)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDescriptorSetPreservesLayout(t *testing.T) {
	desc := workspace.ParseDescriptor("core.bnd", []byte("# header\n  bundle-version =  1.0.0\nExport-Package: a\n"))
	value, ok := desc.Version()
	if !ok || value != "1.0.0" {
		t.Fatalf("unexpected version %q %v", value, ok)
	}
	desc.SetVersion("1.1.0")
	want := "# header\n  bundle-version =  1.1.0\nExport-Package: a\n"
	if got := string(desc.Bytes()); got != want {
		t.Fatalf("unexpected descriptor:\n%s\nwant:\n%s", got, want)
	}

	fresh := workspace.ParseDescriptor("new.bnd", []byte("Export-Package: b"))
	fresh.SetVersion("0.1.0")
	if got := string(fresh.Bytes()); got != "Export-Package: b\nBundle-Version: 0.1.0\n" {
		t.Fatalf("unexpected appended descriptor %q", got)
	}
}

func TestDescriptorSetKeepsCRLFLineEndings(t *testing.T) {
	desc := workspace.ParseDescriptor("core.bnd", []byte("# header\r\nBundle-Version: 1.0.0\r\nExport-Package: a\r\n"))
	value, ok := desc.Version()
	if !ok || value != "1.0.0" {
		t.Fatalf("unexpected version %q %v", value, ok)
	}
	desc.SetVersion("1.1.0")
	want := "# header\r\nBundle-Version: 1.1.0\r\nExport-Package: a\r\n"
	if got := string(desc.Bytes()); got != want {
		t.Fatalf("unexpected descriptor %q, want %q", got, want)
	}

	fresh := workspace.ParseDescriptor("new.bnd", []byte("# header\r\nExport-Package: b"))
	fresh.SetVersion("0.1.0")
	if got := string(fresh.Bytes()); got != "# header\r\nExport-Package: b\r\nBundle-Version: 0.1.0\r\n" {
		t.Fatalf("unexpected appended descriptor %q", got)
	}
}

func TestRefreshRereadsSingleDescriptor(t *testing.T) {
	fs := newFS(t)
	ctx := context.Background()
	project, err := workspace.Load(ctx, fs, "/work/acme")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	desc, err := workspace.ReadDescriptor(fs, "core/core.bnd")
	if err != nil {
		t.Fatalf("ReadDescriptor: %v", err)
	}
	desc.SetVersion("1.1.0")
	if err := desc.Save(fs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if m, _ := project.Module("com.acme.core"); m.Version.String() != "1.0.0" {
		t.Fatalf("expected stale model before refresh, got %s", m.Version)
	}
	if err := project.Refresh(ctx, "core/core.bnd"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if m, _ := project.Module("com.acme.core"); m.Version.String() != "1.1.0" {
		t.Fatalf("expected refreshed version, got %s", m.Version)
	}
	if err := project.Refresh(ctx, "src/com/acme/packageinfo"); err != nil {
		t.Fatalf("Refresh of non-descriptor path: %v", err)
	}
}

func TestLoadRejectsInvalidDescriptorVersion(t *testing.T) {
	fs := newFS(t)
	writeFile(t, fs, "core/core.bnd", "Bundle-Version: one.two\n")
	if _, err := workspace.Load(context.Background(), fs, "/work/acme"); err == nil {
		t.Fatal("expected error for invalid descriptor version")
	}
}
