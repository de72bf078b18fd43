package propagate_test

import (
	"context"
	"errors"
	"os"
	"sort"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"releasekit/internal/diff"
	"releasekit/internal/propagate"
	"releasekit/internal/version"
	"releasekit/internal/workspace"
)

const manifest = `name: acme
modules:
  - name: core
    descriptor: core.bnd
  - name: macro
    descriptor: macro.bnd
`

type recordingRefresher struct {
	project *workspace.Project
	paths   []string
}

func (r *recordingRefresher) Refresh(ctx context.Context, path string) error {
	r.paths = append(r.paths, path)
	return r.project.Refresh(ctx, path)
}

func setup(t *testing.T) (billy.Filesystem, *workspace.Project, *recordingRefresher) {
	t.Helper()
	fs := memfs.New()
	files := map[string]string{
		workspace.ManifestFile:                 manifest,
		"core.bnd":                             "Bundle-Version: 1.0.0\n",
		"macro.bnd":                            "Bundle-Version: ${base}\n",
		"src/com/acme/core/api/packageinfo":    "version 1.0.0\n",
		"src/com/acme/core/spi/packageinfo":    "version 1.1.0\n",
		"src/com/acme/core/fresh/Fresh.java":   "package com.acme.core.fresh;\n",
		"src/com/acme/core/internal/Impl.java": "package com.acme.core.internal;\n",
	}
	for path, content := range files {
		if err := util.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	project, err := workspace.Load(context.Background(), fs, "/acme")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return fs, project, &recordingRefresher{project: project}
}

func snapshot(t *testing.T, fs billy.Filesystem) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := util.Walk(fs, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		data, err := util.ReadFile(fs, path)
		if err != nil {
			return err
		}
		out[path] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return out
}

func readFile(t *testing.T, fs billy.Filesystem, path string) string {
	t.Helper()
	data, err := util.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func v(s string) *version.Version {
	return version.Ptr(version.MustParse(s))
}

func coreResult(suggested string) diff.Result {
	return diff.Result{
		Name:             "core",
		OldVersion:       v("1.0.0"),
		SuggestedVersion: version.MustParse(suggested),
		Packages: []diff.Package{
			{Name: "com.acme.core.api", OldVersion: v("1.0.0"), SuggestedVersion: v("1.1.0"), Delta: diff.DeltaModified, Severity: diff.SeverityMinor, Exported: true},
			{Name: "com.acme.core.spi", OldVersion: v("1.0.0"), SuggestedVersion: v("1.1.0"), Delta: diff.DeltaModified, Severity: diff.SeverityMinor, Exported: true},
			{Name: "com.acme.core.fresh", SuggestedVersion: v("1.0.0"), Delta: diff.DeltaAdded, Severity: diff.SeverityMinor, Exported: true},
			{Name: "com.acme.core.internal", OldVersion: v("1.0.0"), SuggestedVersion: v("2.0.0"), Delta: diff.DeltaModified, Severity: diff.SeverityMajor},
			{Name: "com.acme.core.copied", SuggestedVersion: v("1.0.0"), Delta: diff.DeltaAdded, Severity: diff.SeverityMinor, Exported: true},
			{Name: "com.acme.core.gone", OldVersion: v("1.0.0"), Delta: diff.DeltaRemoved, Severity: diff.SeverityMajor, Exported: true},
		},
	}
}

func TestPropagateWritesNothingWhenVersionUnchanged(t *testing.T) {
	fs, project, refresher := setup(t)
	before := snapshot(t, fs)

	result := coreResult("1.0.0")
	updates, err := propagate.New(project, refresher, nil).Propagate(context.Background(), []diff.Result{result})
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if len(updates) != 0 || len(refresher.paths) != 0 {
		t.Fatalf("expected no writes, got updates=%v refreshes=%v", updates, refresher.paths)
	}
	after := snapshot(t, fs)
	if len(before) != len(after) {
		t.Fatalf("file set changed: before=%d after=%d", len(before), len(after))
	}
	for path, content := range before {
		if after[path] != content {
			t.Fatalf("%s changed from %q to %q", path, content, after[path])
		}
	}
}

func TestPropagateRewritesDescriptorAndMarkers(t *testing.T) {
	fs, project, refresher := setup(t)

	updates, err := propagate.New(project, refresher, nil).Propagate(context.Background(), []diff.Result{coreResult("1.1.0")})
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}

	if got := readFile(t, fs, "core.bnd"); got != "Bundle-Version: 1.1.0\n" {
		t.Fatalf("descriptor = %q", got)
	}
	if got := readFile(t, fs, "src/com/acme/core/api/packageinfo"); got != "version 1.1.0\n" {
		t.Fatalf("api marker = %q", got)
	}
	if got := readFile(t, fs, "bin/com/acme/core/api/packageinfo"); got != "version 1.1.0\n" {
		t.Fatalf("api output marker = %q", got)
	}
	if got := readFile(t, fs, "src/com/acme/core/fresh/packageinfo"); got != "version 1.0.0\n" {
		t.Fatalf("fresh marker = %q", got)
	}
	for _, path := range []string{
		"src/com/acme/core/internal/packageinfo",
		"src/com/acme/core/copied/packageinfo",
		"src/com/acme/core/gone/packageinfo",
		"bin/com/acme/core/spi/packageinfo",
	} {
		if _, err := fs.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s to be absent, stat err=%v", path, err)
		}
	}

	module, _ := project.Module("core")
	if module.Version == nil || module.Version.String() != "1.1.0" {
		t.Fatalf("project model not refreshed: %+v", module)
	}

	paths := make([]string, 0, len(updates))
	for _, u := range updates {
		paths = append(paths, u.Path)
	}
	sort.Strings(paths)
	refreshed := append([]string(nil), refresher.paths...)
	sort.Strings(refreshed)
	if len(paths) != 5 || len(refreshed) != len(paths) {
		t.Fatalf("unexpected updates %v / refreshes %v", paths, refreshed)
	}
	for i := range paths {
		if paths[i] != refreshed[i] {
			t.Fatalf("update %s was not refreshed (%v)", paths[i], refreshed)
		}
	}
}

func TestPropagateLeavesMatchingMarkerByteIdentical(t *testing.T) {
	fs, project, refresher := setup(t)
	const existing = "\n  version 1.1.0  \n# comment\n"
	if err := util.WriteFile(fs, "src/com/acme/core/spi/packageinfo", []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := propagate.New(project, refresher, nil).Propagate(context.Background(), []diff.Result{coreResult("1.1.0")}); err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if got := readFile(t, fs, "src/com/acme/core/spi/packageinfo"); got != existing {
		t.Fatalf("marker rewritten: %q", got)
	}
	for _, path := range refresher.paths {
		if path == "src/com/acme/core/spi/packageinfo" {
			t.Fatal("unchanged marker must not be refreshed")
		}
	}
}

func TestPropagateRejectsMacroDescriptor(t *testing.T) {
	fs, project, refresher := setup(t)
	result := diff.Result{
		Name:             "macro",
		OldVersion:       v("1.0.0"),
		SuggestedVersion: version.MustParse("2.0.0"),
	}

	_, err := propagate.New(project, refresher, nil).Propagate(context.Background(), []diff.Result{result})
	if !errors.Is(err, propagate.ErrMacroVersion) {
		t.Fatalf("expected ErrMacroVersion, got %v", err)
	}
	if got := readFile(t, fs, "macro.bnd"); got != "Bundle-Version: ${base}\n" {
		t.Fatalf("macro descriptor overwritten: %q", got)
	}
	if len(refresher.paths) != 0 {
		t.Fatalf("unexpected refreshes %v", refresher.paths)
	}
}

func TestPropagateSkipsModulesOutsideProject(t *testing.T) {
	_, project, refresher := setup(t)
	result := diff.Result{Name: "elsewhere", SuggestedVersion: version.MustParse("1.0.0")}

	updates, err := propagate.New(project, refresher, nil).Propagate(context.Background(), []diff.Result{result})
	if err != nil || len(updates) != 0 {
		t.Fatalf("expected skip, got updates=%v err=%v", updates, err)
	}
}

func TestMarkerVersion(t *testing.T) {
	if got, ok := propagate.MarkerVersion([]byte("\n\nversion 1.2.3\n")); !ok || got != "1.2.3" {
		t.Fatalf("MarkerVersion = %q, %v", got, ok)
	}
	if _, ok := propagate.MarkerVersion([]byte("# header\nversion 1.0\n")); ok {
		t.Fatal("expected first non-blank line to decide")
	}
}
