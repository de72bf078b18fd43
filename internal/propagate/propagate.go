package propagate

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"releasekit/internal/diff"
	"releasekit/internal/logging"
	"releasekit/internal/version"
	"releasekit/internal/workspace"
)

// MarkerFile is the per-package version marker file name.
const MarkerFile = "packageinfo"

const markerPrefix = "version "

// ErrMacroVersion reports a descriptor whose version is a macro or variable
// reference. Such descriptors are never rewritten.
var ErrMacroVersion = errors.New("descriptor version is a macro")

// Refresher is notified after each file written.
type Refresher interface {
	Refresh(ctx context.Context, path string) error
}

// Kind identifies what an Update wrote.
type Kind string

const (
	KindDescriptor Kind = "descriptor"
	KindMarker     Kind = "marker"
	KindOutput     Kind = "output"
)

// Update records one file written.
type Update struct {
	Module  string
	Package string
	Kind    Kind
	Path    string
	Version version.Version
}

// Propagator rewrites descriptors and package markers for changed modules.
type Propagator struct {
	project   *workspace.Project
	fs        billy.Filesystem
	refresher Refresher
	logger    *slog.Logger
}

// New returns a propagator writing through the project's filesystem. A nil
// refresher refreshes the project model itself.
func New(project *workspace.Project, refresher Refresher, logger *slog.Logger) *Propagator {
	if refresher == nil {
		refresher = project
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Propagator{
		project:   project,
		fs:        project.FS(),
		refresher: refresher,
		logger:    logging.NewComponentLogger(logger, "propagate"),
	}
}

// Propagate applies every result whose suggested version differs from its old
// version. Results for modules the project does not declare are skipped.
// Updates made before an error are returned alongside it.
func (p *Propagator) Propagate(ctx context.Context, results []diff.Result) ([]Update, error) {
	var updates []Update
	for _, result := range results {
		if err := ctx.Err(); err != nil {
			return updates, err
		}
		if !result.Changed() {
			p.logger.Debug("module version unchanged",
				logging.String(logging.FieldModule, result.Name),
			)
			continue
		}
		module, ok := p.project.Module(result.Name)
		if !ok {
			p.logger.Debug("module not in project; skipping",
				logging.String(logging.FieldModule, result.Name),
			)
			continue
		}
		moduleUpdates, err := p.propagateModule(ctx, module, result)
		updates = append(updates, moduleUpdates...)
		if err != nil {
			return updates, fmt.Errorf("module %s: %w", result.Name, err)
		}
	}
	return updates, nil
}

func (p *Propagator) propagateModule(ctx context.Context, module workspace.Module, result diff.Result) ([]Update, error) {
	desc, err := workspace.ReadDescriptor(p.fs, module.Descriptor)
	if err != nil {
		return nil, err
	}
	if current, _ := desc.Version(); workspace.IsMacro(current) {
		return nil, fmt.Errorf("%w: %s=%s in %s", ErrMacroVersion, workspace.VersionKey, current, module.Descriptor)
	}

	var updates []Update
	for _, pkg := range result.Packages {
		if !pkg.NeedsMarker() {
			continue
		}
		written, err := p.writeMarker(ctx, module.Name, pkg)
		updates = append(updates, written...)
		if err != nil {
			return updates, err
		}
	}

	update, err := p.writeDescriptor(ctx, module, desc, result.SuggestedVersion)
	if update != nil {
		updates = append(updates, *update)
	}
	return updates, err
}

func (p *Propagator) writeDescriptor(ctx context.Context, module workspace.Module, desc *workspace.Descriptor, target version.Version) (*Update, error) {
	current, _ := desc.Version()
	if current == target.String() {
		return nil, nil
	}
	desc.SetVersion(target.String())
	if err := desc.Save(p.fs); err != nil {
		return nil, err
	}
	p.logger.Info("descriptor version updated",
		logging.String(logging.FieldModule, module.Name),
		logging.String("path", module.Descriptor),
		logging.String("previous", current),
		logging.String(logging.FieldVersion, target.String()),
	)
	if err := p.refresher.Refresh(ctx, module.Descriptor); err != nil {
		return nil, fmt.Errorf("refresh %s: %w", module.Descriptor, err)
	}
	return &Update{Module: module.Name, Kind: KindDescriptor, Path: module.Descriptor, Version: target}, nil
}

func (p *Propagator) writeMarker(ctx context.Context, module string, pkg diff.Package) ([]Update, error) {
	target := *pkg.SuggestedVersion
	dir := p.project.PackagePath(pkg.Name)
	if info, err := p.fs.Stat(dir); err != nil || !info.IsDir() {
		// No sources: the package's classes come from elsewhere.
		p.logger.Debug("package source directory missing; marker skipped",
			logging.String(logging.FieldModule, module),
			logging.String("package", pkg.Name),
			logging.String("path", dir),
		)
		return nil, nil
	}

	path := filepath.Join(dir, MarkerFile)
	existing, err := util.ReadFile(p.fs, path)
	switch {
	case err == nil:
		if token, ok := MarkerVersion(existing); ok && token == target.String() {
			return nil, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read marker %s: %w", path, err)
	}

	content := []byte(markerPrefix + target.String() + "\n")
	if err := util.WriteFile(p.fs, path, content, 0o644); err != nil {
		return nil, fmt.Errorf("write marker %s: %w", path, err)
	}
	if err := p.refresher.Refresh(ctx, path); err != nil {
		return nil, fmt.Errorf("refresh %s: %w", path, err)
	}
	updates := []Update{{Module: module, Package: pkg.Name, Kind: KindMarker, Path: path, Version: target}}

	output := filepath.Join(p.project.OutputPackagePath(pkg.Name), MarkerFile)
	if err := p.fs.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return updates, fmt.Errorf("create %s: %w", filepath.Dir(output), err)
	}
	if err := util.WriteFile(p.fs, output, content, 0o644); err != nil {
		return updates, fmt.Errorf("write marker %s: %w", output, err)
	}
	if err := p.refresher.Refresh(ctx, output); err != nil {
		return updates, fmt.Errorf("refresh %s: %w", output, err)
	}
	updates = append(updates, Update{Module: module, Package: pkg.Name, Kind: KindOutput, Path: output, Version: target})

	p.logger.Info("package marker updated",
		logging.String(logging.FieldModule, module),
		logging.String("package", pkg.Name),
		logging.String(logging.FieldVersion, target.String()),
	)
	return updates, nil
}

// MarkerVersion returns the version token of the first non-blank line when
// that line is a "version <v>" declaration.
func MarkerVersion(data []byte) (string, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, markerPrefix) {
			return "", false
		}
		return strings.TrimSpace(strings.TrimPrefix(line, markerPrefix)), true
	}
	return "", false
}
