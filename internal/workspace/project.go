package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"releasekit/internal/version"
)

const (
	defaultSourceDir = "src"
	defaultOutputDir = "bin"
)

// Module is one build unit. Version is nil when the descriptor declares none
// or declares a macro; RawVersion always holds the descriptor text.
type Module struct {
	Name       string
	Descriptor string
	Version    *version.Version
	RawVersion string
}

// Project is a loaded workspace.
type Project struct {
	Name      string
	Root      string
	SourceDir string
	OutputDir string
	Build     BuildSpec

	fs      billy.Filesystem
	mu      sync.RWMutex
	modules []*Module
}

// Open loads the project rooted at dir on the local filesystem.
func Open(ctx context.Context, dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	return Load(ctx, osfs.New(abs), abs)
}

// Load reads the manifest and every module descriptor from fs. root is only
// used for display and for commands run in the project directory.
func Load(ctx context.Context, fs billy.Filesystem, root string) (*Project, error) {
	data, err := util.ReadFile(fs, ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ManifestFile, err)
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Name:      manifest.Name,
		Root:      root,
		SourceDir: firstNonEmpty(manifest.SourceDir, defaultSourceDir),
		OutputDir: firstNonEmpty(manifest.OutputDir, defaultOutputDir),
		Build:     manifest.Build,
		fs:        fs,
	}
	for _, decl := range manifest.Modules {
		p.modules = append(p.modules, &Module{Name: decl.Name, Descriptor: filepath.Clean(decl.Descriptor)})
	}
	if err := p.Reload(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// FS exposes the project filesystem.
func (p *Project) FS() billy.Filesystem {
	return p.fs
}

// Modules returns copies of the modules in manifest order.
func (p *Project) Modules() []Module {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Module, len(p.modules))
	for i, m := range p.modules {
		out[i] = *m
	}
	return out
}

// Module looks up a module by symbolic name.
func (p *Project) Module(name string) (Module, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, m := range p.modules {
		if m.Name == name {
			return *m, true
		}
	}
	return Module{}, false
}

// Reload re-reads every descriptor.
func (p *Project) Reload(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.modules {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.readModule(m); err != nil {
			return err
		}
	}
	return nil
}

// Refresh re-reads the module owning path, if any. Paths outside any
// descriptor are accepted and ignored.
func (p *Project) Refresh(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := filepath.Clean(path)
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.modules {
		if m.Descriptor == clean {
			return p.readModule(m)
		}
	}
	return nil
}

func (p *Project) readModule(m *Module) error {
	desc, err := ReadDescriptor(p.fs, m.Descriptor)
	if err != nil {
		return fmt.Errorf("module %s: %w", m.Name, err)
	}
	raw, ok := desc.Version()
	m.RawVersion = raw
	m.Version = nil
	if !ok || raw == "" || IsMacro(raw) {
		return nil
	}
	v, err := version.Parse(raw)
	if err != nil {
		return fmt.Errorf("module %s: %s: %w", m.Name, VersionKey, err)
	}
	m.Version = &v
	return nil
}

// PackagePath is the directory holding a package's sources.
func (p *Project) PackagePath(pkg string) string {
	return filepath.Join(p.SourceDir, packageDir(pkg))
}

// OutputPackagePath is the package directory inside the build output.
func (p *Project) OutputPackagePath(pkg string) string {
	return filepath.Join(p.OutputDir, packageDir(pkg))
}

func packageDir(pkg string) string {
	return filepath.FromSlash(strings.ReplaceAll(pkg, ".", "/"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
