package workspace

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// VersionKey is the descriptor property holding the module version.
const VersionKey = "Bundle-Version"

// Descriptor is an in-memory key/value property file. Lines are kept as read
// so saving rewrites nothing but the edited value.
type Descriptor struct {
	Path  string
	lines []string
	// trailing newline of the original file
	eol bool
}

// ParseDescriptor builds a descriptor from file contents.
func ParseDescriptor(path string, data []byte) *Descriptor {
	text := string(data)
	d := &Descriptor{Path: path, eol: strings.HasSuffix(text, "\n")}
	text = strings.TrimSuffix(text, "\n")
	if text != "" {
		d.lines = strings.Split(text, "\n")
	}
	return d
}

// ReadDescriptor loads a descriptor from fs.
func ReadDescriptor(fs billy.Filesystem, path string) (*Descriptor, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor %s: %w", path, err)
	}
	return ParseDescriptor(path, data), nil
}

type property struct {
	line int
	// key as written, including any spacing before the separator
	key   string
	sep   string
	value string
	// "\r" on CRLF lines
	cr string
}

// lookup finds key case-insensitively. Keys end at the first ':' or '='.
func (d *Descriptor) lookup(key string) (property, bool) {
	for i, line := range d.lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || trimmed[0] == '#' || trimmed[0] == '!' {
			continue
		}
		idx := strings.IndexAny(trimmed, ":=")
		if idx < 0 {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(trimmed[:idx]), key) {
			continue
		}
		rest := trimmed[idx+1:]
		value := strings.TrimLeft(rest, " \t")
		sep := trimmed[idx:idx+1] + rest[:len(rest)-len(value)]
		prop := property{line: i, key: trimmed[:idx], sep: sep, value: strings.TrimRight(value, " \t\r")}
		if strings.HasSuffix(line, "\r") {
			prop.cr = "\r"
		}
		return prop, true
	}
	return property{}, false
}

// Get returns the raw value for key.
func (d *Descriptor) Get(key string) (string, bool) {
	prop, ok := d.lookup(key)
	return prop.value, ok
}

// Set replaces the value for key, keeping the original key spelling and
// separator. A missing key is appended as "key: value".
func (d *Descriptor) Set(key, value string) {
	if prop, ok := d.lookup(key); ok {
		indent := d.lines[prop.line][:len(d.lines[prop.line])-len(strings.TrimLeft(d.lines[prop.line], " \t"))]
		d.lines[prop.line] = indent + prop.key + prop.sep + value + prop.cr
		return
	}
	if d.crlf() {
		last := len(d.lines) - 1
		if !strings.HasSuffix(d.lines[last], "\r") {
			d.lines[last] += "\r"
		}
		d.lines = append(d.lines, key+": "+value+"\r")
	} else {
		d.lines = append(d.lines, key+": "+value)
	}
	d.eol = true
}

// crlf reports whether the file uses CRLF line endings, judged by its first
// line.
func (d *Descriptor) crlf() bool {
	return len(d.lines) > 0 && strings.HasSuffix(d.lines[0], "\r")
}

// Version returns the bundle-version value.
func (d *Descriptor) Version() (string, bool) {
	return d.Get(VersionKey)
}

// SetVersion rewrites the bundle-version value.
func (d *Descriptor) SetVersion(value string) {
	d.Set(VersionKey, value)
}

// Bytes renders the descriptor.
func (d *Descriptor) Bytes() []byte {
	text := strings.Join(d.lines, "\n")
	if d.eol && len(d.lines) > 0 {
		text += "\n"
	}
	return []byte(text)
}

type syncer interface {
	Sync() error
}

// Save writes the descriptor back to fs and flushes it to stable storage when
// the filesystem supports it.
func (d *Descriptor) Save(fs billy.Filesystem) error {
	file, err := fs.OpenFile(d.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open descriptor %s: %w", d.Path, err)
	}
	if _, err := file.Write(d.Bytes()); err != nil {
		_ = file.Close()
		return fmt.Errorf("write descriptor %s: %w", d.Path, err)
	}
	if s, ok := file.(syncer); ok {
		if err := s.Sync(); err != nil {
			_ = file.Close()
			return fmt.Errorf("sync descriptor %s: %w", d.Path, err)
		}
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close descriptor %s: %w", d.Path, err)
	}
	return nil
}

// IsMacro reports whether a descriptor value references a variable or macro
// that is only resolved at build time.
func IsMacro(value string) bool {
	return strings.Contains(value, "$")
}
