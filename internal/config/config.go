package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Repository types understood by the release job.
const (
	RepositoryDir = "dir"
	RepositoryOCI = "oci"
	RepositoryS3  = "s3"
)

// Paths contains state, log, and cache directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	CacheDir string `toml:"cache_dir"`
}

// Release contains defaults for the release command.
type Release struct {
	DefaultRepository string   `toml:"default_repository"`
	DiffReport        string   `toml:"diff_report"`
	DiffCommand       []string `toml:"diff_command"`
	AssumeYes         bool     `toml:"assume_yes"`
}

// Repository describes one artifact repository. Only the fields relevant to
// Type are read.
type Repository struct {
	Name string `toml:"name"`
	Type string `toml:"type"`

	// dir
	Path string `toml:"path"`

	// oci: a local layout under Path when Reference is empty, otherwise a
	// remote registry namespace such as "ghcr.io/acme/bundles".
	Reference string `toml:"reference"`
	PlainHTTP bool   `toml:"plain_http"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`

	// s3
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Secure    bool   `toml:"secure"`
}

// Git contains configuration for the git tagging participant.
type Git struct {
	Enabled      bool   `toml:"enabled"`
	RequireClean bool   `toml:"require_clean"`
	TagFormat    string `toml:"tag_format"`
	Annotated    bool   `toml:"annotated"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// History contains configuration for the run ledger.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for releasekit.
//
// Configuration sections by subsystem:
//   - Paths: state, log and cache directories
//   - Release: default repository and diff report source
//   - Repositories: named artifact repositories (dir, oci, s3)
//   - Git: tag creation and clean-worktree checks
//   - Notifications: ntfy push notification settings
//   - History: sqlite run ledger
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Release       Release       `toml:"release"`
	Repositories  []Repository  `toml:"repositories"`
	Git           Git           `toml:"git"`
	Notifications Notifications `toml:"notifications"`
	History       History       `toml:"history"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("releasekit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, log and cache directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Repository looks up a configured repository by name.
func (c *Config) Repository(name string) (Repository, bool) {
	name = strings.TrimSpace(name)
	for _, repo := range c.Repositories {
		if repo.Name == name {
			return repo, true
		}
	}
	return Repository{}, false
}

// RepositoryNames lists configured repositories in declaration order.
func (c *Config) RepositoryNames() []string {
	names := make([]string, 0, len(c.Repositories))
	for _, repo := range c.Repositories {
		names = append(names, repo.Name)
	}
	return names
}

// HistoryPath is the sqlite ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath is the per-project release lock file.
func (c *Config) LockPath(project string) string {
	return filepath.Join(c.Paths.StateDir, sanitizeLockName(project)+".lock")
}

func sanitizeLockName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "release"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "releasekit")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/releasekit"
	}
	return filepath.Join(home, ".cache", "releasekit")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Sample returns the embedded sample configuration.
func Sample() string {
	return sampleConfig
}
