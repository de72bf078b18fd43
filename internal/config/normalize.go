package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRelease()
	if err := c.normalizeRepositories(); err != nil {
		return err
	}
	c.normalizeGit()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRelease() {
	c.Release.DefaultRepository = strings.TrimSpace(c.Release.DefaultRepository)
	c.Release.DiffReport = strings.TrimSpace(c.Release.DiffReport)
	if c.Release.DiffReport != "" {
		if expanded, err := expandPath(c.Release.DiffReport); err == nil {
			c.Release.DiffReport = expanded
		}
	}
	argv := make([]string, 0, len(c.Release.DiffCommand))
	for _, arg := range c.Release.DiffCommand {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			argv = append(argv, trimmed)
		}
	}
	c.Release.DiffCommand = argv
}

func (c *Config) normalizeRepositories() error {
	for i := range c.Repositories {
		repo := &c.Repositories[i]
		repo.Name = strings.TrimSpace(repo.Name)
		repo.Type = strings.ToLower(strings.TrimSpace(repo.Type))
		repo.Reference = strings.TrimSpace(repo.Reference)
		repo.Endpoint = strings.TrimSpace(repo.Endpoint)
		repo.Bucket = strings.TrimSpace(repo.Bucket)
		repo.Prefix = strings.Trim(strings.TrimSpace(repo.Prefix), "/")
		if strings.TrimSpace(repo.Path) != "" {
			expanded, err := expandPath(repo.Path)
			if err != nil {
				return fmt.Errorf("repositories[%s].path: %w", repo.Name, err)
			}
			repo.Path = expanded
		}
		switch repo.Type {
		case RepositoryS3:
			if repo.Endpoint == "" {
				repo.Endpoint = defaultS3Endpoint
			}
			if repo.AccessKey == "" {
				if value, ok := os.LookupEnv("RELEASEKIT_S3_ACCESS_KEY"); ok {
					repo.AccessKey = strings.TrimSpace(value)
				}
			}
			if repo.SecretKey == "" {
				if value, ok := os.LookupEnv("RELEASEKIT_S3_SECRET_KEY"); ok {
					repo.SecretKey = strings.TrimSpace(value)
				}
			}
		case RepositoryOCI:
			if repo.Password == "" {
				if value, ok := os.LookupEnv("RELEASEKIT_OCI_PASSWORD"); ok {
					repo.Password = strings.TrimSpace(value)
				}
			}
		}
	}
	return nil
}

func (c *Config) normalizeGit() {
	c.Git.TagFormat = strings.TrimSpace(c.Git.TagFormat)
	if c.Git.TagFormat == "" {
		c.Git.TagFormat = defaultTagFormat
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
