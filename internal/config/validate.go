package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRepositories(); err != nil {
		return err
	}
	if err := c.validateRelease(); err != nil {
		return err
	}
	if err := c.validateGit(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRepositories() error {
	seen := make(map[string]struct{}, len(c.Repositories))
	for i, repo := range c.Repositories {
		if repo.Name == "" {
			return fmt.Errorf("repositories[%d].name must be set", i)
		}
		if _, dup := seen[repo.Name]; dup {
			return fmt.Errorf("repositories: duplicate name %q", repo.Name)
		}
		seen[repo.Name] = struct{}{}

		switch repo.Type {
		case RepositoryDir:
			if repo.Path == "" {
				return fmt.Errorf("repositories[%s].path must be set for dir repositories", repo.Name)
			}
		case RepositoryOCI:
			if repo.Path == "" && repo.Reference == "" {
				return fmt.Errorf("repositories[%s] needs path (OCI layout) or reference (registry)", repo.Name)
			}
		case RepositoryS3:
			if repo.Bucket == "" {
				return fmt.Errorf("repositories[%s].bucket must be set for s3 repositories", repo.Name)
			}
		case "":
			return fmt.Errorf("repositories[%s].type must be set (dir, oci, s3)", repo.Name)
		default:
			return fmt.Errorf("repositories[%s].type: unsupported value %q", repo.Name, repo.Type)
		}
	}
	return nil
}

func (c *Config) validateRelease() error {
	name := c.Release.DefaultRepository
	if name == "" {
		return nil
	}
	if _, ok := c.Repository(name); !ok {
		return fmt.Errorf("release.default_repository %q is not a configured repository", name)
	}
	return nil
}

func (c *Config) validateGit() error {
	if !c.Git.Enabled {
		return nil
	}
	if !strings.Contains(c.Git.TagFormat, "{version}") {
		return errors.New("git.tag_format must contain {version}")
	}
	return nil
}
