package releaserun

import (
	"fmt"
	"path/filepath"

	"releasekit/internal/config"
	"releasekit/internal/repository"
	"releasekit/internal/repository/dir"
	"releasekit/internal/repository/oci"
	"releasekit/internal/repository/s3"
	"releasekit/internal/services"
)

// OpenRepository builds the repository backend described by repo. Read-back
// copies of remote backends land under <cache_dir>/<name>.
func OpenRepository(cfg *config.Config, repo config.Repository) (repository.Repository, error) {
	cacheDir := ""
	if cfg != nil && cfg.Paths.CacheDir != "" {
		cacheDir = filepath.Join(cfg.Paths.CacheDir, repo.Name)
	}
	switch repo.Type {
	case config.RepositoryDir:
		return dir.New(repo.Name, repo.Path)
	case config.RepositoryOCI:
		return oci.New(repo.Name, oci.Options{
			Layout:    repo.Path,
			Reference: repo.Reference,
			PlainHTTP: repo.PlainHTTP,
			Username:  repo.Username,
			Password:  repo.Password,
			CacheDir:  cacheDir,
		})
	case config.RepositoryS3:
		return s3.New(repo.Name, s3.Options{
			Endpoint:  repo.Endpoint,
			Bucket:    repo.Bucket,
			Prefix:    repo.Prefix,
			AccessKey: repo.AccessKey,
			SecretKey: repo.SecretKey,
			Secure:    repo.Secure,
			CacheDir:  cacheDir,
		})
	default:
		return nil, services.Wrap(services.ErrConfiguration, "", "open repository",
			fmt.Sprintf("repository %q has unsupported type %q", repo.Name, repo.Type), nil)
	}
}
