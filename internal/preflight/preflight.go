package preflight

import (
	"context"
	"path/filepath"
	"strings"

	"releasekit/internal/config"
	"releasekit/internal/workspace"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Target describes what a run is about to touch.
type Target struct {
	Project    *workspace.Project
	Repository *config.Repository
	UpdateOnly bool
}

// RunAll executes every check that applies to target. Build and repository
// checks are skipped for update-only runs.
func RunAll(ctx context.Context, cfg *config.Config, target Target) []Result {
	if target.Project == nil {
		return nil
	}
	project := target.Project

	var results []Result
	results = append(results, CheckDirectoryAccess("Project directory", project.Root))
	results = append(results, CheckDirectoryAccess("Source directory", filepath.Join(project.Root, project.SourceDir)))

	if cfg != nil && cfg.History.Enabled {
		results = append(results, CheckCreatableDirectory("State directory", cfg.Paths.StateDir))
	}

	if target.UpdateOnly {
		return results
	}

	results = append(results, CheckCreatableDirectory("Output directory", filepath.Join(project.Root, project.OutputDir)))
	if len(project.Build.Module) > 0 {
		results = append(results, CheckCommand("Build command", project.Build.Module[0]))
	}
	if target.Repository != nil {
		results = append(results, CheckRepository(ctx, *target.Repository))
	}
	return results
}

// CheckRepository checks that a configured repository can receive artifacts.
func CheckRepository(ctx context.Context, repo config.Repository) Result {
	name := "Repository " + repo.Name
	switch repo.Type {
	case config.RepositoryDir:
		return CheckCreatableDirectory(name, repo.Path)
	case config.RepositoryOCI:
		if repo.Reference == "" {
			return CheckCreatableDirectory(name, repo.Path)
		}
		return CheckEndpoint(ctx, name, endpointURL(registryHost(repo.Reference), !repo.PlainHTTP)+"/v2/")
	case config.RepositoryS3:
		return CheckEndpoint(ctx, name, endpointURL(repo.Endpoint, repo.Secure)+"/"+repo.Bucket)
	default:
		return Result{Name: name, Detail: "unknown repository type " + repo.Type}
	}
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func registryHost(reference string) string {
	host, _, _ := strings.Cut(reference, "/")
	return host
}

func endpointURL(host string, secure bool) string {
	if strings.Contains(host, "://") {
		return strings.TrimRight(host, "/")
	}
	if secure {
		return "https://" + host
	}
	return "http://" + host
}
