package participants

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"releasekit/internal/config"
	"releasekit/internal/logging"
	"releasekit/internal/release"
	"releasekit/internal/repository"
)

const (
	defaultTaggerName  = "releasekit"
	defaultTaggerEmail = "releasekit@localhost"
)

// GitTagger tags HEAD of the project repository for every released artifact
// and, when configured, refuses to start on a dirty worktree.
type GitTagger struct {
	cfg     config.Git
	logger  *slog.Logger
	repo    *git.Repository
	created []string
}

// NewGitTagger returns the git participant.
func NewGitTagger(cfg config.Git, logger *slog.Logger) *GitTagger {
	if logger == nil {
		logger = logging.NewNop()
	}
	if strings.TrimSpace(cfg.TagFormat) == "" {
		cfg.TagFormat = "{name}/{version}"
	}
	return &GitTagger{cfg: cfg, logger: logging.NewComponentLogger(logger, "git")}
}

// Name implements release.Participant.
func (g *GitTagger) Name() string { return "git" }

// Created lists the tags created by this run.
func (g *GitTagger) Created() []string {
	return append([]string(nil), g.created...)
}

// TagName renders the configured tag format.
func (g *GitTagger) TagName(name, version string) string {
	return strings.NewReplacer("{name}", name, "{version}", version).Replace(g.cfg.TagFormat)
}

// PreUpdateVersions opens the repository and checks the worktree.
func (g *GitTagger) PreUpdateVersions(ctx context.Context, rc *release.Context) bool {
	repo, err := git.PlainOpenWithOptions(rc.Project().Root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		rc.AddError("", "", fmt.Sprintf("open git repository at %s: %v", rc.Project().Root, err))
		return false
	}
	g.repo = repo
	if !g.cfg.RequireClean {
		return true
	}

	dirty, err := dirtyFiles(repo)
	if err != nil {
		rc.AddError("", "", fmt.Sprintf("git status: %v", err))
		return false
	}
	if len(dirty) == 0 {
		return true
	}
	logging.WarnWithContext(logging.WithContext(ctx, g.logger), "worktree has uncommitted changes", "git_dirty",
		logging.Int("files", len(dirty)),
		logging.String(logging.FieldErrorHint, "commit or stash changes, or set git.require_clean = false"),
	)
	rc.AddErrorTable("", "", fmt.Sprintf("git worktree has %d uncommitted change(s)", len(dirty)),
		[]string{"File", "Staging", "Worktree"}, dirty)
	return false
}

// dirtyFiles lists tracked files with staged or unstaged changes. Untracked
// files are ignored.
func dirtyFiles(repo *git.Repository) ([][]string, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	status, err := worktree.Status()
	if err != nil {
		return nil, err
	}
	var rows [][]string
	for path, fs := range status {
		if fs.Staging == git.Untracked && fs.Worktree == git.Untracked {
			continue
		}
		if fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified {
			continue
		}
		rows = append(rows, []string{path, statusLabel(fs.Staging), statusLabel(fs.Worktree)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return rows, nil
}

func statusLabel(code git.StatusCode) string {
	switch code {
	case git.Unmodified:
		return "-"
	case git.Added:
		return "added"
	case git.Modified:
		return "modified"
	case git.Deleted:
		return "deleted"
	case git.Renamed:
		return "renamed"
	case git.Copied:
		return "copied"
	case git.UpdatedButUnmerged:
		return "unmerged"
	default:
		return string(rune(code))
	}
}

// PostJarRelease tags HEAD for the released artifact. An existing tag on the
// same commit is kept; one on another commit is reported and left alone.
func (g *GitTagger) PostJarRelease(ctx context.Context, _ *release.Context, artifact *repository.Artifact) {
	if g.repo == nil || artifact == nil {
		return
	}
	logger := logging.WithContext(ctx, g.logger)
	name := g.TagName(artifact.Name, artifact.Version.String())
	if err := g.createTag(name, artifact); err != nil {
		logging.WarnWithContext(logger, "git tag not created", "git_tag_failed",
			logging.String("tag", name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "artifact is released but untagged"),
		)
		return
	}
	logger.Info("git tag created", logging.String("tag", name))
}

func (g *GitTagger) createTag(name string, artifact *repository.Artifact) error {
	head, err := g.repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}

	existing, err := g.repo.Tag(name)
	switch {
	case err == nil:
		target, err := g.tagTarget(existing)
		if err != nil {
			return err
		}
		if target == head.Hash() {
			return nil
		}
		return fmt.Errorf("tag %s already points at %s", name, target.String()[:12])
	case !errors.Is(err, git.ErrTagNotFound):
		return fmt.Errorf("lookup tag: %w", err)
	}

	var opts *git.CreateTagOptions
	if g.cfg.Annotated {
		opts = &git.CreateTagOptions{
			Tagger:  g.tagger(),
			Message: fmt.Sprintf("Release %s %s\n\nDigest: %s\n", artifact.Name, artifact.Version, artifact.Digest),
		}
	}
	if _, err := g.repo.CreateTag(name, head.Hash(), opts); err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	g.created = append(g.created, name)
	return nil
}

func (g *GitTagger) tagTarget(ref *plumbing.Reference) (plumbing.Hash, error) {
	obj, err := g.repo.TagObject(ref.Hash())
	switch {
	case err == nil:
		return obj.Target, nil
	case errors.Is(err, plumbing.ErrObjectNotFound):
		return ref.Hash(), nil
	default:
		return plumbing.ZeroHash, fmt.Errorf("read tag: %w", err)
	}
}

func (g *GitTagger) tagger() *object.Signature {
	sig := &object.Signature{Name: defaultTaggerName, Email: defaultTaggerEmail, When: time.Now()}
	if cfg, err := g.repo.Config(); err == nil {
		if cfg.User.Name != "" {
			sig.Name = cfg.User.Name
		}
		if cfg.User.Email != "" {
			sig.Email = cfg.User.Email
		}
	}
	return sig
}

// PostRelease logs the tags created during the run.
func (g *GitTagger) PostRelease(ctx context.Context, _ *release.Context, _ bool) {
	if len(g.created) == 0 {
		return
	}
	logging.WithContext(ctx, g.logger).Info("git tags created",
		logging.Int("count", len(g.created)),
		logging.String("tags", strings.Join(g.created, ", ")),
	)
}
