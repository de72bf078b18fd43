// Package build triggers project and module builds and locates the artifact a
// module build produced.
package build

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"releasekit/internal/logging"
	"releasekit/internal/repository"
	"releasekit/internal/workspace"
)

// Report collects diagnostics from one build.
type Report struct {
	Errors   []string
	Warnings []string
}

// Errorf appends an error.
func (r *Report) Errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Warnf appends a warning.
func (r *Report) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// OK reports whether no errors were collected.
func (r *Report) OK() bool {
	return r == nil || len(r.Errors) == 0
}

// Trigger runs builds.
type Trigger interface {
	// FullBuild builds the whole project. The error is reserved for failures
	// to run the build at all; compile problems land in the report.
	FullBuild(ctx context.Context, project *workspace.Project) (*Report, error)
	// BuildModule builds one module. The artifact is nil when nothing usable
	// was produced.
	BuildModule(ctx context.Context, project *workspace.Project, module workspace.Module) (*repository.Artifact, *Report)
}

const (
	placeholderModule  = "{module}"
	placeholderVersion = "{version}"
	defaultArtifact    = "{module}-{version}.jar"
)

// CommandTrigger runs the argv lists declared in the project manifest.
type CommandTrigger struct {
	logger *slog.Logger
	env    []string
}

// NewCommandTrigger returns a trigger; extra env entries are appended to the
// process environment for every command.
func NewCommandTrigger(logger *slog.Logger, env ...string) *CommandTrigger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CommandTrigger{logger: logging.NewComponentLogger(logger, "build"), env: env}
}

// FullBuild implements Trigger.
func (t *CommandTrigger) FullBuild(ctx context.Context, project *workspace.Project) (*Report, error) {
	report := &Report{}
	argv := project.Build.Full
	if len(argv) == 0 {
		t.logger.Debug("no full build command configured")
		return report, nil
	}
	if err := t.run(ctx, project.Root, argv, report); err != nil {
		return report, err
	}
	return report, nil
}

// BuildModule implements Trigger.
func (t *CommandTrigger) BuildModule(ctx context.Context, project *workspace.Project, module workspace.Module) (*repository.Artifact, *Report) {
	report := &Report{}
	if module.Version == nil {
		report.Errorf("module %s declares no concrete version (%q)", module.Name, module.RawVersion)
		return nil, report
	}
	ver := module.Version.String()
	replacer := strings.NewReplacer(placeholderModule, module.Name, placeholderVersion, ver)

	if argv := project.Build.Module; len(argv) > 0 {
		expanded := make([]string, len(argv))
		for i, arg := range argv {
			expanded[i] = replacer.Replace(arg)
		}
		if err := t.run(ctx, project.Root, expanded, report); err != nil {
			report.Errorf("%v", err)
		}
		if !report.OK() {
			return nil, report
		}
	}

	pattern := project.Build.Artifact
	if strings.TrimSpace(pattern) == "" {
		pattern = filepath.Join(project.OutputDir, defaultArtifact)
	}
	path := replacer.Replace(pattern)
	if !filepath.IsAbs(path) {
		path = filepath.Join(project.Root, path)
	}
	artifact, err := repository.NewArtifact(module.Name, *module.Version, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.logger.Warn("build produced no artifact",
				logging.String(logging.FieldModule, module.Name),
				logging.String("path", path),
			)
			return nil, report
		}
		report.Errorf("inspect artifact %s: %v", path, err)
		return nil, report
	}
	t.logger.Info("module built",
		logging.String(logging.FieldModule, module.Name),
		logging.String(logging.FieldVersion, ver),
		logging.String("artifact", path),
		logging.Int64("size", artifact.Size),
	)
	return artifact, report
}

// run executes argv in dir. Output lines starting with "error:" or
// "warning:" become report entries; a non-zero exit without any error line
// records the exit status and the last output line.
func (t *CommandTrigger) run(ctx context.Context, dir string, argv []string, report *Report) error {
	t.logger.Debug("running build command",
		logging.String("command", strings.Join(argv, " ")),
		logging.String("dir", dir),
	)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), t.env...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	runErr := cmd.Run()

	before := len(report.Errors)
	var last string
	scanner := bufio.NewScanner(&output)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		last = line
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "error:"):
			report.Errors = append(report.Errors, strings.TrimSpace(line[len("error:"):]))
		case strings.HasPrefix(lower, "warning:"):
			report.Warnings = append(report.Warnings, strings.TrimSpace(line[len("warning:"):]))
		}
	}

	if runErr == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		return fmt.Errorf("run %q: %w", strings.Join(argv, " "), runErr)
	}
	if len(report.Errors) == before {
		msg := fmt.Sprintf("%q exited with status %d", strings.Join(argv, " "), exitErr.ExitCode())
		if last != "" {
			msg += ": " + last
		}
		report.Errors = append(report.Errors, msg)
	}
	return nil
}
