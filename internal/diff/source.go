package diff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Source produces the diff results for a release.
type Source interface {
	Results(ctx context.Context) ([]Result, error)
}

// FileSource reads a report from disk.
type FileSource struct {
	Path string
}

// Results implements Source.
func (s FileSource) Results(ctx context.Context) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open diff report: %w", err)
	}
	defer file.Close()
	return Decode(file)
}

// CommandSource runs a diff tool and decodes its stdout.
type CommandSource struct {
	Argv []string
	Dir  string
}

// Results implements Source.
func (s CommandSource) Results(ctx context.Context) ([]Result, error) {
	if len(s.Argv) == 0 {
		return nil, errors.New("diff command is empty")
	}
	cmd := exec.CommandContext(ctx, s.Argv[0], s.Argv[1:]...)
	cmd.Dir = s.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("run diff command %q: %w: %s", strings.Join(s.Argv, " "), err, detail)
		}
		return nil, fmt.Errorf("run diff command %q: %w", strings.Join(s.Argv, " "), err)
	}
	return Decode(&stdout)
}

// Static serves fixed results; used when results are already in memory.
type Static []Result

// Results implements Source.
func (s Static) Results(context.Context) ([]Result, error) {
	out := make([]Result, len(s))
	for i, r := range s {
		out[i] = r.Clone()
	}
	return out, nil
}
