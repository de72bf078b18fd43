package release

import (
	"fmt"
	"strings"
)

// Summary is the operator-facing description of a finished run.
type Summary struct {
	Project    string
	UpdateOnly bool
	Repository string
	Status     Status
	// Lines holds "name-version" entries: released artifacts, or updated
	// module versions in update-only mode.
	Lines  []string
	Errors int
}

// NewSummary describes outcome for rc.
func NewSummary(rc *Context, outcome Outcome) Summary {
	s := Summary{
		Project:    rc.Project().Name,
		UpdateOnly: rc.UpdateOnly(),
		Status:     outcome.Status,
		Errors:     len(outcome.Errors),
	}
	if repo := rc.Repository(); repo != nil && !rc.UpdateOnly() {
		s.Repository = repo.Name()
	}
	if s.UpdateOnly {
		for _, result := range rc.Results() {
			if _, ok := rc.Project().Module(result.Name); ok && result.Changed() {
				s.Lines = append(s.Lines, result.Name+"-"+result.SuggestedVersion.String())
			}
		}
		return s
	}
	for _, artifact := range outcome.Released {
		s.Lines = append(s.Lines, artifact.String())
	}
	return s
}

// Mode names the run mode.
func (s Summary) Mode() string {
	if s.UpdateOnly {
		return "update versions"
	}
	return "release"
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", s.Project)
	fmt.Fprintf(&b, "Mode: %s\n", s.Mode())
	fmt.Fprintf(&b, "Status: %s\n", s.Status)
	switch {
	case s.UpdateOnly && len(s.Lines) == 0:
		b.WriteString("No module versions changed\n")
	case s.UpdateOnly:
		b.WriteString("Updated versions:\n")
	case len(s.Lines) == 0:
		b.WriteString("Nothing released\n")
	default:
		b.WriteString("Released:\n")
	}
	for _, line := range s.Lines {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	if s.Repository != "" {
		fmt.Fprintf(&b, "Repository: %s\n", s.Repository)
	}
	if s.Errors > 0 {
		fmt.Fprintf(&b, "Errors: %d\n", s.Errors)
	}
	return b.String()
}
