package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"releasekit/internal/diff"
	"releasekit/internal/release"
)

// Plain is a line-oriented surface for pipes and non-interactive runs.
type Plain struct {
	out       io.Writer
	in        *bufio.Reader
	assumeYes bool
}

// NewPlain writes to out and reads answers from in. With assumeYes every
// confirmation is accepted without reading input.
func NewPlain(out io.Writer, in io.Reader, assumeYes bool) *Plain {
	if in == nil {
		in = strings.NewReader("")
	}
	return &Plain{out: out, in: bufio.NewReader(in), assumeYes: assumeYes}
}

// Confirm prints pending changes and asks how to proceed. End of input
// cancels.
func (p *Plain) Confirm(ctx context.Context, req Request) (Decision, error) {
	fmt.Fprintf(p.out, "Pending changes for %s\n", req.Project)
	if len(req.Results) == 0 {
		fmt.Fprintln(p.out, "No modules to release")
	} else {
		fmt.Fprintln(p.out, ChangesTable(req.Results))
	}

	decision := Decision{Repository: req.DefaultRepository, Overrides: diff.Overrides{}}
	if p.assumeYes {
		decision.Action = ActionRelease
		if req.UpdateOnly {
			decision.Action = ActionUpdateOnly
		}
		return decision, nil
	}

	prompt := fmt.Sprintf("Release to %s? [r]elease, [u]pdate versions only, [c]ancel: ", dash(req.DefaultRepository))
	if req.UpdateOnly {
		prompt = "Update versions? [u]pdate versions only, [c]ancel: "
	}
	for {
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}
		fmt.Fprint(p.out, prompt)
		line, err := p.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Decision{}, fmt.Errorf("read answer: %w", err)
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		switch {
		case answer == "" && errors.Is(err, io.EOF):
			fmt.Fprintln(p.out)
			decision.Action = ActionCancel
			return decision, nil
		case (answer == "r" || answer == "release" || answer == "y" || answer == "yes") && !req.UpdateOnly:
			decision.Action = ActionRelease
			return decision, nil
		case answer == "u" || answer == "update":
			decision.Action = ActionUpdateOnly
			return decision, nil
		case answer == "c" || answer == "cancel" || answer == "n" || answer == "no":
			decision.Action = ActionCancel
			return decision, nil
		}
		if errors.Is(err, io.EOF) {
			decision.Action = ActionCancel
			return decision, nil
		}
		fmt.Fprintf(p.out, "unrecognized answer %q\n", answer)
	}
}

// ShowErrors prints the error report.
func (p *Plain) ShowErrors(project string, phase release.Phase, records []release.ErrorRecord) error {
	_, err := fmt.Fprint(p.out, ErrorReport(project, phase, records))
	return err
}

// ShowSummary prints the run summary.
func (p *Plain) ShowSummary(summary release.Summary) error {
	_, err := fmt.Fprint(p.out, summary.String())
	return err
}
