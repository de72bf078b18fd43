package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"releasekit/internal/release"
	"releasekit/internal/ui"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Surface runs the confirmation screen as a bubbletea program and prints
// reports with terminal styling.
type Surface struct {
	in  io.Reader
	out io.Writer
}

// NewSurface reads keys from in and draws to out.
func NewSurface(in io.Reader, out io.Writer) *Surface {
	return &Surface{in: in, out: out}
}

// Confirm implements ui.Surface.
func (s *Surface) Confirm(ctx context.Context, req ui.Request) (ui.Decision, error) {
	program := tea.NewProgram(NewModel(req),
		tea.WithContext(ctx),
		tea.WithInput(s.in),
		tea.WithOutput(s.out),
	)
	final, err := program.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ui.Decision{}, ctx.Err()
		}
		return ui.Decision{}, fmt.Errorf("confirmation screen: %w", err)
	}
	model, ok := final.(Model)
	if !ok || !model.Done() {
		return ui.Decision{Action: ui.ActionCancel}, nil
	}
	return model.Decision(), nil
}

// ShowErrors implements ui.Surface.
func (s *Surface) ShowErrors(project string, phase release.Phase, records []release.ErrorRecord) error {
	_, err := fmt.Fprintln(s.out, failureStyle.Render("Release reported errors")+"\n"+ui.ErrorReport(project, phase, records))
	return err
}

// ShowSummary implements ui.Surface.
func (s *Surface) ShowSummary(summary release.Summary) error {
	style := successStyle
	if summary.Status != release.StatusSucceeded {
		style = failureStyle
	}
	_, err := fmt.Fprintln(s.out, style.Render(fmt.Sprintf("%s %s", summary.Mode(), summary.Status))+"\n"+summary.String())
	return err
}
