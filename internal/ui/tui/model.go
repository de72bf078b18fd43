package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"releasekit/internal/diff"
	"releasekit/internal/ui"
	"releasekit/internal/version"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	chosenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	changedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	fixedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	rowIndent     = "    "
	cursorMarker  = "> "
	noCursorSpace = "  "
)

// row is one editable line: a module version or a package version.
type row struct {
	module     string
	pkg        string
	old        *version.Version
	oldRange   string
	newRange   string
	candidates []version.Version
	initial    int
	index      int
	editable   bool
}

func (r row) chosen() version.Version {
	return r.candidates[r.index]
}

// Model is the confirmation screen. It never edits the diff results; choices
// are returned as overrides.
type Model struct {
	req       ui.Request
	rows      []row
	cursor    int
	repoIndex int
	keys      keyMap
	help      help.Model
	decision  ui.Decision
	done      bool
	message   string
}

// NewModel builds the screen for req.
func NewModel(req ui.Request) Model {
	m := Model{req: req, keys: newKeyMap(), help: help.New()}
	for _, result := range req.Results {
		m.rows = append(m.rows, newRow(result.Name, "", result.OldVersion, "", "", result.ModuleCandidates(), result.SuggestedVersion, true))
		for _, pkg := range result.ChangedPackages() {
			suggested := pkg.SuggestedVersion
			candidates := result.PackageCandidates(pkg)
			if suggested == nil {
				if pkg.OldVersion == nil {
					continue
				}
				suggested = pkg.OldVersion
			}
			m.rows = append(m.rows, newRow(result.Name, pkg.Name, pkg.OldVersion, pkg.OldRange, pkg.SuggestedRange, candidates, *suggested, pkg.Editable()))
		}
	}
	for i, name := range req.Repositories {
		if name == req.DefaultRepository {
			m.repoIndex = i
		}
	}
	return m
}

func newRow(module, pkg string, old *version.Version, oldRange, newRange string, candidates []version.Version, suggested version.Version, editable bool) row {
	r := row{module: module, pkg: pkg, old: old, oldRange: oldRange, newRange: newRange, candidates: candidates, editable: editable}
	r.initial = -1
	for i, c := range candidates {
		if c.Equal(suggested) {
			r.initial = i
		}
	}
	if r.initial < 0 {
		r.candidates = append([]version.Version{suggested}, candidates...)
		r.initial = 0
	}
	r.index = r.initial
	return r
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		m.message = ""
		switch {
		case key.Matches(msg, m.keys.Cancel):
			return m.finish(ui.ActionCancel)
		case key.Matches(msg, m.keys.Release):
			if m.req.UpdateOnly {
				m.message = "update-only run: press u to write versions"
				return m, nil
			}
			if m.repository() == "" {
				m.message = "no repository configured"
				return m, nil
			}
			return m.finish(ui.ActionRelease)
		case key.Matches(msg, m.keys.Update):
			return m.finish(ui.ActionUpdateOnly)
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Next):
			m.cycle(1)
		case key.Matches(msg, m.keys.Prev):
			m.cycle(-1)
		case key.Matches(msg, m.keys.Repo):
			if n := len(m.req.Repositories); n > 0 {
				m.repoIndex = (m.repoIndex + 1) % n
			}
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

func (m *Model) cycle(step int) {
	if len(m.rows) == 0 {
		return
	}
	r := &m.rows[m.cursor]
	if !r.editable {
		m.message = fmt.Sprintf("%s is fixed by the comparison", r.pkg)
		return
	}
	n := len(r.candidates)
	r.index = (r.index + step + n) % n
}

func (m Model) repository() string {
	if len(m.req.Repositories) == 0 {
		return m.req.DefaultRepository
	}
	return m.req.Repositories[m.repoIndex]
}

func (m Model) finish(action ui.Action) (tea.Model, tea.Cmd) {
	decision := ui.Decision{Action: action, Repository: m.repository(), Overrides: diff.Overrides{}}
	for _, r := range m.rows {
		if r.index == r.initial {
			continue
		}
		if r.pkg == "" {
			decision.Overrides.SetModule(r.module, r.chosen())
		} else {
			decision.Overrides.SetPackage(r.module, r.pkg, r.chosen())
		}
	}
	m.decision = decision
	m.done = true
	return m, tea.Quit
}

// Decision returns the operator's answer; Done reports whether there is one.
func (m Model) Decision() ui.Decision { return m.decision }

// Done reports whether the operator answered.
func (m Model) Done() bool { return m.done }

// View implements tea.Model.
func (m Model) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Release " + m.req.Project))
	b.WriteString("\n\n")
	if len(m.rows) == 0 {
		b.WriteString(subtleStyle.Render("No modules to release"))
		b.WriteString("\n")
	}
	for i, r := range m.rows {
		marker := noCursorSpace
		if i == m.cursor {
			marker = cursorStyle.Render(cursorMarker)
		}
		b.WriteString(marker)
		b.WriteString(m.renderRow(r))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.req.UpdateOnly {
		b.WriteString(subtleStyle.Render("Mode: update versions only"))
	} else {
		b.WriteString(fmt.Sprintf("Repository: %s", chosenStyle.Render(m.repository())))
		if len(m.req.Repositories) > 1 {
			b.WriteString(subtleStyle.Render("  (tab to change)"))
		}
	}
	b.WriteString("\n")
	if m.message != "" {
		b.WriteString(warningStyle.Render(m.message))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderRow(r row) string {
	label := r.module
	if r.pkg != "" {
		label = rowIndent + r.pkg
	}
	old := "-"
	if r.old != nil {
		old = r.old.String()
	}
	chosen := r.chosen().String()
	switch {
	case !r.editable:
		chosen = fixedStyle.Render(chosen)
	case r.index != r.initial:
		chosen = changedStyle.Render(chosen + " *")
	default:
		chosen = chosenStyle.Render(chosen)
	}
	line := fmt.Sprintf("%-40s %-12s -> %s", label, old, chosen)
	if r.oldRange != "" || r.newRange != "" {
		line += subtleStyle.Render(fmt.Sprintf("  %s -> %s", r.oldRange, r.newRange))
	}
	return line
}
