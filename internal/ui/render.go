package ui

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"releasekit/internal/diff"
	"releasekit/internal/release"
	"releasekit/internal/version"
)

// Alignment selects a column's horizontal alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// RenderTable renders rows under headers with rounded borders. Rows shorter
// than headers are padded with empty cells.
func RenderTable(headers []string, rows [][]string, aligns []Alignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

var titleCaser = cases.Title(language.English)

// PhaseLabel turns PRE_JAR_RELEASE into "Pre Jar Release".
func PhaseLabel(phase release.Phase) string {
	words := strings.ReplaceAll(strings.ToLower(phase.String()), "_", " ")
	return titleCaser.String(words)
}

// ChangesTable lists each module and its changed packages with old and
// suggested versions and version ranges.
func ChangesTable(results []diff.Result) string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, []string{
			result.Name,
			"",
			moduleDelta(result),
			optional(result.OldVersion),
			result.SuggestedVersion.String(),
			"",
		})
		for _, pkg := range result.ChangedPackages() {
			rows = append(rows, []string{
				"",
				pkg.Name,
				string(pkg.Delta),
				optional(pkg.OldVersion),
				optional(pkg.SuggestedVersion),
				rangePair(pkg.OldRange, pkg.SuggestedRange),
			})
		}
	}
	return RenderTable([]string{"Module", "Package", "Change", "Old", "Suggested", "Range"}, rows, nil)
}

func moduleDelta(result diff.Result) string {
	switch {
	case result.OldVersion == nil:
		return string(diff.DeltaAdded)
	case result.Changed() && result.MaxSeverity() != diff.SeverityNone:
		return result.MaxSeverity().String()
	case result.Changed():
		return string(diff.DeltaModified)
	default:
		return string(diff.DeltaUnchanged)
	}
}

func optional(v *version.Version) string {
	if v == nil {
		return "-"
	}
	return v.String()
}

func rangePair(oldRange, suggested string) string {
	switch {
	case oldRange == "" && suggested == "":
		return ""
	case oldRange == "":
		return "-> " + suggested
	case suggested == "" || suggested == oldRange:
		return oldRange
	default:
		return oldRange + " -> " + suggested
	}
}

// ErrorReport renders the end-of-run error report: one overview table and a
// detail table for every record that carries one.
func ErrorReport(project string, phase release.Phase, records []release.ErrorRecord) string {
	var b strings.Builder
	noun := "errors"
	if len(records) == 1 {
		noun = "error"
	}
	fmt.Fprintf(&b, "%s: %d %s during %s\n", project, len(records), noun, PhaseLabel(phase))

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{PhaseLabel(rec.Phase), dash(rec.Module), dash(rec.Version), rec.Message})
	}
	b.WriteString(RenderTable([]string{"Phase", "Module", "Version", "Message"}, rows, nil))
	b.WriteString("\n")

	for _, rec := range records {
		if !rec.HasTable() {
			continue
		}
		b.WriteString("\n")
		b.WriteString(rec.Message)
		b.WriteString("\n")
		b.WriteString(RenderTable(rec.Headers, rec.Rows, nil))
		b.WriteString("\n")
	}
	return b.String()
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
