package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders an aligned text table with optional color support.
type Table struct {
	headers []string
	rows    [][]string
	// highlightRow is the 0-based row index to highlight (the next prayer). -1 = none.
	highlightRow int
	muted        map[int]bool
	suffixes     map[int]string
}

// NewTable creates a new table with the given column headers.
func NewTable(headers []string) *Table {
	return &Table{
		headers:      headers,
		highlightRow: -1,
		muted:        make(map[int]bool),
		suffixes:     make(map[int]string),
	}
}

// AddRow appends a row of values and returns its index.
func (t *Table) AddRow(values []string) int {
	t.rows = append(t.rows, values)
	return len(t.rows) - 1
}

// SetHighlightRow sets which row index (0-based) should be highlighted.
func (t *Table) SetHighlightRow(idx int) {
	t.highlightRow = idx
}

// MuteRow renders a row dimmed, e.g. a prayer that has passed.
func (t *Table) MuteRow(idx int) {
	t.muted[idx] = true
}

// SetSuffix appends free text after a row's last column.
func (t *Table) SetSuffix(idx int, text string) {
	t.suffixes[idx] = text
}

// Render produces the formatted table string with leading indent.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	// Column widths in terminal cells, so city names like Göteborg align.
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var sb strings.Builder

	headerLine := formatRow(t.headers, widths)
	sb.WriteString("  " + Bold(headerLine) + "\n")

	sepParts := make([]string, len(widths))
	for i, w := range widths {
		sepParts[i] = strings.Repeat("─", w)
	}
	sb.WriteString(Dim("  "+strings.Join(sepParts, "  ")) + "\n")

	for i, row := range t.rows {
		line := formatRow(row, widths)
		if s, ok := t.suffixes[i]; ok {
			line += "  " + s
		}
		switch {
		case i == t.highlightRow:
			line = Accent(line)
		case t.muted[i]:
			line = Dim(line)
		}
		sb.WriteString("  " + line + "\n")
	}

	return sb.String()
}

// formatRow formats a row of cells using the given column widths.
func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = padRight(cell, w)
	}
	return strings.Join(parts, "  ")
}

// padRight pads s with spaces to width terminal cells.
func padRight(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
