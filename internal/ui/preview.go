package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const (
	columnPadding = 2
	minCellWidth  = 4
)

// PreviewTable renders exported rows as a terminal table.
type PreviewTable struct {
	display *DisplayContext
	header  []string
	rows    [][]string
	maxRows int
}

// NewPreviewTable creates a table with one column per header name.
func NewPreviewTable(display *DisplayContext, header []string) *PreviewTable {
	return &PreviewTable{display: display, header: header}
}

// SetMaxRows limits how many rows Render shows. 0 shows every row.
func (t *PreviewTable) SetMaxRows(n int) {
	t.maxRows = n
}

// AddRow adds a row. Missing cells render empty and extra cells are dropped.
func (t *PreviewTable) AddRow(cells ...string) {
	row := make([]string, len(t.header))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Render draws the header, the visible rows and, when rows were held back,
// a footer counting them.
func (t *PreviewTable) Render() string {
	if len(t.header) == 0 {
		return ""
	}

	visible := t.rows
	if t.maxRows > 0 && len(visible) > t.maxRows {
		visible = visible[:t.maxRows]
	}

	widths := t.columnWidths(visible)
	header := make([]string, len(t.header))
	for i, h := range t.header {
		header[i] = TruncateWithEllipsis(h, widths[i])
	}
	body := make([][]string, len(visible))
	for i, row := range visible {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = TruncateWithEllipsis(cell, widths[j])
		}
		body[i] = cells
	}

	tbl := table.New().
		Border(lipgloss.Border{
			Top:    "─",
			Bottom: "─",
			Left:   "",
			Right:  "",
			Middle: "─",
		}).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(true).
		BorderRow(false).
		BorderColumn(false).
		BorderStyle(Muted).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle()
			if row == table.HeaderRow {
				style = AccentBold
			}
			if col < len(t.header)-1 {
				style = style.PaddingRight(columnPadding)
			}
			return style
		}).
		Headers(header...).
		Rows(body...)

	out := tbl.Render()
	if hidden := len(t.rows) - len(visible); hidden > 0 {
		out += "\n" + Hint(fmt.Sprintf("… %s not shown", Count(hidden, "more row", "more rows")))
	}
	return out
}

// columnWidths starts from each column's widest cell and narrows the widest
// columns until the table fits the terminal.
func (t *PreviewTable) columnWidths(rows [][]string) []int {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	available := t.display.TermWidth - columnPadding*(len(widths)-1)
	for total(widths) > available {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minCellWidth {
			break
		}
		widths[widest]--
	}
	return widths
}

func total(widths []int) int {
	n := 0
	for _, w := range widths {
		n += w
	}
	return n
}

// TruncateWithEllipsis shortens s to at most maxLen runes, ending in "…"
// when anything was cut.
func TruncateWithEllipsis(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return strings.TrimRight(string(runes[:maxLen-1]), " ") + "…"
}
