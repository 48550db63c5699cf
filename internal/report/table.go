// Package report renders analysis results: console tables, PNG plots, and a
// per-run artifact directory.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// TableWriter renders aligned console tables, truncating to the terminal
// width when one is attached.
type TableWriter struct {
	w     io.Writer
	width int
}

// NewTableWriter creates a writer targeting w. When w is a terminal the
// current width bounds each rendered line; plain forces unbounded output.
func NewTableWriter(w io.Writer, plain bool) *TableWriter {
	tw := &TableWriter{w: w}
	if plain {
		return tw
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 20 {
			tw.width = cols
		}
	}
	return tw
}

// Render writes a titled table. Column widths follow the longest cell.
func (tw *TableWriter) Render(title string, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for j, h := range headers {
		widths[j] = len(h)
	}
	for _, row := range rows {
		for j, cell := range row {
			if j < len(widths) && len(cell) > widths[j] {
				widths[j] = len(cell)
			}
		}
	}

	fmt.Fprintf(tw.w, "\n%s\n", title)
	tw.line(headers, widths)
	sep := make([]string, len(headers))
	for j := range sep {
		sep[j] = strings.Repeat("-", widths[j])
	}
	tw.line(sep, widths)
	for _, row := range rows {
		tw.line(row, widths)
	}
}

func (tw *TableWriter) line(cells []string, widths []int) {
	var b strings.Builder
	for j, cell := range cells {
		if j > 0 {
			b.WriteString("  ")
		}
		b.WriteString(pad(cell, widths[j]))
	}
	s := b.String()
	if tw.width > 0 && len(s) > tw.width {
		s = s[:tw.width-1] + "…"
	}
	fmt.Fprintln(tw.w, s)
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

// F formats a float for table cells.
func F(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
