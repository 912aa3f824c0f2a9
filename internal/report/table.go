// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders plain-text tables for CLI output. Column widths
// use display width so Korean text lines up.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Table is a header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string

	// MaxWidth truncates cells wider than this many columns (0 = no limit).
	MaxWidth int
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table to w.
func (t *Table) Render(w io.Writer) error {
	cols := len(t.Header)
	for _, r := range t.Rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return nil
	}

	cell := func(row []string, i int) string {
		if i >= len(row) {
			return ""
		}
		if t.MaxWidth > 0 {
			return runewidth.Truncate(row[i], t.MaxWidth, "…")
		}
		return row[i]
	}

	widths := make([]int, cols)
	for _, row := range append([][]string{t.Header}, t.Rows...) {
		for i := range widths {
			widths[i] = max(widths[i], runewidth.StringWidth(cell(row, i)))
		}
	}

	writeRow := func(row []string) error {
		var sb strings.Builder
		for i := range widths {
			if i > 0 {
				sb.WriteString("  ")
			}
			c := cell(row, i)
			sb.WriteString(c)
			if i < cols-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(c)))
			}
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
		return err
	}

	if len(t.Header) > 0 {
		if err := writeRow(t.Header); err != nil {
			return err
		}
		sep := make([]string, cols)
		for i, wd := range widths {
			sep[i] = strings.Repeat("-", wd)
		}
		if err := writeRow(sep); err != nil {
			return err
		}
	}
	for _, r := range t.Rows {
		if err := writeRow(r); err != nil {
			return err
		}
	}
	return nil
}
