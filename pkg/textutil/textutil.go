// Package textutil provides CJK-aware text helpers: keyword folding for
// matching, and display-width alignment for CLI tables.
package textutil

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/width"
)

// Fold normalizes a string for matching: full-width forms are folded to
// their half-width equivalents and the result is lowercased, so "ＰＴＴ"
// matches "ptt".
func Fold(s string) string {
	return strings.ToLower(width.Fold.String(s))
}

// ContainsFold reports whether s contains substr under Fold normalization.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

// Account extracts the account name from an "account (display-name)" author
// string. A bare account passes through unchanged.
func Account(author string) string {
	fields := strings.Fields(author)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}

// PadWidth pads s with spaces on the right to the given display width.
// Wide runes count as two columns.
func PadWidth(s string, w int) string {
	return runewidth.FillRight(s, w)
}

// TruncateWidth shortens s to at most w display columns, appending the tail
// when truncation happens.
func TruncateWidth(s string, w int, tail string) string {
	return runewidth.Truncate(s, w, tail)
}

// Table renders rows as a display-width aligned text table with a header
// separator, suitable for terminal output containing CJK text.
func Table(headers []string, rows [][]string) string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	widths := make([]int, colCount)

	measure := func(row []string) {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	measure(headers)

	for _, row := range rows {
		measure(row)
	}

	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	var sb strings.Builder

	writeRow := func(row []string) {
		sb.WriteString("|")

		for i := 0; i < colCount; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}

			sb.WriteString(" ")
			sb.WriteString(PadWidth(cell, widths[i]))
			sb.WriteString(" |")
		}

		sb.WriteString("\n")
	}

	writeRow(headers)

	sb.WriteString("|")

	for i := 0; i < colCount; i++ {
		sb.WriteString(" ")
		sb.WriteString(strings.Repeat("-", widths[i]))
		sb.WriteString(" |")
	}

	sb.WriteString("\n")

	for _, row := range rows {
		writeRow(row)
	}

	return sb.String()
}
