package ui

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// clean drops control characters that would break the layout.
func clean(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == ' ' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// truncate shortens s to width cells, ending with an ellipsis when cut.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(clean(s), width, "…")
}

// fit truncates then pads s to exactly width cells.
func fit(s string, width int) string {
	return runewidth.FillRight(truncate(s, width), width)
}

// row lays out styled left and right with at least one space between
// them. left is cut first when both do not fit.
func row(left, right string, width int) string {
	rightWidth := ansi.StringWidth(right)
	if ansi.StringWidth(left)+rightWidth+1 > width {
		left = ansi.Truncate(left, max(width-rightWidth-1, 0), "…")
	}
	gap := max(width-ansi.StringWidth(left)-rightWidth, 1)
	return left + strings.Repeat(" ", gap) + right
}
