package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name          string
		done, total   int
		width         int
		filled, cells int
	}{
		{name: "empty", done: 0, total: 7, width: 10, filled: 0, cells: 10},
		{name: "half", done: 3, total: 6, width: 10, filled: 5, cells: 10},
		{name: "full", done: 7, total: 7, width: 10, filled: 10, cells: 10},
		{name: "tiny progress shows", done: 1, total: 286, width: 10, filled: 1, cells: 10},
		{name: "no verses", done: 0, total: 0, width: 10, filled: 0, cells: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plain := ansi.Strip(progressBar(tt.done, tt.total, tt.width))
			assert.Equal(t, tt.filled, strings.Count(plain, progressFull))
			assert.Equal(t, tt.cells, ansi.StringWidth(plain))
		})
	}
}

func TestApplyGradient(t *testing.T) {
	assert.Empty(t, applyGradient("", progressFrom, progressTo))
	assert.Equal(t, "الفاتحة", ansi.Strip(applyGradient("الفاتحة", progressFrom, progressTo)))
}

func TestBlendColors_Endpoints(t *testing.T) {
	colors := blendColors(5, progressFrom, progressTo)
	assert.Len(t, colors, 5)
	assert.Equal(t, string(progressFrom), colorToHex(colors[0]))
	assert.Equal(t, string(progressTo), colorToHex(colors[4]))

	// ANSI indexes cannot be blended
	assert.Equal(t, "#808080", colorToHex(blendColors(1, lipgloss.Color("39"), progressTo)[0]))
}

func TestRow_CutsLeftFirst(t *testing.T) {
	left := titleStyle.Render("1. Al-Fatiha  The Opening · 7 verses")
	right := "7/7"

	got := row(left, right, 20)
	assert.Equal(t, 20, ansi.StringWidth(got))
	assert.True(t, strings.HasSuffix(ansi.Strip(got), " 7/7"))
	assert.Contains(t, ansi.Strip(got), "…")

	assert.Equal(t, "ab   cd", row("ab", "cd", 7))
}
