package ui

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// Memorization bar endpoints, hex so they can be blended.
var (
	progressFrom = lipgloss.Color("#f5a623")
	progressTo   = lipgloss.Color("#3ddc84")
)

const (
	progressFull  = "█"
	progressEmpty = "░"
)

// applyGradient colors each grapheme of text along from..to.
func applyGradient(text string, from, to lipgloss.Color) string {
	var clusters []string
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		clusters = append(clusters, gr.Str())
	}
	if len(clusters) == 0 {
		return ""
	}

	colors := blendColors(len(clusters), from, to)
	var b strings.Builder
	for i, cluster := range clusters {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(colorToHex(colors[i]))).Render(cluster))
	}
	return b.String()
}

// progressBar renders done/total as width cells. The filled part carries
// the gradient so a nearly memorized chapter ends up green.
func progressBar(done, total, width int) string {
	if width <= 0 || total <= 0 {
		return ""
	}
	filled := min(done*width/total, width)
	if done > 0 && filled == 0 {
		filled = 1
	}

	// Blend over the whole bar so the tip color reflects progress.
	colors := blendColors(width, progressFrom, progressTo)
	var b strings.Builder
	for i := range filled {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(colorToHex(colors[i]))).Render(progressFull))
	}
	b.WriteString(dimStyle.Render(strings.Repeat(progressEmpty, width-filled)))
	return b.String()
}

// blendColors interpolates in HCL for perceptually even steps.
func blendColors(size int, from, to lipgloss.Color) []color.Color {
	c1, _ := colorful.MakeColor(lipglossToColor(from))
	if size < 2 {
		return []color.Color{c1}
	}
	c2, _ := colorful.MakeColor(lipglossToColor(to))

	colors := make([]color.Color, size)
	for i := range size {
		colors[i] = c1.BlendHcl(c2, float64(i)/float64(size-1)).Clamped()
	}
	return colors
}

// lipglossToColor parses hex colors; ANSI indexes fall back to gray.
func lipglossToColor(c lipgloss.Color) color.Color {
	if hex := string(c); len(hex) == 7 && hex[0] == '#' {
		if col, err := colorful.Hex(hex); err == nil {
			return col
		}
	}
	return color.RGBA{R: 128, G: 128, B: 128, A: 255}
}

func colorToHex(c color.Color) string {
	if cf, ok := c.(colorful.Color); ok {
		return cf.Hex()
	}
	r, g, b, _ := c.RGBA()
	return colorful.Color{
		R: float64(r) / 65535.0,
		G: float64(g) / 65535.0,
		B: float64(b) / 65535.0,
	}.Hex()
}
