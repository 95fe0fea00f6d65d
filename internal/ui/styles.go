package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("39")
	dimColor    = lipgloss.Color("241")
	markColor   = lipgloss.Color("214")
	doneColor   = lipgloss.Color("42")
	errorColor  = lipgloss.Color("196")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	arabicStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle    = lipgloss.NewStyle().Foreground(dimColor)
	statusStyle = lipgloss.NewStyle().Foreground(accentColor)
	errorStyle  = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	checkStyle  = lipgloss.NewStyle().Foreground(doneColor)
	markStyle   = lipgloss.NewStyle().Foreground(markColor)

	cursorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236"))

	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240"))
)

// Verse row icons.
const (
	iconPlaying   = "▶"
	iconMemorized = "✓"
	iconMark      = "┃"
	iconNote      = "✎"
)
