package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed    = lipgloss.Color("#FF5F5F")
	colorGreen  = lipgloss.Color("#5FD75F")
	colorYellow = lipgloss.Color("#FFD75F")
	colorCyan   = lipgloss.Color("#5FD7FF")
	colorGray   = lipgloss.Color("#808080")
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle     = lipgloss.NewStyle().Foreground(colorGray)
	runningStyle   = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	stoppedStyle   = lipgloss.NewStyle().Foreground(colorGray)
	completedStyle = lipgloss.NewStyle().Foreground(colorGreen)
	failedStyle    = lipgloss.NewStyle().Foreground(colorRed)
	currentStyle   = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	footerKeyStyle = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(colorGray)
	panelStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorGray).Padding(0, 1)
)
