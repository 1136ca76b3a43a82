package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accent    = lipgloss.Color("#5FD7FF")
	frame     = lipgloss.Color("#875FFF")
	okGreen   = lipgloss.Color("#87D75F")
	amber     = lipgloss.Color("#FFD75F")
	warnMuted = lipgloss.Color("#FF875F")
	failRed   = lipgloss.Color("#FF5F5F")
	canvas    = lipgloss.Color("#121212")
	panelBg   = lipgloss.Color("#1C1C1C")
	softText  = lipgloss.Color("#BCBCBC")
	faintText = lipgloss.Color("#6C6C6C")

	baseStyle = lipgloss.NewStyle().
			Background(canvas).
			Foreground(softText)

	logoStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Padding(1, 0).
			Align(lipgloss.Center)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(frame).
			Background(panelBg).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Background(frame).
			Foreground(canvas).
			Bold(true).
			Padding(0, 1)

	statsLabelStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	statsValueStyle = lipgloss.NewStyle().Foreground(amber)

	successStyle = lipgloss.NewStyle().Foreground(okGreen).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(failRed).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(warnMuted).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(softText).Faint(true)

	logTimestampStyle = lipgloss.NewStyle().Foreground(faintText)
	logMessageStyle   = lipgloss.NewStyle().Foreground(softText)

	helpStyle = lipgloss.NewStyle().
			Foreground(faintText).
			Padding(1, 0, 0, 2)
)

// levelColor maps a log level to its panel color
func levelColor(level string) lipgloss.Color {
	switch level {
	case LevelError:
		return failRed
	case LevelWarn:
		return warnMuted
	case LevelSuccess:
		return okGreen
	case LevelInfo:
		return accent
	default:
		return softText
	}
}
