package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const logo = `
┌─┐┬ ┬┌─┐┌┬┐┌─┐┌─┐┌─┐┌┬┐┌─┐┬ ┬
├─┘├─┤│ │ │ │ │├┤ ├┤  │ │  ├─┤
┴  ┴ ┴└─┘ ┴ └─┘└  └─┘ ┴ └─┘┴ ┴`

// View renders the entire TUI
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, logoStyle.Width(m.width).Render(logo))

	half := (m.width - 4) / 2
	leftColumn := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(half),
		m.renderProgressPanel(half),
	)
	rightColumn := lipgloss.JoinVertical(lipgloss.Left,
		m.renderFailuresPanel(half),
		m.renderLogsPanel(half),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, leftColumn, "  ", rightColumn))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func stat(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
}

// renderStatsPanel renders the run counters
func (m Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" RUN ")

	stats := []string{
		stat("Elapsed:", formatDuration(time.Since(m.sessionStartTime))),
		stat("Record:", fmt.Sprintf("%d / %d", m.current, m.total)),
		stat("Started at:", fmt.Sprintf("%d", m.startIndex)),
		stat("Checkpoint:", fmt.Sprintf("%d", m.lastProcessedIndex)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Downloaded:"), successStyle.Render(fmt.Sprintf("%d", m.downloaded))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Failed:"), errorStyle.Render(fmt.Sprintf("%d", m.failed))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Skipped:"), dimStyle.Render(fmt.Sprintf("%d", m.skipped))),
	}

	switch {
	case m.finished:
		stats = append(stats, successStyle.Render("✓ DONE"))
	case m.stopping:
		stats = append(stats, warningStyle.Render("⏸  STOPPING"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

// renderProgressPanel renders the manifest progress bar
func (m Model) renderProgressPanel(width int) string {
	title := titleStyle.Render(" PROGRESS ")

	bar := m.progress
	if bar.Width = width - 8; bar.Width < 10 {
		bar.Width = 10
	}

	status := dimStyle.Render("waiting for first record")
	if m.lastFile != "" {
		status = fmt.Sprintf("%s %s", m.spinner.View(), m.lastFile)
	}

	content := []string{
		bar.ViewAs(m.Percent()),
		stat("ETA:", formatDuration(m.ETA())),
		status,
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(content, "\n")),
	)
}

// renderFailuresPanel lists the most recent failed records
func (m Model) renderFailuresPanel(width int) string {
	title := titleStyle.Render(" RECENT FAILURES ")

	if len(m.recentFailures) == 0 {
		return panelStyle.Width(width).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("No failures")),
		)
	}

	maxLen := width - 12
	var lines []string
	for _, f := range m.recentFailures {
		lines = append(lines,
			errorStyle.Render(fmt.Sprintf("#%d", f.Index+1))+" "+truncate(f.Reason, maxLen),
			dimStyle.Render("   "+truncate(f.PhotoURL, maxLen)),
		)
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

// renderLogsPanel renders the logs panel
func (m Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOG ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(levelColor(log.Level)).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		message := logMessageStyle.Render(truncate(log.Message, width-25))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = dimStyle.Render("No logs yet...")
	}

	logsHeight := m.height - 30
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Stop after the current record (twice to leave)
    ctrl+l   - Clear the log panel
    ?        - Toggle this help

  Status:
    ` + successStyle.Render("Green") + `    - Image saved
    ` + warningStyle.Render("Orange") + `   - Stopping
    ` + errorStyle.Render("Red") + `      - Record failed, see failed.json
`

	return panelStyle.Width(m.width).Render(help)
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if n < 4 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
