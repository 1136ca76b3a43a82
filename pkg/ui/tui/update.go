package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"photofetch/pkg/batch"
)

// StartedMsg is sent when the driver begins walking the manifest
type StartedMsg struct {
	Total      int
	StartIndex int
}

// SkippedMsg is sent for a record without a product number or photo URL
type SkippedMsg struct {
	Index int
}

// DownloadedMsg is sent when a record's image was written
type DownloadedMsg struct {
	Index    int
	FileName string
}

// FailedMsg is sent when a record was added to the failure log
type FailedMsg struct {
	Index    int
	PhotoURL string
	Reason   string
}

// FinishedMsg is sent once the run has ended and its state was flushed
type FinishedMsg struct {
	Summary batch.Summary
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		for _, line := range m.sink.drain() {
			m.AddLogMessage(LevelLog, line)
		}
		return m, tickCmd()

	case StartedMsg:
		m.recordStarted(msg.Total, msg.StartIndex)
		if msg.StartIndex > 0 {
			m.AddLogMessage(LevelInfo, fmt.Sprintf("Resuming at index %d of %d", msg.StartIndex, msg.Total))
		} else {
			m.AddLogMessage(LevelInfo, fmt.Sprintf("Processing %d records", msg.Total))
		}
		return m, nil

	case SkippedMsg:
		m.recordSkipped(msg.Index)
		return m, nil

	case DownloadedMsg:
		m.recordDownloaded(msg.Index, msg.FileName)
		m.AddLogMessage(LevelSuccess, fmt.Sprintf("#%d %s", msg.Index+1, msg.FileName))
		return m, nil

	case FailedMsg:
		m.recordFailed(msg.Index, msg.PhotoURL, msg.Reason)
		m.AddLogMessage(LevelError, fmt.Sprintf("#%d %s", msg.Index+1, msg.Reason))
		return m, nil

	case FinishedMsg:
		m.recordFinished(msg.Summary)
		return m, tea.Quit

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.finished || m.stopping {
			return m, tea.Quit
		}
		m.stopping = true
		if m.onStop != nil {
			m.onStop()
		}
		m.AddLogMessage(LevelWarn, "Stopping after the current record, press q again to leave")
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
