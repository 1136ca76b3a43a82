package tui

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"photofetch/pkg/batch"
)

// Log levels shown in the logs panel
const (
	LevelInfo    = "INFO"
	LevelSuccess = "SUCCESS"
	LevelWarn    = "WARN"
	LevelError   = "ERROR"
	LevelLog     = "LOG"
)

// FailureLine is one failed record shown in the failures panel
type FailureLine struct {
	Index    int
	PhotoURL string
	Reason   string
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
}

// Model is the dashboard state. It is only mutated from Update.
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	total      int
	startIndex int
	current    int

	downloaded         int
	failed             int
	skipped            int
	lastProcessedIndex int
	lastFile           string

	recentFailures []FailureLine
	maxFailures    int

	started          bool
	finished         bool
	stopping         bool
	summary          *batch.Summary
	sessionStartTime time.Time

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	sink   *logSink
	onStop func()
}

// NewModel creates a dashboard model. onStop is called once when the user
// asks to stop the run.
func NewModel(onStop func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return Model{
		spinner:          s,
		progress:         p,
		maxFailures:      5,
		sessionStartTime: time.Now(),
		maxLogMessages:   50,
		sink:             &logSink{max: 200},
		onStop:           onStop,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m *Model) recordStarted(total, startIndex int) {
	m.started = true
	m.total = total
	m.startIndex = startIndex
	m.current = startIndex
	m.lastProcessedIndex = startIndex
	m.sessionStartTime = time.Now()
}

func (m *Model) recordSkipped(index int) {
	m.skipped++
	m.current = index + 1
}

func (m *Model) recordDownloaded(index int, fileName string) {
	m.downloaded++
	m.current = index + 1
	m.lastProcessedIndex = index
	m.lastFile = fileName
}

func (m *Model) recordFailed(index int, photoURL, reason string) {
	m.failed++
	m.current = index + 1
	m.lastProcessedIndex = index

	m.recentFailures = append(m.recentFailures, FailureLine{Index: index, PhotoURL: photoURL, Reason: reason})
	if len(m.recentFailures) > m.maxFailures {
		m.recentFailures = m.recentFailures[len(m.recentFailures)-m.maxFailures:]
	}
}

func (m *Model) recordFinished(s batch.Summary) {
	m.finished = true
	m.summary = &s
	m.lastProcessedIndex = s.LastProcessedIndex
}

// AddLogMessage adds a log message, keeping the most recent ones
func (m *Model) AddLogMessage(level, message string) {
	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Percent returns the handled share of the manifest in [0, 1]
func (m Model) Percent() float64 {
	if m.total == 0 {
		if m.finished {
			return 1
		}
		return 0
	}
	p := float64(m.current) / float64(m.total)
	if p > 1 {
		p = 1
	}
	return p
}

// ETA estimates the remaining time from the average time per record
func (m Model) ETA() time.Duration {
	done := m.current - m.startIndex
	if done <= 0 {
		return 0
	}
	perRecord := time.Since(m.sessionStartTime) / time.Duration(done)
	return perRecord * time.Duration(m.total-m.current)
}

// Counts returns the downloaded, failed and skipped counters
func (m Model) Counts() (downloaded, failed, skipped int) {
	return m.downloaded, m.failed, m.skipped
}

// Finished reports whether the run has ended
func (m Model) Finished() bool {
	return m.finished
}

// logSink collects log lines written from other goroutines until the
// next tick moves them into the model
type logSink struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range strings.Split(string(p), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			s.lines = append(s.lines, line)
		}
	}
	if len(s.lines) > s.max {
		s.lines = s.lines[len(s.lines)-s.max:]
	}
	return len(p), nil
}

func (s *logSink) drain() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.lines
	s.lines = nil
	return lines
}
