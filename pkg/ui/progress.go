package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"photofetch/pkg/batch"
	errs "photofetch/pkg/errors"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// StatusTracker prints one line per manifest record and a summary at the
// end of a run. It implements batch.Reporter.
type StatusTracker struct {
	mu sync.Mutex

	total      int
	startIndex int
	current    int

	downloaded int
	failed     int
	skipped    int

	startTime time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{startTime: time.Now()}
}

// Started implements batch.Reporter
func (st *StatusTracker) Started(total, startIndex int) {
	st.mu.Lock()
	st.total = total
	st.startIndex = startIndex
	st.current = startIndex
	st.startTime = time.Now()
	st.mu.Unlock()

	if startIndex > 0 {
		PrintInfo("Resuming", fmt.Sprintf("index %d of %d", startIndex, total))
	} else {
		PrintInfo("Records", fmt.Sprintf("%d", total))
	}
}

// Skipped implements batch.Reporter
func (st *StatusTracker) Skipped(index, total int) {
	st.mu.Lock()
	st.skipped++
	st.current = index + 1
	line := st.line(index, total, Dim("skipped"), "missing ManufacturerProductNumber or PhotoUrl")
	st.mu.Unlock()

	printf(false, "%s\n", line)
}

// Downloaded implements batch.Reporter
func (st *StatusTracker) Downloaded(index, total int, fileName string) {
	st.mu.Lock()
	st.downloaded++
	st.current = index + 1
	line := st.line(index, total, Green("saved"), fileName)
	st.mu.Unlock()

	printf(false, "%s\n", line)
}

// Failed implements batch.Reporter. Failures are printed in quiet mode too.
func (st *StatusTracker) Failed(index, total int, photoURL string, err error) {
	st.mu.Lock()
	st.failed++
	st.current = index + 1
	line := st.line(index, total, Red("failed"), fmt.Sprintf("%s: %s", photoURL, errs.Reason(err)))
	st.mu.Unlock()

	printf(true, "%s\n", line)
}

// Finished implements batch.Reporter
func (st *StatusTracker) Finished(s batch.Summary) {
	printf(false, "\n")
	if s.Interrupted {
		PrintWarning("Run interrupted", fmt.Sprintf("checkpoint at index %d", s.LastProcessedIndex))
	} else {
		PrintSuccess(fmt.Sprintf("Run complete: %d records", s.Total))
	}
	PrintInfo("  Downloaded", fmt.Sprintf("%d", s.Downloaded))
	PrintInfo("  Failed", fmt.Sprintf("%d (failure log: %d entries)", s.Failed, s.FailureLogSize))
	PrintInfo("  Skipped", fmt.Sprintf("%d", s.Skipped))
	PrintInfo("  Checkpoint", fmt.Sprintf("%d", s.LastProcessedIndex))
	PrintInfo("  Duration", formatDuration(s.Duration))
}

// line formats a progress line; indices are shown one based. Callers hold mu.
func (st *StatusTracker) line(index, total int, outcome, detail string) string {
	return fmt.Sprintf("%s %s %s %s",
		Cyan(fmt.Sprintf("Index %d / %d", index+1, total)),
		st.progressBar(),
		outcome,
		detail,
	)
}

func (st *StatusTracker) progressBar() string {
	progress := 0.0
	if st.total > 0 {
		progress = float64(st.current) / float64(st.total)
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(barWidth))
	return "[" + strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled) + "]"
}

// GetProgress returns the progress bar and the share of the manifest handled
func (st *StatusTracker) GetProgress() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	pct := 0.0
	if st.total > 0 {
		pct = float64(st.current) / float64(st.total) * 100
	}
	return fmt.Sprintf("%s %.1f%%", st.progressBar(), pct)
}

// GetElapsedTime returns the elapsed time since the run started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	st.mu.Lock()
	defer st.mu.Unlock()
	return time.Since(st.startTime)
}

// GetRate returns handled records per minute
func (st *StatusTracker) GetRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	st.mu.Lock()
	defer st.mu.Unlock()
	if elapsed == 0 {
		return 0
	}
	return float64(st.current-st.startIndex) / elapsed
}

// GetETA estimates the time left for the rest of the manifest
func (st *StatusTracker) GetETA() string {
	st.mu.Lock()
	done := st.current - st.startIndex
	remaining := st.total - st.current
	elapsed := time.Since(st.startTime)
	st.mu.Unlock()

	if done <= 0 || elapsed <= 0 {
		return "calculating..."
	}
	perRecord := elapsed / time.Duration(done)
	return formatDuration(perRecord * time.Duration(remaining))
}

// Counts returns the downloaded, failed and skipped counters
func (st *StatusTracker) Counts() (downloaded, failed, skipped int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.downloaded, st.failed, st.skipped
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
