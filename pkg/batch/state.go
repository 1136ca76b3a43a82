package batch

import (
	"time"

	"photofetch/pkg/checkpoint"
)

// RunState is the in-memory progress of one run. It is owned by the Driver
// and persisted through flush.
type RunState struct {
	RunID              string
	StartIndex         int
	LastProcessedIndex int
	Failures           []checkpoint.Failure

	Downloaded int
	Failed     int
	Skipped    int

	StartedAt time.Time
}

// Checkpoint returns the persisted form of the progress marker
func (s *RunState) Checkpoint() checkpoint.State {
	return checkpoint.State{LastProcessedIndex: s.LastProcessedIndex}
}

func (s *RunState) recordFailure(f checkpoint.Failure) {
	s.Failures = append(s.Failures, f)
	s.Failed++
}

// Summary reports the outcome of a run
type Summary struct {
	RunID              string        `json:"run_id"`
	Total              int           `json:"total"`
	StartIndex         int           `json:"start_index"`
	LastProcessedIndex int           `json:"last_processed_index"`
	Downloaded         int           `json:"downloaded"`
	Failed             int           `json:"failed"`
	Skipped            int           `json:"skipped"`
	FailureLogSize     int           `json:"failure_log_size"`
	Interrupted        bool          `json:"interrupted"`
	Duration           time.Duration `json:"duration"`
}

func (s *RunState) summary(total int, interrupted bool) Summary {
	return Summary{
		RunID:              s.RunID,
		Total:              total,
		StartIndex:         s.StartIndex,
		LastProcessedIndex: s.LastProcessedIndex,
		Downloaded:         s.Downloaded,
		Failed:             s.Failed,
		Skipped:            s.Skipped,
		FailureLogSize:     len(s.Failures),
		Interrupted:        interrupted,
		Duration:           time.Since(s.StartedAt),
	}
}
