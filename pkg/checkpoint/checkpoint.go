package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	errs "photofetch/pkg/errors"
	"photofetch/pkg/logger"
)

// State is the persisted progress marker of a batch run
type State struct {
	LastProcessedIndex int `json:"lastProcessedIndex"`
}

// Failure is one entry of the failure log
type Failure struct {
	Index                     int    `json:"index"`
	ManufacturerProductNumber string `json:"ManufacturerProductNumber"`
	PhotoUrl                  string `json:"PhotoUrl"`
	Error                     string `json:"Error"`
}

// Store persists the checkpoint and the failure log of one output folder
type Store struct {
	statePath    string
	failuresPath string
	filePerm     os.FileMode
	logger       logger.Logger
}

// NewStore creates a store for the given checkpoint and failure log paths.
// Both files are written with filePerm, or 0644 when it is zero.
func NewStore(statePath, failuresPath string, filePerm os.FileMode, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	if filePerm == 0 {
		filePerm = 0644
	}
	return &Store{
		statePath:    statePath,
		failuresPath: failuresPath,
		filePerm:     filePerm,
		logger:       log.WithField("component", "checkpoint"),
	}
}

// StatePath returns the checkpoint file location
func (s *Store) StatePath() string {
	return s.statePath
}

// FailuresPath returns the failure log location
func (s *Store) FailuresPath() string {
	return s.failuresPath
}

// Load returns the stored checkpoint, or a zero State when none exists
func (s *Store) Load() (State, error) {
	var state State

	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return state, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, errs.CorruptCheckpoint(s.statePath, err)
	}
	if state.LastProcessedIndex < 0 {
		return State{}, errs.CorruptCheckpoint(s.statePath,
			fmt.Errorf("negative lastProcessedIndex %d", state.LastProcessedIndex))
	}

	s.logger.DebugWithFields("Checkpoint loaded", map[string]interface{}{
		"path":                 s.statePath,
		"last_processed_index": state.LastProcessedIndex,
	})

	return state, nil
}

// Save overwrites the checkpoint file
func (s *Store) Save(state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := writeFileAtomic(s.statePath, data, s.filePerm); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	s.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"last_processed_index": state.LastProcessedIndex,
	})
	return nil
}

// LoadFailures returns the stored failure log in file order
func (s *Store) LoadFailures() ([]Failure, error) {
	data, err := os.ReadFile(s.failuresPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read failure log: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var failures []Failure
	if err := json.Unmarshal(data, &failures); err != nil {
		return nil, errs.CorruptCheckpoint(s.failuresPath, err)
	}
	return failures, nil
}

// SaveFailures overwrites the failure log. An empty list is never written,
// so an existing log from an earlier run is left in place.
func (s *Store) SaveFailures(failures []Failure) error {
	if len(failures) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(failures, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode failure log: %w", err)
	}

	if err := writeFileAtomic(s.failuresPath, data, s.filePerm); err != nil {
		return fmt.Errorf("failed to save failure log: %w", err)
	}

	s.logger.DebugWithFields("Failure log saved", map[string]interface{}{
		"failures": len(failures),
	})
	return nil
}

// Exists reports whether a checkpoint file is present
func (s *Store) Exists() bool {
	_, err := os.Stat(s.statePath)
	return err == nil
}

// Delete removes the checkpoint so the next run starts at index 0
func (s *Store) Delete() error {
	if err := os.Remove(s.statePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	s.logger.Info("Checkpoint deleted")
	return nil
}

// DeleteFailures removes the failure log
func (s *Store) DeleteFailures() error {
	if err := os.Remove(s.failuresPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete failure log: %w", err)
	}
	s.logger.Info("Failure log deleted")
	return nil
}

// Info summarizes the persisted state of an output folder
type Info struct {
	StatePath          string    `json:"state_path" yaml:"state_path"`
	FailuresPath       string    `json:"failures_path" yaml:"failures_path"`
	Exists             bool      `json:"exists" yaml:"exists"`
	LastProcessedIndex int       `json:"last_processed_index" yaml:"last_processed_index"`
	Failures           int       `json:"failures" yaml:"failures"`
	UpdatedAt          time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// GetInfo loads both files and returns a summary
func (s *Store) GetInfo() (*Info, error) {
	info := &Info{
		StatePath:    s.statePath,
		FailuresPath: s.failuresPath,
	}

	if fi, err := os.Stat(s.statePath); err == nil {
		info.Exists = true
		info.UpdatedAt = fi.ModTime()
	}

	state, err := s.Load()
	if err != nil {
		return nil, err
	}
	info.LastProcessedIndex = state.LastProcessedIndex

	failures, err := s.LoadFailures()
	if err != nil {
		return nil, err
	}
	info.Failures = len(failures)

	return info, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it into place
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
