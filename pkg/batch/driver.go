package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"photofetch/pkg/checkpoint"
	errs "photofetch/pkg/errors"
	"photofetch/pkg/fetch"
	"photofetch/pkg/logger"
	"photofetch/pkg/manifest"
)

// DefaultFlushInterval is how often, in manifest indices, the checkpoint is flushed
const DefaultFlushInterval = 10

// Fetcher downloads the image of one record
type Fetcher interface {
	Fetch(ctx context.Context, id, photoURL string) (*fetch.Result, error)
}

// CheckpointStore persists progress and the failure log
type CheckpointStore interface {
	Load() (checkpoint.State, error)
	Save(checkpoint.State) error
	LoadFailures() ([]checkpoint.Failure, error)
	SaveFailures([]checkpoint.Failure) error
}

// Reporter receives per-record progress. Indices are zero based.
type Reporter interface {
	Started(total, startIndex int)
	Skipped(index, total int)
	Downloaded(index, total int, fileName string)
	Failed(index, total int, photoURL string, err error)
	Finished(summary Summary)
}

// Options tunes a Driver
type Options struct {
	// FlushInterval flushes the checkpoint whenever index % FlushInterval == 0
	FlushInterval int
	// Restart ignores the stored checkpoint and starts at index 0. The
	// failure log is still loaded and appended to.
	Restart bool
}

// Driver walks a manifest in order, one record at a time
type Driver struct {
	store    CheckpointStore
	fetcher  Fetcher
	reporter Reporter
	logger   logger.Logger
	opts     Options
}

// NewDriver creates a driver. A nil reporter discards progress.
func NewDriver(store CheckpointStore, fetcher Fetcher, reporter Reporter, log logger.Logger, opts Options) *Driver {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	return &Driver{
		store:    store,
		fetcher:  fetcher,
		reporter: reporter,
		logger:   log.WithField("component", "batch"),
		opts:     opts,
	}
}

// Run processes records starting at the stored checkpoint. Per-record
// failures are recorded and never returned. The checkpoint and failure log
// are flushed once more before Run returns, including when ctx is cancelled,
// in which case ctx's error is returned.
func (d *Driver) Run(ctx context.Context, records []map[string]any) (summary *Summary, err error) {
	state, err := d.load()
	if err != nil {
		return nil, err
	}

	total := len(records)
	log := d.logger.WithField("run_id", state.RunID)
	log.InfoWithFields("Run started", map[string]interface{}{
		"records":           total,
		"start_index":       state.StartIndex,
		"existing_failures": len(state.Failures),
	})
	d.reporter.Started(total, state.StartIndex)

	interrupted := false
	defer func() {
		if ferr := d.flush(state); ferr != nil && err == nil {
			err = ferr
		}
		s := state.summary(total, interrupted)
		summary = &s
		d.reporter.Finished(s)
		log.InfoWithFields("Run finished", map[string]interface{}{
			"downloaded":  s.Downloaded,
			"failed":      s.Failed,
			"skipped":     s.Skipped,
			"last_index":  s.LastProcessedIndex,
			"interrupted": s.Interrupted,
			"duration":    s.Duration,
		})
	}()

	for i := state.StartIndex; i < total; i++ {
		if ctx.Err() != nil {
			interrupted = true
			return nil, ctx.Err()
		}

		stop, err := d.process(ctx, state, records[i], i, total)
		if stop {
			interrupted = true
			return nil, ctx.Err()
		}
		if err != nil {
			return nil, err
		}

		if i%d.opts.FlushInterval == 0 {
			if err := d.flush(state); err != nil {
				return nil, err
			}
		}
	}

	return nil, nil
}

// process handles one record. stop is true when ctx was cancelled while the
// record was in flight; the record is then neither advanced nor recorded.
func (d *Driver) process(ctx context.Context, state *RunState, raw map[string]any, i, total int) (stop bool, err error) {
	rec := manifest.Parse(raw)
	if !rec.Valid {
		state.Skipped++
		d.reporter.Skipped(i, total)
		logger.LogRecordOutcome(d.logger, i, total, "", "skipped", nil)
		return false, nil
	}

	id := manifest.Sanitize(rec.ProductNumber)
	res, ferr := d.fetcher.Fetch(ctx, id, rec.PhotoURL)

	if ferr != nil && ctx.Err() != nil && !errs.IsRecordFailure(ferr) {
		return true, nil
	}

	state.LastProcessedIndex = i

	if ferr == nil {
		state.Downloaded++
		d.reporter.Downloaded(i, total, id+".jpg")
		d.logger.DebugWithFields("Record downloaded", map[string]interface{}{
			"index":     i,
			"file":      res.Path,
			"image_url": res.ImageURL,
			"bytes":     res.Bytes,
		})
		return false, nil
	}

	state.recordFailure(checkpoint.Failure{
		Index:                     i,
		ManufacturerProductNumber: id,
		PhotoUrl:                  rec.PhotoURL,
		Error:                     errs.Reason(ferr),
	})
	d.reporter.Failed(i, total, rec.PhotoURL, ferr)
	logger.LogRecordOutcome(d.logger.WithField("photo_url", rec.PhotoURL), i, total, id, string(errs.TypeOf(ferr)), ferr)

	if err := d.store.SaveFailures(state.Failures); err != nil {
		return false, fmt.Errorf("failed to flush failure log: %w", err)
	}
	return false, nil
}

func (d *Driver) load() (*RunState, error) {
	cp, err := d.store.Load()
	if err != nil {
		return nil, err
	}
	failures, err := d.store.LoadFailures()
	if err != nil {
		return nil, err
	}

	state := &RunState{
		RunID:              uuid.NewString(),
		StartIndex:         cp.LastProcessedIndex,
		LastProcessedIndex: cp.LastProcessedIndex,
		Failures:           failures,
		StartedAt:          time.Now(),
	}
	if d.opts.Restart {
		state.StartIndex = 0
		state.LastProcessedIndex = 0
	}
	return state, nil
}

func (d *Driver) flush(state *RunState) error {
	if err := d.store.Save(state.Checkpoint()); err != nil {
		return fmt.Errorf("failed to flush checkpoint: %w", err)
	}
	if err := d.store.SaveFailures(state.Failures); err != nil {
		return fmt.Errorf("failed to flush failure log: %w", err)
	}
	logger.LogCheckpoint(d.logger, state.LastProcessedIndex, len(state.Failures))
	return nil
}

type nopReporter struct{}

func (nopReporter) Started(int, int)               {}
func (nopReporter) Skipped(int, int)               {}
func (nopReporter) Downloaded(int, int, string)    {}
func (nopReporter) Failed(int, int, string, error) {}
func (nopReporter) Finished(Summary)               {}
