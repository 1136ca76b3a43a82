package logger

import "github.com/rs/zerolog"

// LogRecordOutcome logs the result of processing a single manifest record
func LogRecordOutcome(log Logger, index, total int, productNumber, outcome string, err error) {
	l := log.WithFields(map[string]interface{}{
		"index":          index,
		"total":          total,
		"product_number": productNumber,
		"outcome":        outcome,
	})

	switch {
	case err != nil:
		l.WithError(err).Warn("Record failed")
	case outcome == "skipped":
		l.Info("Record skipped")
	default:
		l.Info("Record downloaded")
	}
}

// LogCheckpoint logs a checkpoint flush
func LogCheckpoint(log Logger, lastProcessedIndex, failures int) {
	log.DebugWithFields("Checkpoint flushed", map[string]interface{}{
		"last_processed_index": lastProcessedIndex,
		"failures":             failures,
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(log Logger, component string, settings map[string]interface{}) {
	l := log.WithField("component", component)
	if len(settings) > 0 {
		l = l.WithFields(settings)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(log Logger, component string, reason string) {
	log.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}

func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
