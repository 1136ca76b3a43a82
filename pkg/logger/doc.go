// Package logger provides structured logging for photofetch.
//
// It wraps zerolog behind a small Logger interface so components can be
// handed a logger (or a TestLogger in tests) instead of reaching for a
// global. Console output is colored when stdout is a terminal and colors
// are not disabled; Format "json" switches to raw JSON lines. When File is
// set, JSON lines are also appended to that file.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "batch")
//	log.InfoWithFields("Run started", map[string]interface{}{
//	    "records": 120,
//	    "resume_index": 40,
//	})
package logger
