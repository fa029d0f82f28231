// Package cli implements the covidchart command-line interface.
//
// Commands fetch series from the configured source (the prediction
// service, a dataset file or MongoDB), chart them, and write or serve the
// result. The CLI is built using cobra and logs through charmbracelet/log.
//
// # Commands
//
//   - render: Write a chart of the selected series as SVG, PNG or JSON
//   - vintages, timeline: List prediction batches and lay out the scrubber
//   - explore: Step through prediction batches interactively
//   - serve: Serve a chart session over HTTP
//   - export, import: Copy a source into a dataset file or MongoDB
//   - cache, config: Manage the cache and settings
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time rounded to the millisecond, along
// with any key/value pairs.
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "took", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}
