package logging

import (
	"context"
	"time"

	"hoc_companion/internal/utils"
)

// Recorder writes each finished request to the console, the request log
// file and the sink. Any of them may be nil.
type Recorder struct {
	console *utils.Logger
	file    *RequestLogger
	sink    Sink
	now     func() time.Time
}

// NewRecorder creates a recorder
func NewRecorder(console *utils.Logger, file *RequestLogger, sink Sink) *Recorder {
	if sink == nil {
		sink = NewNoopSink()
	}
	return &Recorder{
		console: console,
		file:    file,
		sink:    sink,
		now:     time.Now,
	}
}

// Record stamps the entry and hands it to every output. Sink failures are
// logged, never returned.
func (r *Recorder) Record(ctx context.Context, entry *LogEntry) {
	if entry.Timestamp == "" {
		entry.Timestamp = r.now().UTC().Format(entryTimeFormat)
	}

	if r.file != nil {
		r.file.Log(entry)
	}

	if r.console != nil {
		if entry.Response.Success {
			r.console.Info(entry.Summary())
		} else {
			r.console.Error(entry.Summary())
		}
	}

	if err := r.sink.Enqueue(ctx, entry); err != nil && r.console != nil {
		r.console.Warn("Failed to enqueue log entry", "request_id", entry.Request.RequestID, "error", err)
	}
}

// Close flushes the file and the sink
func (r *Recorder) Close(ctx context.Context) error {
	if r.file != nil {
		r.file.Shutdown()
	}
	return r.sink.Shutdown(ctx)
}
