package logging

import (
	"context"
	"time"

	"hoc_companion/internal/queue"
	"hoc_companion/internal/utils"
)

// Sink ships request log entries off the host.
type Sink interface {
	Enqueue(ctx context.Context, entry *LogEntry) error
	Shutdown(ctx context.Context) error
}

// NoopSink discards entries.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (s *NoopSink) Enqueue(ctx context.Context, entry *LogEntry) error {
	return nil
}

func (s *NoopSink) Shutdown(ctx context.Context) error {
	return nil
}

// S3SinkConfig holds configuration for the S3 sink
type S3SinkConfig struct {
	BufferSize    int           // queued entries before new ones are refused
	FlushSize     int           // max entries per uploaded object
	FlushInterval time.Duration // how long one dequeue waits for entries
	MaxRetries    int
}

// S3Sink buffers entries in memory and uploads them in batches through an
// S3Writer. Batches that keep failing end up in the dead letter queue.
type S3Sink struct {
	worker *queue.Worker[*LogEntry]
}

// NewS3Sink creates and starts a sink
func NewS3Sink(ctx context.Context, cfg S3SinkConfig, writer *S3Writer, logger *utils.Logger) *S3Sink {
	qcfg := queue.DefaultConfig("logging")
	if cfg.BufferSize > 0 {
		qcfg.Capacity = cfg.BufferSize
	}
	if cfg.FlushSize > 0 {
		qcfg.BatchSize = cfg.FlushSize
	}
	if cfg.FlushInterval > 0 {
		qcfg.BatchTimeout = cfg.FlushInterval
	}
	if cfg.MaxRetries > 0 {
		qcfg.MaxRetries = cfg.MaxRetries
	}

	worker := queue.NewWorker(
		queue.NewMemoryQueue[*LogEntry](qcfg),
		queue.NewMemoryDeadLetterQueue[*LogEntry](),
		qcfg,
		func(ctx context.Context, entry *LogEntry) error {
			_, err := writer.WriteBatch(ctx, []*LogEntry{entry})
			return err
		},
		logger,
	).WithBatchHandler(func(ctx context.Context, entries []*LogEntry) error {
		_, err := writer.WriteBatch(ctx, entries)
		return err
	})
	worker.Start(ctx)

	return &S3Sink{worker: worker}
}

// Enqueue buffers an entry; queue.ErrQueueFull when the buffer is full
func (s *S3Sink) Enqueue(ctx context.Context, entry *LogEntry) error {
	return s.worker.Enqueue(ctx, entry)
}

// Pending returns the number of buffered entries
func (s *S3Sink) Pending(ctx context.Context) (int, error) {
	return s.worker.QueueLength(ctx)
}

// Shutdown uploads what is buffered and stops the sink
func (s *S3Sink) Shutdown(ctx context.Context) error {
	return s.worker.Stop(ctx)
}
