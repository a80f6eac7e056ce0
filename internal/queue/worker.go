package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hoc_companion/internal/utils"
)

// drainTimeout bounds each dequeue while draining on Stop
const drainTimeout = 50 * time.Millisecond

// ItemHandler processes one item
type ItemHandler[T any] func(ctx context.Context, item T) error

// BatchHandler processes a whole batch at once, e.g. in one transaction
type BatchHandler[T any] func(ctx context.Context, items []T) error

// Worker drains a queue in batches. When a batch handler is set it is
// tried first; if it fails, or none is set, items are handled one by one
// with exponential backoff and moved to the dead letter queue after
// MaxRetries.
type Worker[T any] struct {
	queue       Queue[T]
	dlq         DeadLetterQueue[T]
	config      *Config
	handleItem  ItemHandler[T]
	handleBatch BatchHandler[T]
	logger      *utils.Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	stoppedChan chan struct{}
}

// NewWorker creates a worker. dlq may be nil.
func NewWorker[T any](q Queue[T], dlq DeadLetterQueue[T], config *Config, handle ItemHandler[T], logger *utils.Logger) *Worker[T] {
	if config == nil {
		config = DefaultConfig("worker")
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	return &Worker[T]{
		queue:      q,
		dlq:        dlq,
		config:     config,
		handleItem: handle,
		logger:     logger,
	}
}

// WithBatchHandler sets the handler tried before per-item processing
func (w *Worker[T]) WithBatchHandler(handle BatchHandler[T]) *Worker[T] {
	w.handleBatch = handle
	return w
}

// Enqueue adds an item to the queue
func (w *Worker[T]) Enqueue(ctx context.Context, item T) error {
	return w.queue.Enqueue(ctx, item)
}

// Start starts the worker goroutine. Calling Start twice is a no-op.
func (w *Worker[T]) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stoppedChan != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.stoppedChan = make(chan struct{})
	go w.run(runCtx, w.stoppedChan)
}

// Stop stops the loop, processes what is left in the queue and returns
// when done or when ctx expires.
func (w *Worker[T]) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel, stopped := w.cancel, w.stoppedChan
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		items, err := w.queue.Dequeue(ctx, w.config.BatchSize, drainTimeout)
		if err != nil || len(items) == 0 {
			return nil
		}
		w.process(ctx, items)
	}
}

// QueueLength returns the number of waiting items
func (w *Worker[T]) QueueLength(ctx context.Context) (int, error) {
	return w.queue.Length(ctx)
}

// DeadLetters lists items parked in the dead letter queue
func (w *Worker[T]) DeadLetters(ctx context.Context, maxItems int) ([]DeadLetterItem[T], error) {
	if w.dlq == nil {
		return nil, fmt.Errorf("dead letter queue not configured")
	}
	return w.dlq.List(ctx, maxItems)
}

// RetryDeadLetter puts a parked item back on the queue
func (w *Worker[T]) RetryDeadLetter(ctx context.Context, id string) error {
	if w.dlq == nil {
		return fmt.Errorf("dead letter queue not configured")
	}

	items, err := w.dlq.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to list dead letter items: %w", err)
	}
	for _, item := range items {
		if item.ID != id {
			continue
		}
		if err := w.queue.Enqueue(ctx, item.Item); err != nil {
			return fmt.Errorf("failed to re-enqueue item: %w", err)
		}
		return w.dlq.Remove(ctx, id)
	}
	return ErrItemNotFound
}

func (w *Worker[T]) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	for {
		items, err := w.queue.Dequeue(ctx, w.config.BatchSize, w.config.BatchTimeout)
		// dequeued items are finished even when Stop cancels the loop
		procCtx := context.WithoutCancel(ctx)
		if ctx.Err() != nil {
			if len(items) > 0 {
				w.process(procCtx, items)
			}
			w.logger.Info("Queue worker stopping", "queue", w.config.Name)
			return
		}
		if err != nil {
			w.logger.Error("Failed to dequeue", "queue", w.config.Name, "error", err)
			if !sleepCtx(ctx, time.Second) {
				return
			}
			continue
		}
		if len(items) == 0 {
			continue
		}
		w.process(procCtx, items)
	}
}

func (w *Worker[T]) process(ctx context.Context, items []T) {
	w.logger.Debug("Processing batch", "queue", w.config.Name, "count", len(items))

	if w.handleBatch != nil {
		err := w.handleBatch(ctx, items)
		if err == nil {
			return
		}
		w.logger.Error("Batch failed, falling back to individual items", "queue", w.config.Name, "error", err)
	}

	for _, item := range items {
		if err := w.processItem(ctx, item); err != nil {
			w.logger.Error("Failed to process item", "queue", w.config.Name, "error", err)
		}
	}
}

func (w *Worker[T]) processItem(ctx context.Context, item T) error {
	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := w.config.Backoff(attempt)
			w.logger.Debug("Retrying item", "queue", w.config.Name, "attempt", attempt, "backoff", backoff)
			if !sleepCtx(ctx, backoff) {
				lastErr = ctx.Err()
				break
			}
		}

		if lastErr = w.handleItem(ctx, item); lastErr == nil {
			return nil
		}
	}

	if w.dlq != nil {
		// DLQ writes survive worker cancellation
		if err := w.dlq.Add(context.WithoutCancel(ctx), item, lastErr); err != nil {
			w.logger.Error("Failed to add to dead letter queue", "queue", w.config.Name, "error", err)
		} else {
			w.logger.Warn("Item moved to DLQ", "queue", w.config.Name, "error", lastErr)
		}
	}

	return fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

// sleepCtx sleeps for d, returning false if ctx ends first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
