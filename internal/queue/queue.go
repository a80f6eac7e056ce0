// Package queue moves work off the request path. Two backends share the
// same interface:
//
//   - MemoryQueue: a bounded channel, lost on restart. Default for a single
//     companion process.
//   - RedisQueue: a Redis list holding JSON-encoded items, survives restarts
//     and can be drained by another process.
//
// Workers take items in batches with Dequeue and park items that keep
// failing in a DeadLetterQueue.
package queue

import (
	"context"
	"time"
)

// Queue is a FIFO of typed items
type Queue[T any] interface {
	// Enqueue adds an item without blocking. It returns ErrQueueFull when a
	// bounded queue has no room.
	Enqueue(ctx context.Context, item T) error

	// Dequeue waits up to timeout for the first item, then takes whatever
	// else is ready, up to maxItems. A timeout <= 0 waits until an item
	// arrives, the queue is closed or ctx is done. An expired timeout
	// returns an empty slice and no error.
	Dequeue(ctx context.Context, maxItems int, timeout time.Duration) ([]T, error)

	// Length returns the number of waiting items
	Length(ctx context.Context) (int, error)

	// Close stops accepting items. Items already queued can still be drained.
	Close() error
}

// DeadLetterQueue keeps items that could not be processed
type DeadLetterQueue[T any] interface {
	Add(ctx context.Context, item T, err error) error
	List(ctx context.Context, maxItems int) ([]DeadLetterItem[T], error)
	Remove(ctx context.Context, id string) error
	Close() error
}

// DeadLetterItem is a failed item with the error that parked it
type DeadLetterItem[T any] struct {
	ID        string    `json:"id"`
	Item      T         `json:"item"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Config holds queue configuration
type Config struct {
	// Name is used for the Redis key and in log lines
	Name string

	// Capacity bounds the in-memory queue
	Capacity int

	// BatchSize is the maximum number of items a worker takes at once
	BatchSize int

	// BatchTimeout is how long a worker waits for the first item
	BatchTimeout time.Duration

	// MaxRetries is the number of retries before an item goes to the DLQ
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled on each retry
	RetryBackoff time.Duration
}

// DefaultConfig returns default queue configuration
func DefaultConfig(name string) *Config {
	return &Config{
		Name:         name,
		Capacity:     1000,
		BatchSize:    50,
		BatchTimeout: 2 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 500 * time.Millisecond,
	}
}

// Backoff returns the wait before the given retry attempt (1-based)
func (c *Config) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return c.RetryBackoff * time.Duration(1<<uint(attempt-1))
}
