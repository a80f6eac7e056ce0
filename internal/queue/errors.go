package queue

import "errors"

var (
	// ErrQueueClosed is returned when operating on a closed queue
	ErrQueueClosed = errors.New("queue is closed")

	// ErrQueueFull is returned when a bounded queue has no room
	ErrQueueFull = errors.New("queue is full")

	// ErrItemNotFound is returned when a dead letter item does not exist
	ErrItemNotFound = errors.New("item not found")

	// ErrMaxRetriesExceeded is returned when an item keeps failing
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
