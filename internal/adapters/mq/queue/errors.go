package queue

import "errors"

// Reasons an enqueue is refused.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)
