package service

import (
	"context"
	"errors"

	"github.com/okian/podium/internal/adapters/repository"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("recompute queue is full")
	ErrUnknownEvent = errors.New("unknown event")
)

// IsRetryable reports whether err is worth retrying later: datastore
// outages, timeouts and queue backpressure. Validation errors are not.
func IsRetryable(err error) bool {
	return errors.Is(err, repository.ErrStoreUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrBackpressure)
}
