package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for repository errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidLimit     = errors.New("invalid standings limit")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrUnknownDriver    = errors.New("unknown database driver")
)

// unavailable wraps a datastore I/O failure so callers can classify it as
// retryable while still matching the underlying cause.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
