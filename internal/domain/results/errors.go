package results

import "errors"

// Validation errors for recording a winner. Neither is retryable.
var (
	ErrUnknownCategory      = errors.New("unknown category")
	ErrNomineeNotInCategory = errors.New("nominee does not belong to category")
)
