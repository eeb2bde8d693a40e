package domain

import "errors"

var (
	ErrExtensionLimitExceeded = errors.New("extension limit exceeded")
	ErrAlreadyReturned        = errors.New("loan has already been returned")
	ErrNotOverdueYet          = errors.New("loan due date has not passed")
	ErrInvalidExtensionCount  = errors.New("invalid extension count")

	// ErrInvariantViolation marks an impossible (state, event) combination
	// during replay. It signals a corrupt event stream or a logic defect and
	// must never be swallowed or defaulted away by callers.
	ErrInvariantViolation = errors.New("loan invariant violation")
)
