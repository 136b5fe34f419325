package eventsync

import "errors"

// Sentinel errors for synchronizer waits.
var (
	// ErrTimeout is returned when a wait's deadline passes before its
	// condition holds. It is an expected outcome, not a fault.
	ErrTimeout          = errors.New("timeout while waiting for condition")
	ErrUnknownCondition = errors.New("unknown wait condition")
)
