package types

import "errors"

var (
	// Usage errors
	ErrInvalidIdentity = errors.New("identity must be 0 or 1")
	ErrInvalidTarget   = errors.New("target must not be negative")

	// Invariant violations observed by the harness
	ErrLostUpdate      = errors.New("counter does not match expected total")
	ErrMutualExclusion = errors.New("both participants inside the critical section")

	// Run history errors
	ErrRunNotFound = errors.New("run not found")
)
