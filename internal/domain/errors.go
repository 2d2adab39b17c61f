package domain

import "errors"

// Error taxonomy for capability failures. Adapters classify SDK errors into
// these before they reach policy code; the orchestrator and the chains branch
// on errors.Is, never on error text.
var (
	// ErrTransient marks a retryable I/O failure. Only the log sink retries.
	ErrTransient = errors.New("transient failure")

	// ErrPermanent marks quota/disabled/not-configured failures.
	// Degrade, don't retry.
	ErrPermanent = errors.New("permanent capability failure")

	// ErrAuth marks 401/403-class failures. A broader search (the transcriber
	// backend chain) aborts immediately on it.
	ErrAuth = errors.New("authentication failure")

	// ErrNotFound is treated as an empty result, not a failure.
	ErrNotFound = errors.New("not found")
)

// ClassifiedError pairs a taxonomy class with the underlying cause.
type ClassifiedError struct {
	Class error // one of the sentinels above
	Err   error
}

func (e *ClassifiedError) Error() string { return e.Class.Error() + ": " + e.Err.Error() }
func (e *ClassifiedError) Unwrap() error { return e.Err }

func (e *ClassifiedError) Is(target error) bool { return target == e.Class }

// Transient wraps err as retryable.
func Transient(err error) error { return &ClassifiedError{Class: ErrTransient, Err: err} }

// Permanent wraps err as non-retryable.
func Permanent(err error) error { return &ClassifiedError{Class: ErrPermanent, Err: err} }

// AuthFailure wraps err as an authentication/permission failure.
func AuthFailure(err error) error { return &ClassifiedError{Class: ErrAuth, Err: err} }
