package pipeline

import "errors"

// Sentinel errors for pipeline operations.
var (
	// ErrInvalidPeriod is returned when a sampling period is outside
	// the allowed range. The previous period stays in effect.
	ErrInvalidPeriod = errors.New("pipeline: sample period out of range")

	// ErrNoSource is returned by operations that need an active media
	// source when none is acquired.
	ErrNoSource = errors.New("pipeline: no active source")

	// ErrStopped is returned when a request reaches a pipeline whose
	// run loop has exited.
	ErrStopped = errors.New("pipeline: stopped")
)
