package sampler

import "errors"

var (
	// ErrProcess is returned when the current process cannot be inspected.
	ErrProcess = errors.New("inspect process")
	// ErrNoSamples is returned when summarising an empty series.
	ErrNoSamples = errors.New("no samples")
)
