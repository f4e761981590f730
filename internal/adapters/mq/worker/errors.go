package worker

import "errors"

// Sentinel worker errors.
var (
	ErrPanic           = errors.New("chunk processing panicked")
	ErrShutdownTimeout = errors.New("shutdown timed out")
)
