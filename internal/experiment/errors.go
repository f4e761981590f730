package experiment

import "errors"

var (
	// ErrNoGrid is returned when no chunk size or worker count is configured.
	ErrNoGrid = errors.New("empty experiment grid")
	// ErrOpenSource is returned when the input cannot be reopened for a run.
	ErrOpenSource = errors.New("open source")
	// ErrRun is returned when a measured run fails.
	ErrRun = errors.New("experiment run failed")
)
