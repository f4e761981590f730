package service

import "errors"

// Sentinel run errors.
var (
	// ErrChunkFailed wraps the first chunk failure of a run. The run
	// returns no partial output.
	ErrChunkFailed = errors.New("chunk processing failed")
	// ErrSource wraps a failure reading the chunk stream.
	ErrSource = errors.New("reading chunk source")
	// ErrIncomplete reports that fewer chunk results came back than were submitted.
	ErrIncomplete = errors.New("run incomplete")
	// ErrUnknownStrategy is returned for a strategy name that is not supported.
	ErrUnknownStrategy = errors.New("unknown strategy")
)
