package ingest

import "errors"

// Sentinel ingestion errors. All of them are fatal to a run.
var (
	ErrMissingColumn = errors.New("required column missing")
	ErrEmptyInput    = errors.New("input has no header")
	ErrUnknownFormat = errors.New("unknown input format")
)
