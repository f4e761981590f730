package report

import "errors"

// ErrWrite is returned when a report cannot be written.
var ErrWrite = errors.New("write report")
