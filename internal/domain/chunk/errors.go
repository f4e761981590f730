package chunk

import "errors"

// ErrDetector is returned when a detector rejects a track or chunk.
var ErrDetector = errors.New("detector failed")
