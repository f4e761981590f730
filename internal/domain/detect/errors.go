package detect

import "errors"

// Sentinel kinds for detector errors.
var (
	ErrNotAnnotated  = errors.New("track has no derived kinematics")
	ErrInvalidWindow = errors.New("neighbor time window must be positive")
)
