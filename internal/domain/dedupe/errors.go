package dedupe

import "errors"

// Sentinel kinds for dedupe errors.
var (
	ErrHash = errors.New("hash record")
)
