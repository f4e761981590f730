package sampler

import (
	"time"

	"github.com/okian/spoofwatch/pkg/logger"
)

// DefaultInterval is the polling period when none is configured.
const DefaultInterval = 100 * time.Millisecond

// Option configures a Sampler.
type Option func(*Sampler)

// WithInterval sets the polling period.
func WithInterval(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Sampler) {
		if l != nil {
			s.logger = l
		}
	}
}
