package chunk

import (
	"time"

	"github.com/okian/spoofwatch/internal/domain/detect"
	"github.com/okian/spoofwatch/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithThresholds sets the detector thresholds.
func WithThresholds(t detect.Thresholds) Option {
	return func(p *Pipeline) {
		p.thresholds = t
	}
}

// WithTimestampLayout sets the time.Parse layout of the raw timestamp text.
func WithTimestampLayout(layout string) Option {
	return func(p *Pipeline) {
		if layout != "" {
			p.layout = layout
		}
	}
}

// WithLocation sets the zone naive timestamps are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithNeighbors enables the cross-vessel neighbor conflict pass.
func WithNeighbors(enabled bool) Option {
	return func(p *Pipeline) {
		p.neighbors = enabled
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}
