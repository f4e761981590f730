// Package dedupe provides full-record deduplication for detector output.
package dedupe

// Option applies a configuration option to a HashSet.
type Option func(*options)

type options struct {
	sizeHint int
}

// WithSizeHint pre-sizes the set for roughly n distinct items.
func WithSizeHint(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.sizeHint = n
		}
	}
}
