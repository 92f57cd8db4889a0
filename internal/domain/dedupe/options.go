// Package dedupe tracks save submission ids so a repeated click is applied once.
package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize sets how many submission ids are remembered.
// If maxSize > 0 the oldest id is forgotten first once the set is full.
// If maxSize <= 0 the set is unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}
