package repository

import (
	"time"

	"github.com/okian/farbklang/pkg/logger"
)

// Option applies a configuration option to the Snapshotter.
type Option func(*Snapshotter)

// WithRefreshInterval sets how often the snapshot is reloaded from the store.
// Zero or negative disables periodic reloads.
func WithRefreshInterval(interval time.Duration) Option {
	return func(s *Snapshotter) {
		s.refreshInterval = interval
	}
}

// WithClock overrides the time source used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Snapshotter) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the snapshotter logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Snapshotter) {
		if l != nil {
			s.log = l
		}
	}
}

// WatcherOption applies a configuration option to the Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the watcher waits for a burst of file events to
// settle before reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the watcher logger.
func WithWatcherLogger(l logger.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}
