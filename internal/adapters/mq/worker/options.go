package worker

import (
	"context"

	"github.com/okian/farbklang/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithOnFailure registers a callback for submissions that could not be
// persisted, e.g. to forget their idempotency key so a retry is accepted.
func WithOnFailure(fn func(ctx context.Context, s Submission, err error)) Option {
	return func(w *InMemoryWorker) {
		if fn != nil {
			w.onFailure = fn
		}
	}
}
