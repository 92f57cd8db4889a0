package service

import (
	"time"

	"github.com/okian/farbklang/internal/adapters/repository"
	"github.com/okian/farbklang/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStoreDriver selects the store Start opens.
func WithStoreDriver(driver, path, sheet string) Option {
	return func(s *Service) {
		if driver != "" {
			s.driver = driver
		}
		s.storePath = path
		s.sheetName = sheet
	}
}

// WithStore uses an already opened store. The service does not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.ownStore = false
		}
	}
}

// WithOwnedStore uses an already opened store and closes it on Stop.
func WithOwnedStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.ownStore = true
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for queued saves.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithWatchStore reloads the snapshot when the store file changes on disk.
func WithWatchStore(on bool) Option {
	return func(s *Service) {
		s.watch = on
	}
}

// WithSimilarLimit sets how many similar songs a save returns.
func WithSimilarLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.similarLimit = n
		}
	}
}

// WithMaxSimilarLimit caps the limit a similarity query may ask for.
func WithMaxSimilarLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithWorkerCount sets the number of save workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the save queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSnapshotInterval sets the periodic snapshot reload; zero disables it.
func WithSnapshotInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.snapshotInterval = d
		}
	}
}

// WithEmotions sets the emotion tags the form offers.
func WithEmotions(list []string) Option {
	return func(s *Service) {
		if len(list) > 0 {
			s.emotions = append([]string(nil), list...)
		}
	}
}

// WithMaxEmotions caps how many tags a rating may carry.
func WithMaxEmotions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxEmotions = n
		}
	}
}

// WithClock overrides the time source used to stamp ratings.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
