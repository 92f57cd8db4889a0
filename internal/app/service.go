// Package service ties validation, ranking, the save pipeline and the record
// snapshot together behind the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/farbklang/internal/adapters/mq/queue"
	"github.com/okian/farbklang/internal/adapters/mq/worker"
	"github.com/okian/farbklang/internal/adapters/repository"
	"github.com/okian/farbklang/internal/domain/dedupe"
	"github.com/okian/farbklang/internal/domain/model"
	"github.com/okian/farbklang/internal/domain/palette"
	"github.com/okian/farbklang/internal/domain/rating"
	"github.com/okian/farbklang/internal/domain/similarity"
	"github.com/okian/farbklang/internal/domain/types"
	"github.com/okian/farbklang/pkg/logger"
	"github.com/okian/farbklang/pkg/metrics"
)

const defaultShutdownTimeout = 30 * time.Second

// Service implements the API dependencies for the perception log.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	ownStore  bool
	snapshots *repository.Snapshotter
	watcher   *repository.Watcher
	deduper   dedupe.Deduper
	queue     queue.Queue
	pool      *worker.Pool
	validator *rating.Validator

	// Configuration
	driver           string
	storePath        string
	sheetName        string
	watch            bool
	similarLimit     int
	maxLimit         int
	workerCount      int
	queueSize        int
	dedupeSize       int
	snapshotInterval time.Duration
	shutdownTimeout  time.Duration
	emotions         []string
	maxEmotions      int
	now              func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service. Nothing is opened until Start.
func New(opts ...Option) *Service {
	s := &Service{
		ownStore:         true,
		driver:           repository.DriverMemory,
		similarLimit:     5,
		maxLimit:         50,
		workerCount:      1,
		queueSize:        1_000,
		dedupeSize:       10_000,
		snapshotInterval: 30 * time.Second,
		shutdownTimeout:  defaultShutdownTimeout,
		emotions:         append([]string(nil), rating.DefaultEmotions...),
		maxEmotions:      rating.DefaultMaxEmotions,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.similarLimit > s.maxLimit {
		s.similarLimit = s.maxLimit
	}
	return s
}

// Start opens the store, publishes the first snapshot and starts the save
// workers and the file watcher.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting rating service...", logger.String("driver", s.driver))

	if s.store == nil {
		store, err := repository.Open(ctx, s.driver, s.storePath, s.sheetName)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.ownStore = true
	}

	s.snapshots = repository.NewSnapshotter(s.store,
		repository.WithRefreshInterval(s.snapshotInterval),
		repository.WithLogger(s.logger.Named("snapshot")),
	)
	snap, err := s.snapshots.Refresh(ctx, repository.TriggerStart)
	if err != nil {
		s.closeStore()
		return fmt.Errorf("load records: %w", err)
	}
	s.snapshots.Start(ctx)

	s.validator = rating.NewValidator(
		rating.WithEmotions(s.emotions),
		rating.WithMaxEmotions(s.maxEmotions),
		rating.WithClock(s.now),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	deduper := s.deduper
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store, s.snapshots,
		worker.WithOnFailure(func(ctx context.Context, sub worker.Submission, _ error) {
			deduper.Unrecord(ctx, sub.ID)
		}),
	)
	// Workers outlive ctx so Stop can drain saves already accepted.
	s.pool.Start(context.WithoutCancel(ctx))

	if path := repository.FilePath(s.store); s.watch && path != "" {
		snaps, log := s.snapshots, s.logger
		w := repository.NewWatcher(path, func(ctx context.Context) {
			if _, err := snaps.Refresh(ctx, repository.TriggerWatch); err != nil {
				log.Warn(ctx, "reload after file change failed", logger.Error(err))
			}
		}, repository.WithWatcherLogger(s.logger.Named("watcher")))
		if err := w.Start(ctx); err != nil {
			s.logger.Warn(ctx, "store watcher disabled", logger.Error(err))
		} else {
			s.watcher = w
		}
	}

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("records", snap.Len()),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("watch", s.watcher != nil),
	)
	return nil
}

// Stop drains pending saves and releases every component.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping rating service...")

	drained := true
	if err := s.pool.Shutdown(ctx); err != nil {
		drained = false
		s.logger.Error(ctx, "save workers did not drain", logger.Error(err))
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
	_ = s.snapshots.Close()
	if drained {
		s.closeStore()
	} else {
		// Workers still hold the store; closing it would fail their writes.
		s.logger.Warn(ctx, "leaving store open for unfinished saves",
			logger.Int("pending", s.queue.Len(ctx)))
		if s.ownStore {
			s.store = nil
		}
	}

	s.started = false
	s.logger.Info(ctx, "rating service stopped")
}

func (s *Service) closeStore() {
	if s.store == nil || !s.ownStore {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "error closing store", logger.Error(err))
	}
	s.store = nil
}

// Save validates form, answers with the songs whose palettes are closest to
// it and queues the write. id is the client's idempotency key; an empty id
// gets a fresh one. A repeated id is reported as a duplicate and not written
// again.
func (s *Service) Save(ctx context.Context, id string, form rating.Form) (types.SaveResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.SaveResult{}, ErrNotStarted
	}

	rec, err := s.validator.Normalize(form)
	if err != nil {
		metrics.RecordSaveRejected("validation")
		return types.SaveResult{}, err
	}
	if id == "" {
		id = uuid.NewString()
	}

	res := types.SaveResult{SubmissionID: id, Record: rec}
	res.Similar, res.Skipped, err = s.similarTo(ctx, rec)
	if err != nil {
		return types.SaveResult{}, err
	}

	if s.deduper.SeenAndRecord(ctx, id) {
		metrics.RecordSaveDuplicate()
		s.logger.Debug(ctx, "duplicate submission, skipping", logger.String("submission_id", id))
		res.Duplicate = true
		return res, nil
	}

	if err := s.queue.Enqueue(ctx, model.Submission{ID: id, Record: rec}); err != nil {
		s.deduper.Unrecord(ctx, id)
		if errors.Is(err, queue.ErrFull) {
			metrics.RecordSaveRejected("backpressure")
			return types.SaveResult{}, ErrBackpressure
		}
		metrics.RecordSaveRejected("queue")
		return types.SaveResult{}, fmt.Errorf("enqueue: %w", err)
	}
	metrics.RecordSaveAccepted()
	return res, nil
}

// similarTo ranks the snapshot against rec, leaving out earlier ratings of
// the same song.
func (s *Service) similarTo(ctx context.Context, rec model.Record) ([]types.Match, []types.Skipped, error) {
	query, err := palette.ParsePalette(rec.Colors)
	if err != nil {
		return nil, nil, err
	}

	all := s.snapshots.Current().Records
	candidates := make([]model.Record, 0, len(all))
	index := make([]int, 0, len(all))
	for i, r := range all {
		if r.Song == rec.Song {
			continue
		}
		candidates = append(candidates, r)
		index = append(index, i)
	}

	res, err := s.rank(ctx, query, candidates, s.similarLimit)
	if err != nil {
		return nil, nil, err
	}
	for i := range res.Skipped {
		res.Skipped[i].Index = index[res.Skipped[i].Index]
	}
	return types.Matches(res.Matches), types.SkippedRecords(res.Skipped), nil
}

// Similar ranks every stored record against colors and returns the k
// closest. k must not exceed the configured maximum.
func (s *Service) Similar(ctx context.Context, colors [palette.Slots]string, k int) (types.Similar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.Similar{}, ErrNotStarted
	}
	if k > s.maxLimit {
		return types.Similar{}, fmt.Errorf("%w: %d > %d", ErrLimitExceeded, k, s.maxLimit)
	}

	query, err := palette.ParsePalette(colors)
	if err != nil {
		return types.Similar{}, fmt.Errorf("query: %w", err)
	}
	res, err := s.rank(ctx, query, s.snapshots.Current().Records, k)
	if err != nil {
		return types.Similar{}, err
	}
	return types.Similar{
		Query:   query.Strings(),
		Matches: types.Matches(res.Matches),
		Skipped: types.SkippedRecords(res.Skipped),
	}, nil
}

func (s *Service) rank(ctx context.Context, query palette.Palette, candidates []model.Record, k int) (similarity.Result, error) {
	start := time.Now()
	res, err := similarity.Rank(query, candidates, k)
	metrics.RecordRanking(metrics.SinceMs(start), len(candidates), len(res.Skipped))
	if err != nil {
		return similarity.Result{}, err
	}
	for _, e := range res.Skipped {
		s.logger.Warn(ctx, "skipping malformed record",
			logger.Int("index", e.Index),
			logger.String("song", e.Song),
			logger.Error(e.Err),
		)
	}
	return res, nil
}

// Songs returns every stored rating in storage order.
func (s *Service) Songs(ctx context.Context) ([]types.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}

	recs := s.snapshots.Current().Records
	out := make([]types.Song, len(recs))
	for i, r := range recs {
		out[i] = types.SongFromRecord(r)
	}
	return out, nil
}

// Options describes the form: the emotion vocabulary and default values.
func (s *Service) Options(_ context.Context) types.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.Options{
		Emotions:      append([]string(nil), s.emotions...),
		MaxEmotions:   s.maxEmotions,
		DefaultColors: palette.Defaults,
		DefaultMood:   model.DefaultMood(),
		SimilarLimit:  s.similarLimit,
		MaxLimit:      s.maxLimit,
	}
}

// MaxSimilarLimit returns the cap on similarity queries.
func (s *Service) MaxSimilarLimit() int { return s.maxLimit }

// SimilarLimit returns the default number of similar songs.
func (s *Service) SimilarLimit() int { return s.similarLimit }

// Reload rereads the store immediately.
func (s *Service) Reload(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return 0, ErrNotStarted
	}
	snap, err := s.snapshots.Refresh(ctx, repository.TriggerManual)
	if err != nil {
		return 0, err
	}
	return snap.Len(), nil
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.Stats{
		Started:       s.started,
		Driver:        s.driver,
		QueueCapacity: s.queueSize,
		Workers:       s.workerCount,
	}
	if !s.started {
		return st
	}
	snap := s.snapshots.Current()
	st.Records = snap.Len()
	st.SnapshotVersion = snap.Version
	st.SnapshotTakenAt = snap.TakenAt
	st.QueueLength = s.queue.Len(ctx)
	st.QueueCapacity = s.queue.Cap()
	st.Workers = s.pool.Size()
	st.DedupeSize = s.deduper.Size()
	return st
}

// Healthy reports whether the service accepts requests.
func (s *Service) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
