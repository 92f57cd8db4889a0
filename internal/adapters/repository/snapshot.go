package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/farbklang/internal/domain/model"
	"github.com/okian/farbklang/pkg/logger"
	"github.com/okian/farbklang/pkg/metrics"
)

// Refresh triggers, used as a metric label.
const (
	TriggerStart    = "start"
	TriggerWrite    = "write"
	TriggerInterval = "interval"
	TriggerWatch    = "watch"
	TriggerManual   = "manual"
)

// Snapshotter publishes immutable snapshots of a store. Readers call Current
// and never block on the store.
type Snapshotter struct {
	store           Store
	refreshInterval time.Duration
	now             func() time.Time
	log             logger.Logger

	snapshot atomic.Pointer[model.Snapshot]
	version  atomic.Int64
	mu       sync.Mutex // serializes reloads

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewSnapshotter wraps store. Current returns an empty snapshot until the
// first Refresh.
func NewSnapshotter(store Store, opts ...Option) *Snapshotter {
	s := &Snapshotter{
		store:           store,
		refreshInterval: 30 * time.Second,
		now:             time.Now,
		log:             logger.Get(),
		stopChan:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot.Store(&model.Snapshot{TakenAt: s.now().UTC(), Records: []model.Record{}})
	return s
}

// Current returns the latest published snapshot; never nil.
func (s *Snapshotter) Current() *model.Snapshot {
	return s.snapshot.Load()
}

// Refresh reloads every record and publishes a new snapshot. On error the
// previous snapshot stays current.
func (s *Snapshotter) Refresh(ctx context.Context, trigger string) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	records, err := s.store.LoadAll(ctx)
	metrics.RecordStoreLoadLatency(metrics.SinceMs(start))
	if err != nil {
		metrics.RecordErrorByComponent("repository", "load_failed")
		return s.Current(), err
	}
	if records == nil {
		records = []model.Record{}
	}

	snap := &model.Snapshot{
		Version: s.version.Add(1),
		TakenAt: s.now().UTC(),
		Records: records,
	}
	s.snapshot.Store(snap)

	metrics.RecordSnapshotRefresh(trigger)
	metrics.UpdateRecordsTotal(len(records))
	s.log.Debug(ctx, "snapshot refreshed",
		logger.String("trigger", trigger),
		logger.Int("records", len(records)),
		logger.Any("version", snap.Version))
	return snap, nil
}

// Start launches the periodic reload loop when an interval is configured.
func (s *Snapshotter) Start(ctx context.Context) {
	if s.refreshInterval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				if _, err := s.Refresh(ctx, TriggerInterval); err != nil {
					s.log.Warn(ctx, "periodic snapshot refresh failed", logger.Error(err))
				}
			}
		}
	}()
}

// Close stops the reload loop. It does not close the store.
func (s *Snapshotter) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}
