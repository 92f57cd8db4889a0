// Package worker persists queued submissions and refreshes the read snapshot.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/farbklang/internal/adapters/repository"
	"github.com/okian/farbklang/internal/domain/model"
	"github.com/okian/farbklang/pkg/logger"
	"github.com/okian/farbklang/pkg/metrics"
)

// Submission is what workers read off the queue.
type Submission = model.Submission

// Writer stores a record, replacing any record with the same song.
type Writer interface {
	Upsert(ctx context.Context, rec model.Record) (bool, error)
}

// Refresher republishes the read snapshot after a write.
type Refresher interface {
	Refresh(ctx context.Context, trigger string) (*model.Snapshot, error)
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Submission
}

// Worker persists submissions.
type Worker interface {
	// Run consumes the queue until it is closed or ctx is cancelled.
	Run(ctx context.Context)

	// Done is closed when Run returns.
	Done() <-chan struct{}
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	writer    Writer
	refresher Refresher
	name      string
	onFailure func(ctx context.Context, s Submission, err error)

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a worker. refresher may be nil.
func NewInMemoryWorker(queue Queue, writer Writer, refresher Refresher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		writer:    writer,
		refresher: refresher,
		name:      "worker",
		onFailure: func(context.Context, Submission, error) {},
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run implements Worker. Pending submissions are drained after the queue is
// closed.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-items:
			if !ok {
				return
			}
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "error persisting submission", logger.Error(err))
			}
		}
	}
}

// Done implements Worker.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, s Submission) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(metrics.SinceMs(start))
	}()

	writeStart := time.Now()
	replaced, err := w.writer.Upsert(ctx, s.Record)
	metrics.RecordStoreWriteLatency(metrics.SinceMs(writeStart))
	if err != nil {
		metrics.RecordSaveFailed()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		metrics.RecordErrorByType("store_error", "high")
		w.onFailure(ctx, s, err)
		return fmt.Errorf("save %s (%q): %w", s.ID, s.Record.Song, err)
	}
	metrics.RecordSavePersisted()
	w.logger.Info(ctx, "rating saved",
		logger.String("submission_id", s.ID),
		logger.String("song", s.Record.Song),
		logger.Bool("replaced", replaced))

	if w.refresher == nil {
		return nil
	}
	if _, err := w.refresher.Refresh(ctx, repository.TriggerWrite); err != nil {
		// The write succeeded; the next refresh will pick it up.
		metrics.RecordWorkerError()
		w.logger.Warn(ctx, "snapshot refresh after save failed", logger.Error(err))
	}
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	stopOnce sync.Once
	logger   logger.Logger
}

// NewPool creates a pool. A workerCount below 1 means one worker, which the
// spreadsheet store needs to keep writes serialized.
func NewPool(workerCount int, queue Queue, writer Writer, refresher Refresher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, writer, refresher, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
			}
		}
		for i, w := range p.workers {
			select {
			case <-w.Done():
			case <-ctx.Done():
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
				err = fmt.Errorf("shutdown timed out: %w", ctx.Err())
				return
			}
		}
		metrics.UpdateWorkerCount(0)
	})
	return err
}
