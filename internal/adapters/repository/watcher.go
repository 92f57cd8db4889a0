package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/farbklang/pkg/logger"
	"github.com/okian/farbklang/pkg/metrics"
)

// Watcher calls onChange after the store file is modified on disk, for
// example when someone edits the spreadsheet by hand. Bursts of events are
// collapsed into one call.
type Watcher struct {
	path     string
	onChange func(context.Context)
	debounce time.Duration
	log      logger.Logger

	fsw      *fsnotify.Watcher
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewWatcher prepares a watcher for path. Call Start to begin watching.
func NewWatcher(path string, onChange func(context.Context), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: 250 * time.Millisecond,
		log:      logger.Get(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start watches the directory holding the file, since editors and excelize
// replace files rather than write them in place.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.loop(ctx)

	w.log.Info(ctx, "store watcher started", logger.String("path", w.path))
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			metrics.RecordStoreWatchEvent()
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error(ctx, "store watcher error", logger.Error(err))
		case <-timer.C:
			w.onChange(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Close stops watching (idempotent).
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		if w.fsw != nil {
			err = w.fsw.Close()
		}
	})
	w.wg.Wait()
	return err
}
