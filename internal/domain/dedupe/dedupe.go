// Package dedupe tracks save submission ids so a repeated click is applied once.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10_000

// Deduper records seen submission ids.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so the submission can be retried, e.g. after the
	// save queue rejected it.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps ids in a map plus a ring of insertion order used for
// FIFO eviction in bounded mode. Unrecorded ids leave a stale ring slot that
// is skipped when it comes up for eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]uint64 // id -> insertion sequence
	ring    []ringSlot
	next    int
	seq     uint64
	maxSize int
	size    atomic.Int64
}

type ringSlot struct {
	id  string
	seq uint64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]uint64)
	if d.maxSize > 0 {
		d.ring = make([]ringSlot, d.maxSize)
	}
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	d.seq++
	if d.maxSize > 0 {
		old := d.ring[d.next]
		if cur, ok := d.seen[old.id]; ok && old.id != "" && cur == old.seq {
			delete(d.seen, old.id)
			d.size.Add(-1)
		}
		d.ring[d.next] = ringSlot{id: id, seq: d.seq}
		d.next = (d.next + 1) % d.maxSize
	}
	d.seen[id] = d.seq
	d.size.Add(1)
	return false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		delete(d.seen, id)
		d.size.Add(-1)
	}
}

// Size returns the number of remembered ids.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
