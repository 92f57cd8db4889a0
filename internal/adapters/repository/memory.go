package repository

import (
	"context"
	"sync"

	"github.com/okian/farbklang/internal/domain/model"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.Record
	closed  bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(seed ...model.Record) *MemoryStore {
	s := &MemoryStore{records: make([]model.Record, 0, len(seed))}
	for _, r := range seed {
		s.records = append(s.records, cloneRecord(r))
	}
	return s
}

// LoadAll implements Store.
func (s *MemoryStore) LoadAll(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]model.Record, len(s.records))
	for i, r := range s.records {
		out[i] = cloneRecord(r)
	}
	return out, nil
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(ctx context.Context, rec model.Record) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := checkSong(rec); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	kept := s.records[:0]
	replaced := false
	for _, r := range s.records {
		if r.Song == rec.Song {
			replaced = true
			continue
		}
		kept = append(kept, r)
	}
	s.records = append(kept, cloneRecord(rec))
	return replaced, nil
}

// Count implements Store.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return len(s.records), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func cloneRecord(r model.Record) model.Record {
	if r.Emotions != nil {
		r.Emotions = append([]string(nil), r.Emotions...)
	}
	return r
}
