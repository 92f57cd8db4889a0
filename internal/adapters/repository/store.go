// Package repository persists ratings and serves immutable snapshots of them.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/farbklang/internal/domain/model"
)

// Store drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverXLSX   = "xlsx"
)

// Store provides read/write access to stored ratings.
type Store interface {
	// LoadAll returns every stored record in storage order. Records whose
	// colors do not parse are returned verbatim.
	LoadAll(ctx context.Context) ([]model.Record, error)

	// Upsert removes any record with the same song title and appends rec.
	// It reports whether an older record was replaced.
	Upsert(ctx context.Context, rec model.Record) (bool, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying resources.
	Close() error
}

// Open builds the store selected by driver.
func Open(ctx context.Context, driver, path, sheet string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return NewSQLiteStore(ctx, path)
	case DriverXLSX:
		return NewXLSXStore(ctx, path, sheet)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// FilePath reports the file a store writes to, or "" for in-memory stores.
func FilePath(s Store) string {
	if f, ok := s.(interface{ Path() string }); ok {
		return f.Path()
	}
	return ""
}

func checkSong(rec model.Record) error {
	if strings.TrimSpace(rec.Song) == "" {
		return ErrEmptySong
	}
	return nil
}
