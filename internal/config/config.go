// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig; load failures wrap ErrLoadConfig.
package config

import (
	"github.com/okian/farbklang/internal/domain/rating"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverXLSX   = "xlsx"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the record store: memory, sqlite or xlsx.
	StoreDriver string `koanf:"store_driver"`

	// StorePath is the database or spreadsheet file for file-backed drivers.
	StorePath string `koanf:"store_path"`

	// SheetName is the worksheet used by the xlsx driver.
	SheetName string `koanf:"sheet_name"`

	// WatchStore reloads the snapshot when the store file changes on disk.
	WatchStore bool `koanf:"watch_store"`

	// SimilarLimit is how many similar songs a save returns.
	SimilarLimit int `koanf:"similar_limit"`

	// MaxSimilarLimit caps GET /similar?limit.
	MaxSimilarLimit int `koanf:"max_similar_limit"`

	// SaveQueueSize bounds the in-memory save queue.
	SaveQueueSize int `koanf:"save_queue_size"`

	// SaveWorkerCount sets the number of save workers. Spreadsheet drivers
	// need a single writer.
	SaveWorkerCount int `koanf:"save_worker_count"`

	// DedupeSize sets how many submission ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// SnapshotIntervalMS is the periodic snapshot reload interval; 0 disables it.
	SnapshotIntervalMS int `koanf:"snapshot_interval_ms"`

	// Emotions lists the tags the form offers.
	Emotions []string `koanf:"emotions"`

	// MaxEmotions caps how many tags a rating may carry.
	MaxEmotions int `koanf:"max_emotions"`
}

// New creates a Config populated with defaults.
func New() *Config {
	emotions := make([]string, len(rating.DefaultEmotions))
	copy(emotions, rating.DefaultEmotions)

	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		StoreDriver:        DriverXLSX,
		StorePath:          "data/farbwahrnehmung.xlsx",
		SheetName:          "Ratings",
		WatchStore:         true,
		SimilarLimit:       5,
		MaxSimilarLimit:    50,
		SaveQueueSize:      1_000,
		SaveWorkerCount:    1,
		DedupeSize:         10_000,
		SnapshotIntervalMS: 30_000,
		Emotions:           emotions,
		MaxEmotions:        rating.DefaultMaxEmotions,
	}
}
