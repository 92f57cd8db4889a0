package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/okian/farbklang/internal/domain/model"
	"github.com/okian/farbklang/internal/domain/rating"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	selectRatings = `SELECT created_at, song, color_1, color_2, color_3,
	cold_warm, garish_pastel, round_pointy, shape_dynamics, color_transitions, visual_density,
	emotions FROM ratings ORDER BY id`

	insertRating = `INSERT INTO ratings (created_at, song, color_1, color_2, color_3,
	cold_warm, garish_pastel, round_pointy, shape_dynamics, color_transitions, visual_density,
	emotions) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	deleteRating = `DELETE FROM ratings WHERE song = ?`
	countRatings = `SELECT COUNT(*) FROM ratings`
)

// SQLiteStore keeps records in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path and applies the
// embedded migrations.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, ErrMissingPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// One connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create migrate driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not create source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

// LoadAll implements Store.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRatings)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var (
			rec      model.Record
			ts       string
			emotions string
		)
		err := rows.Scan(&ts, &rec.Song, &rec.Colors[0], &rec.Colors[1], &rec.Colors[2],
			&rec.Mood.ColdWarm, &rec.Mood.GarishPastel, &rec.Mood.RoundPointy,
			&rec.Mood.ShapeDynamics, &rec.Mood.ColorTransitions, &rec.Mood.VisualDensity,
			&emotions)
		if err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		rec.Timestamp = parseTimestamp(ts)
		rec.Emotions = rating.SplitEmotions(emotions)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return out, nil
}

// Upsert implements Store. Delete and insert run in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, rec model.Record) (replaced bool, err error) {
	if err := checkSong(rec); err != nil {
		return false, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("error rolling back: %v (original error: %w)", rbErr, err)
			}
		}
	}()

	res, err := tx.ExecContext(ctx, deleteRating, rec.Song)
	if err != nil {
		return false, fmt.Errorf("delete rating: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete rating: %w", err)
	}

	m := rec.Mood
	_, err = tx.ExecContext(ctx, insertRating,
		formatTimestamp(rec.Timestamp), rec.Song, rec.Colors[0], rec.Colors[1], rec.Colors[2],
		m.ColdWarm, m.GarishPastel, m.RoundPointy, m.ShapeDynamics, m.ColorTransitions, m.VisualDensity,
		rating.JoinEmotions(rec.Emotions))
	if err != nil {
		return false, fmt.Errorf("insert rating: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("error committing: %w", err)
	}
	return n > 0, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countRatings).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ratings: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// timestampLayout matches the spreadsheet column format.
const timestampLayout = "2006-01-02 15:04:05"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp accepts the stored layout and RFC 3339; anything else
// yields the zero time.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{timestampLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
