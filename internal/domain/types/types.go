// Package types contains the views the service hands to the HTTP layer.
package types

import (
	"time"

	"github.com/okian/farbklang/internal/domain/model"
	"github.com/okian/farbklang/internal/domain/palette"
	"github.com/okian/farbklang/internal/domain/similarity"
)

// Swatch is one stored color with a caption. Valid is false when the stored
// value does not parse; Hex then holds the raw value.
type Swatch struct {
	Hex   string `json:"hex"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
}

// Song is a stored rating as shown in the "show all" list.
type Song struct {
	Song      string     `json:"song"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Colors    []Swatch   `json:"colors"`
	Mood      model.Mood `json:"mood"`
	Emotions  []string   `json:"emotions"`
}

// Match is a ranked similar song.
type Match struct {
	Rank     int      `json:"rank"`
	Song     string   `json:"song"`
	Distance float64  `json:"distance"`
	Colors   []Swatch `json:"colors"`
	Emotions []string `json:"emotions"`
}

// Skipped describes a stored record left out of a ranking.
type Skipped struct {
	Index int    `json:"index"`
	Song  string `json:"song"`
	Error string `json:"error"`
}

// Similar is the answer to a similarity query.
type Similar struct {
	Query   [palette.Slots]string `json:"query"`
	Matches []Match               `json:"matches"`
	Skipped []Skipped             `json:"skipped"`
}

// SaveResult is the answer to a save.
type SaveResult struct {
	SubmissionID string       `json:"submission_id"`
	Duplicate    bool         `json:"duplicate"`
	Record       model.Record `json:"record"`
	Similar      []Match      `json:"similar"`
	Skipped      []Skipped    `json:"skipped"`
}

// Options describes the form.
type Options struct {
	Emotions      []string              `json:"emotions"`
	MaxEmotions   int                   `json:"max_emotions"`
	DefaultColors [palette.Slots]string `json:"default_colors"`
	DefaultMood   model.Mood            `json:"default_mood"`
	SimilarLimit  int                   `json:"similar_limit"`
	MaxLimit      int                   `json:"max_similar_limit"`
}

// Stats summarises the running service.
type Stats struct {
	Started         bool      `json:"started"`
	Driver          string    `json:"store_driver"`
	Records         int       `json:"records"`
	SnapshotVersion int64     `json:"snapshot_version"`
	SnapshotTakenAt time.Time `json:"snapshot_taken_at"`
	QueueLength     int       `json:"queue_length"`
	QueueCapacity   int       `json:"queue_capacity"`
	Workers         int       `json:"workers"`
	DedupeSize      int64     `json:"dedupe_size"`
}

// Swatches captions each stored color.
func Swatches(colors [palette.Slots]string) []Swatch {
	out := make([]Swatch, len(colors))
	for i, raw := range colors {
		c, err := palette.ParseColor(raw)
		if err != nil {
			out[i] = Swatch{Hex: raw}
			continue
		}
		out[i] = Swatch{Hex: c.Hex(), Name: palette.HueName(c), Valid: true}
	}
	return out
}

// SongFromRecord builds the list view of rec.
func SongFromRecord(rec model.Record) Song {
	s := Song{
		Song:     rec.Song,
		Colors:   Swatches(rec.Colors),
		Mood:     rec.Mood,
		Emotions: emotions(rec.Emotions),
	}
	if !rec.Timestamp.IsZero() {
		ts := rec.Timestamp
		s.Timestamp = &ts
	}
	return s
}

// Matches converts ranked results, numbering them from 1.
func Matches(in []similarity.Match) []Match {
	out := make([]Match, len(in))
	for i, m := range in {
		out[i] = Match{
			Rank:     i + 1,
			Song:     m.Record.Song,
			Distance: m.Distance,
			Colors:   Swatches(m.Record.Colors),
			Emotions: emotions(m.Record.Emotions),
		}
	}
	return out
}

// SkippedRecords converts per-record ranking errors.
func SkippedRecords(in []similarity.RecordError) []Skipped {
	out := make([]Skipped, len(in))
	for i, e := range in {
		out[i] = Skipped{Index: e.Index, Song: e.Song, Error: e.Err.Error()}
	}
	return out
}

func emotions(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
