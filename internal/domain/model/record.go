// Package model contains domain models passed between layers.
package model

import "time"

// Mood holds the six perception sliders, each in [0,1].
type Mood struct {
	ColdWarm         float64 `json:"cold_warm"`         // cold 0 .. 1 warm
	GarishPastel     float64 `json:"garish_pastel"`     // garish 0 .. 1 pastel
	RoundPointy      float64 `json:"round_pointy"`      // round 0 .. 1 pointy
	ShapeDynamics    float64 `json:"shape_dynamics"`    // flowing 0 .. 1 jerky
	ColorTransitions float64 `json:"color_transitions"` // soft 0 .. 1 abrupt
	VisualDensity    float64 `json:"visual_density"`    // empty 0 .. 1 cluttered
}

// DefaultMood is the slider position of a fresh form.
func DefaultMood() Mood {
	return Mood{
		ColdWarm:         0.5,
		GarishPastel:     0.5,
		RoundPointy:      0.5,
		ShapeDynamics:    0.5,
		ColorTransitions: 0.5,
		VisualDensity:    0.5,
	}
}

// Sliders returns the mood values in column order with their names.
func (m Mood) Sliders() []Slider {
	return []Slider{
		{"cold_warm", m.ColdWarm},
		{"garish_pastel", m.GarishPastel},
		{"round_pointy", m.RoundPointy},
		{"shape_dynamics", m.ShapeDynamics},
		{"color_transitions", m.ColorTransitions},
		{"visual_density", m.VisualDensity},
	}
}

// Slider is a named mood value.
type Slider struct {
	Name  string
	Value float64
}

// Record is one stored rating. Colors stay in their stored hex form so that a
// malformed row can still be listed and reported.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Song      string    `json:"song"`
	Colors    [3]string `json:"colors"`
	Mood      Mood      `json:"mood"`
	Emotions  []string  `json:"emotions"`
}

// Submission is a save request that has passed validation.
type Submission struct {
	ID     string // idempotency key
	Record Record
}

// Snapshot is an immutable view of every stored record at one point in time.
// Holders must not modify Records.
type Snapshot struct {
	Version int64
	TakenAt time.Time
	Records []Record
}

// Len returns the number of records in the snapshot; nil-safe.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}
