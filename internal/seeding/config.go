package seeding

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL string        // Base URL of the service
	Count   int           // Number of ratings to generate
	Workers int           // Number of concurrent submitters
	K       int           // Limit for the similarity check
	Timeout time.Duration // HTTP request timeout
	Settle  time.Duration // How long to wait for queued saves to land
	Seed    uint64        // Seed for the rating generator
}

// Mood carries the six sliders of a rating.
type Mood struct {
	ColdWarm         float64 `json:"cold_warm"`
	GarishPastel     float64 `json:"garish_pastel"`
	RoundPointy      float64 `json:"round_pointy"`
	ShapeDynamics    float64 `json:"shape_dynamics"`
	ColorTransitions float64 `json:"color_transitions"`
	VisualDensity    float64 `json:"visual_density"`
}

// Rating is the body posted to /ratings.
type Rating struct {
	SubmissionID string    `json:"submission_id"`
	Song         string    `json:"song"`
	Colors       [3]string `json:"colors"`
	Mood         Mood      `json:"mood"`
	Emotions     []string  `json:"emotions"`
}

// Options is the subset of /options the generator needs.
type Options struct {
	Emotions    []string `json:"emotions"`
	MaxEmotions int      `json:"max_emotions"`
}

// AckResponse represents the response from a rating submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Swatch is one color of a match.
type Swatch struct {
	Hex   string `json:"hex"`
	Valid bool   `json:"valid"`
}

// Match is one entry of a /similar answer.
type Match struct {
	Rank     int      `json:"rank"`
	Song     string   `json:"song"`
	Distance float64  `json:"distance"`
	Colors   []Swatch `json:"colors"`
}

// SimilarResponse is the /similar answer.
type SimilarResponse struct {
	Matches []Match `json:"matches"`
	Skipped []struct {
		Index int    `json:"index"`
		Song  string `json:"song"`
	} `json:"skipped"`
}

// Stats holds run statistics.
type Stats struct {
	Generated int
	Submitted int
	Accepted  int
	Duplicate int
	Failed    int
	Records   int
	Matches   int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
