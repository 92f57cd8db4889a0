// Package rating validates a submitted perception form and turns it into a
// canonical record.
package rating

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/farbklang/internal/domain/model"
	"github.com/okian/farbklang/internal/domain/palette"
)

// DefaultMaxEmotions caps how many emotion tags one rating may carry.
const DefaultMaxEmotions = 2

// DefaultEmotions is the tag list offered by the form.
var DefaultEmotions = []string{
	"Happy", "Sad", "Party", "Luxurious", "Melancholic", "Relaxed",
	"Energetic", "Rhythmic", "Menacing", "Dreamy", "Dark", "Ethereal",
}

// Form is the raw user input. Nil sliders take the default position.
type Form struct {
	Song     string
	Colors   [palette.Slots]string
	Mood     *model.Mood
	Emotions []string
}

// Validator checks forms against the configured emotion vocabulary.
type Validator struct {
	emotions    map[string]string // lower-case -> canonical spelling
	order       []string
	maxEmotions int
	now         func() time.Time
}

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithEmotions replaces the allowed emotion list. Blank entries are dropped.
func WithEmotions(list []string) Option {
	return func(v *Validator) {
		if len(list) == 0 {
			return
		}
		v.setEmotions(list)
	}
}

// WithMaxEmotions sets the tag cap; values below 1 are ignored.
func WithMaxEmotions(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxEmotions = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// NewValidator creates a Validator with the default vocabulary.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		maxEmotions: DefaultMaxEmotions,
		now:         time.Now,
	}
	v.setEmotions(DefaultEmotions)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) setEmotions(list []string) {
	v.emotions = make(map[string]string, len(list))
	v.order = v.order[:0]
	for _, e := range list {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		key := strings.ToLower(e)
		if _, dup := v.emotions[key]; dup {
			continue
		}
		v.emotions[key] = e
		v.order = append(v.order, e)
	}
}

// Emotions returns the allowed tags in display order.
func (v *Validator) Emotions() []string {
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}

// MaxEmotions returns the tag cap.
func (v *Validator) MaxEmotions() int { return v.maxEmotions }

// Normalize validates f and returns the record to persist. Colors are stored
// in canonical upper-case hex, emotions in their canonical spelling with
// duplicates removed.
func (v *Validator) Normalize(f Form) (model.Record, error) {
	song := strings.TrimSpace(f.Song)
	if song == "" {
		return model.Record{}, ErrMissingSong
	}

	p, err := palette.ParsePalette(f.Colors)
	if err != nil {
		return model.Record{}, err
	}

	mood := model.DefaultMood()
	if f.Mood != nil {
		mood = *f.Mood
	}
	for _, s := range mood.Sliders() {
		if s.Value < 0 || s.Value > 1 || s.Value != s.Value {
			return model.Record{}, fmt.Errorf("%w: %s=%v", ErrSliderRange, s.Name, s.Value)
		}
	}

	emotions, err := v.emotionTags(f.Emotions)
	if err != nil {
		return model.Record{}, err
	}

	return model.Record{
		Timestamp: v.now().UTC().Truncate(time.Second),
		Song:      song,
		Colors:    p.Strings(),
		Mood:      mood,
		Emotions:  emotions,
	}, nil
}

func (v *Validator) emotionTags(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, raw := range in {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" || seen[key] {
			continue
		}
		canon, ok := v.emotions[key]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEmotion, raw)
		}
		seen[key] = true
		out = append(out, canon)
	}
	if len(out) > v.maxEmotions {
		return nil, fmt.Errorf("%w: %d selected, at most %d allowed", ErrTooManyEmotions, len(out), v.maxEmotions)
	}
	return out, nil
}

// JoinEmotions renders tags the way spreadsheet cells store them.
func JoinEmotions(tags []string) string {
	return strings.Join(tags, ", ")
}

// SplitEmotions parses a spreadsheet cell back into tags. Cells written as a
// bracketed list such as "['Party', 'Dark']" are accepted too.
func SplitEmotions(cell string) []string {
	cell = strings.TrimSpace(cell)
	if strings.HasPrefix(cell, "[") && strings.HasSuffix(cell, "]") {
		cell = cell[1 : len(cell)-1]
	}
	parts := strings.Split(cell, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(strings.TrimSpace(p), `'"`); p != "" {
			out = append(out, p)
		}
	}
	return out
}
