package seeding

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Generator produces reproducible random ratings.
type Generator struct {
	rnd         *rand.Rand
	seed        uint64
	emotions    []string
	maxEmotions int
}

// NewGenerator creates a generator. The same seed yields the same songs,
// colors and sliders; submission ids are always fresh.
func NewGenerator(seed uint64, opts Options) *Generator {
	return &Generator{
		rnd:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed:        seed,
		emotions:    opts.Emotions,
		maxEmotions: opts.MaxEmotions,
	}
}

// Ratings returns n ratings with distinct song titles.
func (g *Generator) Ratings(n int) []Rating {
	out := make([]Rating, n)
	for i := range out {
		out[i] = Rating{
			SubmissionID: uuid.NewString(),
			Song:         fmt.Sprintf("Seed %d Song %04d", g.seed, i+1),
			Colors:       g.Palette(),
			Mood:         g.mood(),
			Emotions:     g.pickEmotions(),
		}
	}
	return out
}

// Palette returns three random colors as #RRGGBB.
func (g *Generator) Palette() [3]string {
	var p [3]string
	for i := range p {
		p[i] = fmt.Sprintf("#%02X%02X%02X", g.rnd.IntN(256), g.rnd.IntN(256), g.rnd.IntN(256))
	}
	return p
}

func (g *Generator) mood() Mood {
	// Two decimals, as the form's sliders step.
	slider := func() float64 { return float64(g.rnd.IntN(101)) / 100 }
	return Mood{
		ColdWarm:         slider(),
		GarishPastel:     slider(),
		RoundPointy:      slider(),
		ShapeDynamics:    slider(),
		ColorTransitions: slider(),
		VisualDensity:    slider(),
	}
}

func (g *Generator) pickEmotions() []string {
	if len(g.emotions) == 0 || g.maxEmotions <= 0 {
		return []string{}
	}
	n := g.rnd.IntN(min(g.maxEmotions, len(g.emotions)) + 1)
	picked := make([]string, 0, n)
	for _, idx := range g.rnd.Perm(len(g.emotions))[:n] {
		picked = append(picked, g.emotions[idx])
	}
	return picked
}
