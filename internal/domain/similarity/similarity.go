// Package similarity ranks stored ratings by how close their palette is to a
// query palette.
package similarity

import (
	"fmt"
	"sort"

	"github.com/okian/farbklang/internal/domain/model"
	"github.com/okian/farbklang/internal/domain/palette"
)

// Slot weights. They sum to 1 so a uniform per-slot distance d totals d.
const (
	WeightFirst  = 0.5
	WeightSecond = 0.35
	WeightThird  = 0.15
)

// Weights lists the slot weights in slot order.
var Weights = [palette.Slots]float64{WeightFirst, WeightSecond, WeightThird}

// Match pairs a record with its weighted distance to the query.
type Match struct {
	Record   model.Record
	Distance float64
}

// Result is the outcome of a ranking. Skipped lists candidates whose stored
// colors could not be parsed; they never appear in Matches.
type Result struct {
	Matches []Match
	Skipped []RecordError
}

// Distance returns the weighted sum of per-slot RGB distances.
func Distance(q, c palette.Palette) float64 {
	var total float64
	for i := range q {
		total += Weights[i] * q[i].Distance(c[i])
	}
	return total
}

// Rank orders candidates by ascending Distance to query and keeps the first k.
// Equal distances keep their input order. Candidates with a malformed color
// are reported in Result.Skipped rather than failing the call. candidates is
// not modified.
func Rank(query palette.Palette, candidates []model.Record, k int) (Result, error) {
	if k < 0 {
		return Result{}, fmt.Errorf("%w: k must be >= 0, got %d", ErrInvalidArgument, k)
	}

	var res Result
	scored := make([]Match, 0, len(candidates))
	for i, rec := range candidates {
		p, err := palette.ParsePalette(rec.Colors)
		if err != nil {
			res.Skipped = append(res.Skipped, RecordError{Index: i, Song: rec.Song, Err: err})
			continue
		}
		scored = append(scored, Match{Record: rec, Distance: Distance(query, p)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	res.Matches = scored
	return res, nil
}

// RankHex parses a query given as three hex strings and ranks candidates.
// A malformed query color fails the whole call with ErrInvalidColor.
func RankHex(query [palette.Slots]string, candidates []model.Record, k int) (Result, error) {
	q, err := palette.ParsePalette(query)
	if err != nil {
		return Result{}, fmt.Errorf("query: %w", err)
	}
	return Rank(q, candidates, k)
}
