package seeding

import (
	"fmt"
	"math"

	"github.com/okian/farbklang/internal/domain/palette"
	"github.com/okian/farbklang/internal/domain/similarity"
)

// distanceTolerance absorbs JSON float round-tripping.
const distanceTolerance = 1e-9

// verifySimilar checks that an answer to a similarity query is bounded by k,
// ranked from 1, sorted by ascending distance, and that every distance
// matches the weighted palette distance to query.
func verifySimilar(query [3]string, resp SimilarResponse, k int) error {
	if len(resp.Matches) > k {
		return fmt.Errorf("%w: %d matches for limit %d", ErrVerification, len(resp.Matches), k)
	}
	q, err := palette.ParsePalette(query)
	if err != nil {
		return fmt.Errorf("%w: query: %v", ErrVerification, err)
	}

	for i, m := range resp.Matches {
		if m.Rank != i+1 {
			return fmt.Errorf("%w: match %d has rank %d", ErrVerification, i, m.Rank)
		}
		if i > 0 && m.Distance < resp.Matches[i-1].Distance {
			return fmt.Errorf("%w: match %d (%.4f) is closer than match %d (%.4f)",
				ErrVerification, i, m.Distance, i-1, resp.Matches[i-1].Distance)
		}
		if len(m.Colors) != palette.Slots {
			return fmt.Errorf("%w: match %q has %d colors", ErrVerification, m.Song, len(m.Colors))
		}
		var hex [palette.Slots]string
		for j, sw := range m.Colors {
			hex[j] = sw.Hex
		}
		c, err := palette.ParsePalette(hex)
		if err != nil {
			return fmt.Errorf("%w: match %q: %v", ErrVerification, m.Song, err)
		}
		if want := similarity.Distance(q, c); math.Abs(want-m.Distance) > distanceTolerance*math.Max(1, want) {
			return fmt.Errorf("%w: match %q distance %.6f, want %.6f", ErrVerification, m.Song, m.Distance, want)
		}
	}
	return nil
}
