package similarity

import (
	"errors"
	"fmt"

	"github.com/okian/farbklang/internal/domain/palette"
)

// Sentinel kinds for ranking errors.
var (
	// ErrInvalidColor aliases the palette sentinel so callers only need this package.
	ErrInvalidColor    = palette.ErrInvalidColor
	ErrInvalidArgument = errors.New("invalid argument")
)

// RecordError reports a candidate that was left out of a ranking.
type RecordError struct {
	Index int    // position in the candidate slice
	Song  string // display label of the skipped record
	Err   error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %d (%q): %v", e.Index, e.Song, e.Err)
}

func (e RecordError) Unwrap() error { return e.Err }
