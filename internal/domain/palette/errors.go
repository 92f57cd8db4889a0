package palette

import "errors"

// Sentinel kinds for palette errors.
var (
	ErrInvalidColor = errors.New("invalid color")
	ErrSlotCount    = errors.New("palette needs exactly 3 colors")
)
