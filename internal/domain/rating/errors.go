package rating

import "errors"

// Sentinel kinds for form validation.
var (
	ErrMissingSong     = errors.New("missing song title")
	ErrSliderRange     = errors.New("slider out of range")
	ErrTooManyEmotions = errors.New("too many emotions")
	ErrUnknownEmotion  = errors.New("unknown emotion")
)
