package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrMissingPath   = errors.New("store path is required")
	ErrMissingSheet  = errors.New("sheet name is required")
	ErrEmptySong     = errors.New("record has no song title")
	ErrClosed        = errors.New("store is closed")
)
