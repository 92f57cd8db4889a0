package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrClosed = errors.New("save queue closed")
	ErrFull   = errors.New("save queue full")
)
