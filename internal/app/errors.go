package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrBackpressure  = errors.New("save queue is full, try again later")
	ErrLimitExceeded = errors.New("limit exceeds maximum")
)
