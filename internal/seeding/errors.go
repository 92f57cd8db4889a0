package seeding

import "errors"

var (
	// ErrUnhealthy is returned when the service does not answer /healthz with 200.
	ErrUnhealthy = errors.New("service unhealthy")
	// ErrSubmissionsFailed is returned when at least one rating was refused.
	ErrSubmissionsFailed = errors.New("rating submissions failed")
	// ErrNotSettled is returned when the store does not reach the expected size in time.
	ErrNotSettled = errors.New("saves did not settle")
	// ErrVerification is returned when a similarity answer breaks ordering or bounds.
	ErrVerification = errors.New("similarity verification failed")
)
