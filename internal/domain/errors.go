package domain

import "errors"

var (
	// ErrChallengeNotFound indicates the challenge content could not be loaded.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrInvalidRanking is returned when a submission is not a permutation of
	// the challenge's four option IDs.
	ErrInvalidRanking = errors.New("ranking is not a permutation of the challenge options")
	// ErrInvalidDateKey is returned when a submission's day key is not in
	// YYYY-MM-DD form.
	ErrInvalidDateKey = errors.New("date key must be YYYY-MM-DD")
	// ErrAttemptConflict signals a detected race on the best-attempt flag or
	// the aggregate row; callers retry a bounded number of times.
	ErrAttemptConflict = errors.New("concurrent attempt update conflict")
	// ErrStorageUnavailable wraps persistence-layer outages.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
