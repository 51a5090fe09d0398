package domain

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// ErrDuplicateAttempt is returned when the store rejects a notification log
	// row because the same delivery key was already recorded.
	ErrDuplicateAttempt = errors.New("delivery already attempted")

	// ErrRunInProgress is returned when another run holds the lock for the same
	// reference date.
	ErrRunInProgress = errors.New("reminder run already in progress")
)
