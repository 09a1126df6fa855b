package domain

import "errors"

var (
	// ErrValidation is returned for malformed answer labels, malformed questions
	// and out-of-range question positions.
	ErrValidation = errors.New("validation error")
	// ErrNoQuestionsAvailable is returned when the filtered question pool is empty.
	ErrNoQuestionsAvailable = errors.New("no questions available")
	// ErrInvalidTransition is returned when an operation is not allowed in the
	// session's current state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrNotFound is returned by stores for unknown sessions, users or results.
	ErrNotFound = errors.New("not found")
)
