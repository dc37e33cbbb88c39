package domain

import "errors"

var (
	// ErrQuizNotFound covers both a missing quiz and a quiz not assigned to the
	// requesting student; the two are indistinguishable on purpose so callers
	// cannot probe assignment existence.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound is returned when no attempt exists for a (quiz, student) pair.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrForbidden is returned when the actor lacks ownership or role for the action.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicateAttempt is returned when an attempt already exists for the
	// (quiz, student) pair. One attempt per student per quiz.
	ErrDuplicateAttempt = errors.New("attempt already submitted")
	// ErrSessionNotFound is returned when no in-progress attempt session exists.
	ErrSessionNotFound = errors.New("attempt session not found")
	// ErrValidation marks malformed input rejected before any side effect.
	ErrValidation = errors.New("validation failed")
)
