package domain

import "errors"

var (
	// ErrInvalidInput is returned for bad or missing parameters (identical teams, unknown level, ...).
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientQuestions is returned when the pool cannot fill a match.
	ErrInsufficientQuestions = errors.New("insufficient questions")
	// ErrNoActiveMatch is returned when an operation needs an initialized match session.
	ErrNoActiveMatch = errors.New("no active match")
	// ErrInvalidEntrantCount is returned when a bracket is not created with exactly eight distinct teams.
	ErrInvalidEntrantCount = errors.New("bracket requires exactly 8 distinct teams")
	// ErrSlotNotReady is returned when a bracket match still has a placeholder occupant.
	ErrSlotNotReady = errors.New("bracket slot not ready")
	// ErrNotFound indicates an unknown team, question, bracket or bracket match.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation, e.g. a duplicate team name.
	ErrConflict = errors.New("already exists")
	// ErrStorage wraps failures of the backing stores.
	ErrStorage = errors.New("storage error")
)
