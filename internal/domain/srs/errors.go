package srs

import "errors"

// Sentinel errors for the srs package. Check with errors.Is.
var (
	// ErrNilState is returned when a nil memory state is passed in.
	ErrNilState = errors.New("card memory state cannot be nil")

	// ErrInvalidRating is returned when a rating is outside {again, hard, good, easy}.
	ErrInvalidRating = errors.New("invalid review rating")

	// ErrInvalidState is returned for a memory state with an impossible
	// combination of fields, e.g. a Review-state card without stability.
	// Defensive: only the engine produces states, so this should not occur.
	ErrInvalidState = errors.New("invalid card memory state")

	// ErrInvalidDays is returned when a postpone request is below one day.
	ErrInvalidDays = errors.New("postpone days must be at least 1")

	// ErrInvalidParams is returned when scheduling parameters are out of bounds.
	ErrInvalidParams = errors.New("scheduling parameters out of bounds")
)
