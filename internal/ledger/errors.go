package ledger

import "errors"

var (
	// ErrNotFound is returned when no counter exists for a blood group.
	ErrNotFound = errors.New("blood group not found")

	// ErrAlreadyExists is returned when registering a blood group twice.
	ErrAlreadyExists = errors.New("blood group already exists")

	// ErrMissingThreshold is returned when registration omits the minimum threshold.
	ErrMissingThreshold = errors.New("minimum threshold must be specified")

	// ErrInvalidQuantity is returned for zero or negative transaction quantities.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	ErrInvalidEffectType = errors.New("invalid transaction type")

	// ErrInsufficientStock is returned when a request would drive a counter negative.
	ErrInsufficientStock = errors.New("insufficient blood units available")

	// ErrInvalidDiscard is returned when a discard exceeds the units on hand.
	ErrInvalidDiscard = errors.New("cannot discard more units than available")
)
