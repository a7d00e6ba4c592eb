package request

import "errors"

var (
	// ErrNotFound is returned when no request exists for an id.
	ErrNotFound = errors.New("blood request not found")

	// ErrInvalidRequest is returned when a request fails field validation
	// before any persistence or remote call.
	ErrInvalidRequest = errors.New("invalid blood request")

	ErrInvalidStatus   = errors.New("invalid request status")
	ErrInvalidPriority = errors.New("invalid priority level")

	// ErrInvalidTransition is returned for a status change the state machine
	// does not permit, e.g. fulfilling a cancelled request.
	ErrInvalidTransition = errors.New("status transition not allowed")
)
