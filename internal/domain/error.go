package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrMalformedDocument = errors.New("malformed session document")
	ErrTurnInProgress    = errors.New("another turn is being recorded for this user")
)
