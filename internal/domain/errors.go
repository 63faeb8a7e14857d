package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is missing or malformed.
	ErrInvalidID = errors.New("invalid ID")
)

// ErrUnauthorized is returned when the deck/progress collaborator rejects the
// caller's credentials. It ends the study session and signs the user out.
var ErrUnauthorized = errors.New("collaborator rejected credentials")
