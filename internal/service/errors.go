package service

import "errors"

// Common service errors. Callers check them with errors.Is; the API layer maps
// them to HTTP status codes.
var (
	// ErrNotOwned indicates a resource is owned by a different user than the one making the request.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrSessionNotFound indicates that no live study session has the requested id.
	// API layer should map this to HTTP 404 Not Found.
	ErrSessionNotFound = errors.New("study session not found")
)
