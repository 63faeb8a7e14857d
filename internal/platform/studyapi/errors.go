package studyapi

import (
	"errors"
	"fmt"

	"github.com/nhohoai/study-engine/internal/domain"
)

var (
	// ErrUnauthorized is returned when the collaborator rejects the bearer token.
	// It wraps domain.ErrUnauthorized.
	ErrUnauthorized = fmt.Errorf("studyapi: %w", domain.ErrUnauthorized)

	// ErrNotFound is returned when the deck or session does not exist for the caller.
	ErrNotFound = errors.New("studyapi: not found")

	// ErrInvalidResponse is returned when a response body cannot be decoded.
	ErrInvalidResponse = errors.New("studyapi: invalid response")
)

// APIError is returned for any other non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	// Body is the beginning of the response body.
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("studyapi: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}
