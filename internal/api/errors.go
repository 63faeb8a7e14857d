package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/nhohoai/study-engine/internal/api/shared"
	"github.com/nhohoai/study-engine/internal/domain"
	"github.com/nhohoai/study-engine/internal/platform/studyapi"
	"github.com/nhohoai/study-engine/internal/service"
	"github.com/nhohoai/study-engine/internal/service/auth"
	"github.com/nhohoai/study-engine/internal/store"
	"github.com/nhohoai/study-engine/internal/study"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients. Order matters: bootstrap failures
// wrap their cause, which is checked first.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrRevokedToken),
		errors.Is(err, study.ErrSignedOut),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, studyapi.ErrNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// A deck without usable cards cannot be studied
	case errors.Is(err, study.ErrEmptyDeck):
		return http.StatusUnprocessableEntity

	// Collaborator failures
	case errors.Is(err, study.ErrBootFailed):
		return http.StatusBadGateway

	case errors.Is(err, study.ErrSessionClosed):
		return http.StatusGone

	// State conflicts
	case errors.Is(err, study.ErrAlreadyAnswered),
		errors.Is(err, study.ErrNotRevealed),
		errors.Is(err, study.ErrNoActiveQuestion),
		errors.Is(err, study.ErrSessionComplete),
		errors.Is(err, study.ErrSessionNotComplete),
		errors.Is(err, study.ErrAlreadyStarted),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err that never
// contains internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrRevokedToken),
		errors.Is(err, study.ErrSignedOut),
		errors.Is(err, domain.ErrUnauthorized):
		return "Signed out, please log in again"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this study session"
	case errors.Is(err, service.ErrSessionNotFound):
		return "Study session not found"
	case errors.Is(err, studyapi.ErrNotFound):
		return "Deck not found"
	case errors.Is(err, store.ErrNotFound):
		return "Record not found"

	case errors.Is(err, study.ErrEmptyDeck):
		return "Please add vocabulary first!"
	case errors.Is(err, study.ErrBootFailed):
		return "Could not start the study session"
	case errors.Is(err, study.ErrSessionClosed):
		return "Study session has ended"

	case errors.Is(err, study.ErrAlreadyAnswered):
		return "Question already answered"
	case errors.Is(err, study.ErrNotRevealed):
		return "Answer the current question first"
	case errors.Is(err, study.ErrNoActiveQuestion):
		return "No question is being presented"
	case errors.Is(err, study.ErrSessionComplete):
		return "Study session is complete"
	case errors.Is(err, study.ErrSessionNotComplete):
		return "Study session is not complete yet"
	case errors.Is(err, study.ErrAlreadyStarted):
		return "Study session already started"
	case errors.Is(err, store.ErrDuplicate):
		return "Record already exists"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the mapped status and safe message for err. fallback
// replaces the generic message of unmapped errors when given.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		msg = fallback
	}

	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized || status == http.StatusBadGateway {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}

// SanitizeValidationError turns a validator error into a message naming the
// offending field without echoing the submitted value.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too many values"
	case "gt", "gte":
		return "must be positive"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
