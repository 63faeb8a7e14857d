package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nhohoai/study-engine/internal/api/shared"
	"github.com/nhohoai/study-engine/internal/domain"
	"github.com/nhohoai/study-engine/internal/service/session"
)

// callerFromRequest returns the authenticated caller placed in the context by
// the auth middleware, writing a 401 when there is none.
func callerFromRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger) (session.Caller, bool) {
	p, ok := shared.GetPrincipal(r.Context())
	if !ok {
		log.Warn("caller not found in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return session.Caller{}, false
	}
	return session.Caller{UserID: p.UserID, Token: p.Token, Claims: p.Claims}, true
}

// pathInt64 parses a positive integer path parameter.
func pathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrValidation, name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, name)
	}
	return id, nil
}

// queryLimit parses the optional limit query parameter; 0 means the store default.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrValidation)
	}
	return n, nil
}
