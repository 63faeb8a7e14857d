package api

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nhohoai/study-engine/internal/api/shared"
	"github.com/nhohoai/study-engine/internal/domain"
	"github.com/nhohoai/study-engine/internal/export"
	"github.com/nhohoai/study-engine/internal/platform/logger"
	"github.com/nhohoai/study-engine/internal/service/session"
	"github.com/nhohoai/study-engine/internal/study"
)

// SessionService is the session Manager as seen by the handlers.
type SessionService interface {
	Start(ctx context.Context, caller session.Caller, deckID int64, carryOver []int64) (*study.Session, error)
	Get(caller session.Caller, id string) (*study.Session, error)
	Answer(caller session.Caller, id string, choice *string) (study.AnswerResult, error)
	Continue(caller session.Caller, id string) error
	Summary(ctx context.Context, caller session.Caller, id string) (domain.Summary, error)
	Restart(ctx context.Context, caller session.Caller, id string) (*study.Session, error)
	Teardown(caller session.Caller, id string) error
	History(ctx context.Context, caller session.Caller, limit int) ([]domain.SessionRecord, error)
}

var _ SessionService = (*session.Manager)(nil)

// SessionHandler serves the study session endpoints.
type SessionHandler struct {
	sessions SessionService
	logger   *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions SessionService, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for SessionHandler")
	}
	return &SessionHandler{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "session_handler")),
	}
}

// Routes registers the handler's endpoints on r. r is expected to be
// behind the auth middleware.
func (h *SessionHandler) Routes(r chi.Router) {
	r.Post("/decks/{deckID}/study/sessions", h.StartSession)
	r.Get("/study/history", h.ListHistory)
	r.Route("/study/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/answer", h.SubmitAnswer)
		r.Post("/next", h.Next)
		r.Post("/restart", h.Restart)
		r.Get("/summary", h.GetSummary)
		r.Get("/summary.xlsx", h.ExportSummary)
	})
}

// StartSession handles POST /decks/{deckID}/study/sessions.
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	caller, ok := callerFromRequest(w, r, log)
	if !ok {
		return
	}

	deckID, err := pathInt64(r, "deckID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req StartSessionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	sess, err := h.sessions.Start(r.Context(), caller, deckID, req.CarryOverCardIDs)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start study session")
		return
	}

	log.Info("study session created",
		slog.String("session_id", sess.ID()),
		slog.String("user_id", caller.UserID),
		slog.Int64("deck_id", deckID))
	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(sess.Snapshot()))
}

// GetSession handles GET /study/sessions/{sessionID}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	caller, ok := callerFromRequest(w, r, log)
	if !ok {
		return
	}

	sess, err := h.sessions.Get(caller, chi.URLParam(r, "sessionID"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(sess.Snapshot()))
}

// SubmitAnswer handles POST /study/sessions/{sessionID}/answer.
func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	caller, ok := callerFromRequest(w, r, log)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	res, err := h.sessions.Answer(caller, chi.URLParam(r, "sessionID"), req.Choice)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit answer")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AnswerResponse{
		Correct:       res.Correct,
		CorrectAnswer: res.CorrectAnswer,
		State:         res.State,
	})
}

// Next handles POST /study/sessions/{sessionID}/next.
func (h *SessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	caller, ok := callerFromRequest(w, r, log)
	if !ok {
		return
	}

	id := chi.URLParam(r, "sessionID")
	if err := h.sessions.Continue(caller, id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	sess, err := h.sessions.Get(caller, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(sess.Snapshot()))
}

// Restart handles POST /study/sessions/{sessionID}/restart.
func (h *SessionHandler) Restart(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	caller, ok := callerFromRequest(w, r, log)
	if !ok {
		return
	}

	sess, err := h.sessions.Restart(r.Context(), caller, chi.URLParam(r, "sessionID"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to restart study session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(sess.Snapshot()))
}

// GetSummary handles GET /study/sessions/{sessionID}/summary.
func (h *SessionHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	caller, ok := callerFromRequest(w, r, log)
	if !ok {
		return
	}

	summary, err := h.sessions.Summary(r.Context(), caller, chi.URLParam(r, "sessionID"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}

// ExportSummary handles GET /study/sessions/{sessionID}/summary.xlsx.
func (h *SessionHandler) ExportSummary(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	caller, ok := callerFromRequest(w, r, log)
	if !ok {
		return
	}

	id := chi.URLParam(r, "sessionID")
	sess, err := h.sessions.Get(caller, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	summary, err := h.sessions.Summary(r.Context(), caller, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteSummary(&buf, sess.Snapshot().DeckTitle, summary); err != nil {
		HandleAPIError(w, r, err, "Failed to export summary")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="study-summary-%s.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Warn("failed to write summary export",
			slog.String("session_id", id),
			slog.String("error", err.Error()))
	}
}

// DeleteSession handles DELETE /study/sessions/{sessionID}.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	caller, ok := callerFromRequest(w, r, log)
	if !ok {
		return
	}

	if err := h.sessions.Teardown(caller, chi.URLParam(r, "sessionID")); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListHistory handles GET /study/history.
func (h *SessionHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	caller, ok := callerFromRequest(w, r, log)
	if !ok {
		return
	}

	limit, err := queryLimit(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	records, err := h.sessions.History(r.Context(), caller, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load study history")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, HistoryResponse{Sessions: records})
}
