package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/nhohoai/study-engine/internal/domain"
	"github.com/nhohoai/study-engine/internal/events"
	"github.com/nhohoai/study-engine/internal/store"
)

// HistoryRecorder stores a SessionRecord for every session.completed event.
type HistoryRecorder struct {
	store  store.SessionHistoryStore
	logger *slog.Logger
}

var _ events.EventHandler = (*HistoryRecorder)(nil)

// NewHistoryRecorder creates a recorder writing to s.
func NewHistoryRecorder(s store.SessionHistoryStore, logger *slog.Logger) *HistoryRecorder {
	return &HistoryRecorder{
		store:  s,
		logger: logger.With(slog.String("component", "history_recorder")),
	}
}

// HandleEvent implements events.EventHandler. Other event types are ignored.
func (r *HistoryRecorder) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeSessionCompleted {
		return nil
	}

	var done events.SessionCompleted
	if err := event.UnmarshalPayload(&done); err != nil {
		return fmt.Errorf("decode %s event %s: %w", event.Type, event.ID, err)
	}

	record := &domain.SessionRecord{
		ID:              ulid.MustNew(ulid.Timestamp(done.CompletedAt), ulid.DefaultEntropy()).String(),
		UserID:          done.UserID,
		DeckID:          done.DeckID,
		RemoteSessionID: done.RemoteSessionID,
		DeckTitle:       done.DeckTitle,
		AnsweredCount:   done.AnsweredCount,
		CorrectCount:    done.CorrectCount,
		WrongCount:      done.WrongCount,
		Rows:            done.Summary.Rows,
		CarryOver:       done.Summary.CarryOver,
		CompletedAt:     done.CompletedAt,
	}
	if err := r.store.Save(ctx, record); err != nil {
		return fmt.Errorf("record session %s: %w", done.SessionID, err)
	}

	r.logger.InfoContext(ctx, "session recorded",
		slog.String("record_id", record.ID),
		slog.String("session_id", done.SessionID),
		slog.String("user_id", done.UserID),
		slog.Int("answered", done.AnsweredCount))
	return nil
}
