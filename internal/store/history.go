package store

import (
	"context"
	"time"

	"github.com/nhohoai/study-engine/internal/domain"
)

// MaxHistoryLimit caps the number of records a single listing returns.
const MaxHistoryLimit = 100

// SessionHistoryStore persists completed study sessions.
type SessionHistoryStore interface {
	// Save stores a completed session together with its summary rows.
	// Returns ErrInvalidEntity if the record fails validation and
	// ErrSessionRecordExists if a record with the same id exists.
	Save(ctx context.Context, record *domain.SessionRecord) error

	// GetByID retrieves one record, rows included.
	// Returns ErrSessionRecordNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*domain.SessionRecord, error)

	// ListByUser returns the user's most recent records, newest first.
	// limit is clamped to [1, MaxHistoryLimit].
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.SessionRecord, error)

	// DeleteCompletedBefore removes records completed before cutoff and
	// returns how many were removed.
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ClampLimit applies the listing bounds of SessionHistoryStore.ListByUser.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}
