// Package memstore keeps completed session history in process memory.
// It backs the server when no database is configured and is lost on restart.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nhohoai/study-engine/internal/domain"
	"github.com/nhohoai/study-engine/internal/store"
)

// HistoryStore implements store.SessionHistoryStore with a map.
type HistoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.SessionRecord
}

var _ store.SessionHistoryStore = (*HistoryStore)(nil)

// NewHistoryStore creates an empty store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{records: make(map[string]domain.SessionRecord)}
}

// Save implements store.SessionHistoryStore.
func (s *HistoryStore) Save(_ context.Context, record *domain.SessionRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; ok {
		return store.ErrSessionRecordExists
	}
	s.records[record.ID] = clone(*record)
	return nil
}

// GetByID implements store.SessionHistoryStore.
func (s *HistoryStore) GetByID(_ context.Context, id string) (*domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, store.ErrSessionRecordNotFound
	}
	out := clone(rec)
	return &out, nil
}

// ListByUser implements store.SessionHistoryStore.
func (s *HistoryStore) ListByUser(_ context.Context, userID string, limit int) ([]domain.SessionRecord, error) {
	s.mu.RLock()
	out := make([]domain.SessionRecord, 0)
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, clone(rec))
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.SessionRecord) int {
		if c := b.CompletedAt.Compare(a.CompletedAt); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})

	if n := store.ClampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// DeleteCompletedBefore implements store.SessionHistoryStore.
func (s *HistoryStore) DeleteCompletedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.records {
		if rec.CompletedAt.Before(cutoff) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func clone(r domain.SessionRecord) domain.SessionRecord {
	r.Rows = append([]domain.SummaryRow{}, r.Rows...)
	r.CarryOver = append([]int64{}, r.CarryOver...)
	return r
}
