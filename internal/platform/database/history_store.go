package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhohoai/study-engine/internal/domain"
	"github.com/nhohoai/study-engine/internal/platform/logger"
	"github.com/nhohoai/study-engine/internal/redact"
	"github.com/nhohoai/study-engine/internal/store"
)

// historyRow is the session_history row.
type historyRow struct {
	ID              string `db:"id"`
	UserID          string `db:"user_id"`
	DeckID          int64  `db:"deck_id"`
	RemoteSessionID int64  `db:"remote_session_id"`
	DeckTitle       string `db:"deck_title"`
	AnsweredCount   int    `db:"answered_count"`
	CorrectCount    int    `db:"correct_count"`
	WrongCount      int    `db:"wrong_count"`
	CarryOver       string `db:"carry_over"`
	CompletedAt     int64  `db:"completed_at"`
}

// historyCardRow is the session_history_cards row.
type historyCardRow struct {
	SessionID    string `db:"session_id"`
	Position     int    `db:"position"`
	CardID       int64  `db:"card_id"`
	Term         string `db:"term"`
	Meaning      string `db:"meaning"`
	Note         string `db:"note"`
	CorrectCount int    `db:"correct_count"`
	WrongCount   int    `db:"wrong_count"`
	Hard         bool   `db:"hard"`
}

const historyColumns = `id, user_id, deck_id, remote_session_id, deck_title,
	answered_count, correct_count, wrong_count, carry_over, completed_at`

// HistoryStore implements store.SessionHistoryStore with sqlx.
type HistoryStore struct {
	db *sqlx.DB
}

var _ store.SessionHistoryStore = (*HistoryStore)(nil)

// NewHistoryStore creates a HistoryStore over an open, migrated database.
func NewHistoryStore(db *sqlx.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Save implements store.SessionHistoryStore.
func (s *HistoryStore) Save(ctx context.Context, record *domain.SessionRecord) error {
	log := logger.FromContext(ctx)

	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	row, err := toHistoryRow(record)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return insertRecord(ctx, tx, row, record.Rows)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.ErrSessionRecordExists
		}
		log.Error("failed to save session record",
			slog.String("record_id", record.ID),
			slog.String("error", redact.Error(err)))
		return store.NewStoreError("session_record", "save", "insert failed", err)
	}

	log.Debug("session record saved",
		slog.String("record_id", record.ID),
		slog.Int("rows", len(record.Rows)))
	return nil
}

// GetByID implements store.SessionHistoryStore.
func (s *HistoryStore) GetByID(ctx context.Context, id string) (*domain.SessionRecord, error) {
	var row historyRow
	query := s.db.Rebind(`SELECT ` + historyColumns + ` FROM session_history WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if err = MapError(err); errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrSessionRecordNotFound
		}
		return nil, store.NewStoreError("session_record", "get", "query failed", err)
	}

	records, err := attachCards(ctx, s.db, []historyRow{row})
	if err != nil {
		return nil, err
	}
	return &records[0], nil
}

// ListByUser implements store.SessionHistoryStore.
func (s *HistoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.SessionRecord, error) {
	var rows []historyRow
	query := s.db.Rebind(`SELECT ` + historyColumns + ` FROM session_history
		WHERE user_id = ? ORDER BY completed_at DESC, id DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, query, userID, store.ClampLimit(limit)); err != nil {
		return nil, store.NewStoreError("session_record", "list", "query failed", MapError(err))
	}
	if len(rows) == 0 {
		return []domain.SessionRecord{}, nil
	}
	return attachCards(ctx, s.db, rows)
}

// DeleteCompletedBefore implements store.SessionHistoryStore.
func (s *HistoryStore) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		ms := cutoff.UnixMilli()
		cards := tx.Rebind(`DELETE FROM session_history_cards WHERE session_id IN
			(SELECT id FROM session_history WHERE completed_at < ?)`)
		if _, err := tx.ExecContext(ctx, cards, ms); err != nil {
			return MapError(err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM session_history WHERE completed_at < ?`), ms)
		if err != nil {
			return MapError(err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, store.NewStoreError("session_record", "delete", "delete failed", err)
	}
	return deleted, nil
}

// insertRecord writes one record and its card rows.
func insertRecord(ctx context.Context, q store.DBTX, row historyRow, cards []domain.SummaryRow) error {
	query := q.Rebind(`INSERT INTO session_history (` + historyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := q.ExecContext(ctx, query,
		row.ID, row.UserID, row.DeckID, row.RemoteSessionID, row.DeckTitle,
		row.AnsweredCount, row.CorrectCount, row.WrongCount, row.CarryOver, row.CompletedAt,
	); err != nil {
		return MapError(err)
	}

	cardQuery := q.Rebind(`INSERT INTO session_history_cards
		(session_id, position, card_id, term, meaning, note, correct_count, wrong_count, hard)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, r := range cards {
		if _, err := q.ExecContext(ctx, cardQuery,
			row.ID, i, r.CardID, r.Term, r.Meaning, r.Note, r.CorrectCount, r.WrongCount, r.Hard,
		); err != nil {
			return MapError(err)
		}
	}
	return nil
}

// attachCards loads the card rows of every record in one query.
func attachCards(ctx context.Context, q store.DBTX, rows []historyRow) ([]domain.SessionRecord, error) {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}

	query, args, err := sqlx.In(`SELECT session_id, position, card_id, term, meaning, note,
		correct_count, wrong_count, hard
		FROM session_history_cards WHERE session_id IN (?) ORDER BY session_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to expand card query: %w", err)
	}

	var cards []historyCardRow
	if err := q.SelectContext(ctx, &cards, q.Rebind(query), args...); err != nil {
		return nil, store.NewStoreError("session_record", "get", "card query failed", MapError(err))
	}

	bySession := make(map[string][]domain.SummaryRow, len(rows))
	for _, c := range cards {
		bySession[c.SessionID] = append(bySession[c.SessionID], domain.SummaryRow{
			CardID:       c.CardID,
			Term:         c.Term,
			Meaning:      c.Meaning,
			Note:         c.Note,
			CorrectCount: c.CorrectCount,
			WrongCount:   c.WrongCount,
			Hard:         c.Hard,
		})
	}

	records := make([]domain.SessionRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.toDomain(bySession[r.ID])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func toHistoryRow(r *domain.SessionRecord) (historyRow, error) {
	carry := r.CarryOver
	if carry == nil {
		carry = []int64{}
	}
	raw, err := json.Marshal(carry)
	if err != nil {
		return historyRow{}, fmt.Errorf("failed to encode carry-over: %w", err)
	}
	return historyRow{
		ID:              r.ID,
		UserID:          r.UserID,
		DeckID:          r.DeckID,
		RemoteSessionID: r.RemoteSessionID,
		DeckTitle:       r.DeckTitle,
		AnsweredCount:   r.AnsweredCount,
		CorrectCount:    r.CorrectCount,
		WrongCount:      r.WrongCount,
		CarryOver:       string(raw),
		CompletedAt:     r.CompletedAt.UTC().UnixMilli(),
	}, nil
}

func (r historyRow) toDomain(cards []domain.SummaryRow) (domain.SessionRecord, error) {
	var carry []int64
	if err := json.Unmarshal([]byte(r.CarryOver), &carry); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("failed to decode carry-over of %s: %w", r.ID, err)
	}
	if cards == nil {
		cards = []domain.SummaryRow{}
	}
	return domain.SessionRecord{
		ID:              r.ID,
		UserID:          r.UserID,
		DeckID:          r.DeckID,
		RemoteSessionID: r.RemoteSessionID,
		DeckTitle:       r.DeckTitle,
		AnsweredCount:   r.AnsweredCount,
		CorrectCount:    r.CorrectCount,
		WrongCount:      r.WrongCount,
		Rows:            cards,
		CarryOver:       carry,
		CompletedAt:     time.UnixMilli(r.CompletedAt).UTC(),
	}, nil
}
