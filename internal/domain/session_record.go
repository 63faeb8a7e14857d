package domain

import (
	"errors"
	"time"
)

// Session record validation errors
var (
	ErrRecordIDEmpty     = errors.New("session record ID cannot be empty")
	ErrRecordUserIDEmpty = errors.New("session record user ID cannot be empty")
	ErrRecordDeckIDEmpty = errors.New("session record deck ID cannot be empty")
)

// SessionRecord is the stored history entry of one completed study session.
type SessionRecord struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	DeckID          int64        `json:"deck_id"`
	RemoteSessionID int64        `json:"remote_session_id"`
	DeckTitle       string       `json:"deck_title"`
	AnsweredCount   int          `json:"answered_count"`
	CorrectCount    int          `json:"correct_count"`
	WrongCount      int          `json:"wrong_count"`
	Rows            []SummaryRow `json:"rows"`
	CarryOver       []int64      `json:"carry_over_card_ids"`
	CompletedAt     time.Time    `json:"completed_at"`
}

// Validate checks the identifying fields of the record.
func (r *SessionRecord) Validate() error {
	if r.ID == "" {
		return ErrRecordIDEmpty
	}
	if r.UserID == "" {
		return ErrRecordUserIDEmpty
	}
	if r.DeckID <= 0 {
		return ErrRecordDeckIDEmpty
	}
	return nil
}
