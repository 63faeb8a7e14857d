package domain

import (
	"errors"
	"strings"
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is zero or negative.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardTermEmpty is returned when a card's term is blank.
	ErrCardTermEmpty = errors.New("card term cannot be empty")

	// ErrCardMeaningEmpty is returned when a card's meaning is blank.
	ErrCardMeaningEmpty = errors.New("card meaning cannot be empty")
)

// Card is one vocabulary entry of a deck: a term, its meaning and an optional note.
// Cards are immutable for the lifetime of a study session.
type Card struct {
	ID      int64  `json:"id"`
	Term    string `json:"term"`
	Meaning string `json:"meaning"`
	Note    string `json:"note"`
}

// Validate checks that the card can be used to build a question.
func (c Card) Validate() error {
	if c.ID <= 0 {
		return ErrCardIDEmpty
	}
	if strings.TrimSpace(c.Term) == "" {
		return ErrCardTermEmpty
	}
	if strings.TrimSpace(c.Meaning) == "" {
		return ErrCardMeaningEmpty
	}
	return nil
}

// Normalized returns a copy with surrounding whitespace removed from every text field.
func (c Card) Normalized() Card {
	return Card{
		ID:      c.ID,
		Term:    strings.TrimSpace(c.Term),
		Meaning: strings.TrimSpace(c.Meaning),
		Note:    strings.TrimSpace(c.Note),
	}
}
