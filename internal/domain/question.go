package domain

import (
	"errors"
	"fmt"
)

// QuestionMode selects which side of a card is shown as the prompt.
type QuestionMode string

const (
	// ModeTermToMeaning prompts with the term and expects the meaning.
	ModeTermToMeaning QuestionMode = "TERM_TO_MEANING"
	// ModeMeaningToTerm prompts with the meaning and expects the term.
	ModeMeaningToTerm QuestionMode = "MEANING_TO_TERM"
)

// ErrInvalidQuestion is returned when a question breaks its shape invariants.
var ErrInvalidQuestion = errors.New("invalid question")

// Question is a multiple-choice question built from one card.
type Question struct {
	CardID  int64        `json:"card_id"`
	Prompt  string       `json:"prompt"`
	Correct string       `json:"correct"`
	Choices []string     `json:"choices"`
	Mode    QuestionMode `json:"mode"`
	// Meaning and Note are shown once the question has been answered.
	Meaning string `json:"meaning"`
	Note    string `json:"note"`
}

// IsCorrect reports whether choice matches the correct answer.
// A nil choice is an explicit "I don't know" and is never correct.
func (q *Question) IsCorrect(choice *string) bool {
	return choice != nil && *choice == q.Correct
}

// Validate checks that the question has exactly numChoices non-empty choices
// and that the correct answer appears among them exactly once.
func (q *Question) Validate(numChoices int) error {
	if len(q.Choices) != numChoices {
		return fmt.Errorf("%w: expected %d choices, got %d", ErrInvalidQuestion, numChoices, len(q.Choices))
	}
	found := 0
	for _, c := range q.Choices {
		if c == "" {
			return fmt.Errorf("%w: empty choice", ErrInvalidQuestion)
		}
		if c == q.Correct {
			found++
		}
	}
	if found != 1 {
		return fmt.Errorf("%w: correct answer appears %d times", ErrInvalidQuestion, found)
	}
	return nil
}
