package study

import (
	"fmt"
	"time"
)

// MaxRetryWeight caps the number of retry-queue copies a failed card receives.
const MaxRetryWeight = 3

// CarryOverSize is the maximum number of card ids handed to the next session.
const CarryOverSize = 4

// Params defines the tunable constants of the engine.
type Params struct {
	// QuestionLimit is the number of answers after which the session completes.
	QuestionLimit int
	// NewLimit caps the number of never-studied cards queued per session.
	NewLimit int
	// OldTarget is the minimum number of already-studied cards a session should contain.
	OldTarget int
	// MaxAppearPerCard caps how often one card may be presented in a session.
	MaxAppearPerCard int
	// MinGap is the minimum number of other questions between two presentations of a card.
	MinGap int
	// NumChoices is the number of choices of every question.
	NumChoices int
	// AutoNext is the delay before the next question after a correct answer.
	AutoNext time.Duration
	// Tick is the countdown progress interval.
	Tick time.Duration
	// RemoteSummary makes the collaborator's summary authoritative when it is available.
	RemoteSummary bool
}

// NewDefaultParams returns the engine defaults.
func NewDefaultParams() Params {
	return Params{
		QuestionLimit:    10,
		NewLimit:         6,
		OldTarget:        4,
		MaxAppearPerCard: 12,
		MinGap:           2,
		NumChoices:       4,
		AutoNext:         1100 * time.Millisecond,
		Tick:             50 * time.Millisecond,
	}
}

// Validate reports the first out-of-range parameter.
func (p Params) Validate() error {
	switch {
	case p.QuestionLimit < 1:
		return fmt.Errorf("%w: question limit %d must be positive", ErrInvalidParams, p.QuestionLimit)
	case p.NewLimit < 0:
		return fmt.Errorf("%w: new limit %d must not be negative", ErrInvalidParams, p.NewLimit)
	case p.OldTarget < 0:
		return fmt.Errorf("%w: old target %d must not be negative", ErrInvalidParams, p.OldTarget)
	case p.MaxAppearPerCard < 1:
		return fmt.Errorf("%w: appearance cap %d must be positive", ErrInvalidParams, p.MaxAppearPerCard)
	case p.MinGap < 0:
		return fmt.Errorf("%w: min gap %d must not be negative", ErrInvalidParams, p.MinGap)
	case p.NumChoices < 2:
		return fmt.Errorf("%w: need at least 2 choices, got %d", ErrInvalidParams, p.NumChoices)
	case p.AutoNext <= 0:
		return fmt.Errorf("%w: auto advance delay must be positive", ErrInvalidParams)
	case p.Tick <= 0 || p.Tick > p.AutoNext:
		return fmt.Errorf("%w: tick %s must be in (0, %s]", ErrInvalidParams, p.Tick, p.AutoNext)
	}
	return nil
}
