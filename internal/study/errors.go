package study

import "errors"

// Engine errors. Use errors.Is to check them.
var (
	// ErrEmptyDeck is returned when the bootstrap response holds no usable cards.
	ErrEmptyDeck = errors.New("deck has no usable cards")

	// ErrInvalidCard is returned when a bootstrap card has a missing ID.
	ErrInvalidCard = errors.New("invalid card in bootstrap response")

	// ErrDuplicateCard is returned when two bootstrap cards share an ID.
	ErrDuplicateCard = errors.New("duplicate card in bootstrap response")

	// ErrBootFailed wraps any failure to open a session with the collaborator.
	ErrBootFailed = errors.New("study session bootstrap failed")

	// ErrAlreadyStarted is returned when Start is called twice on one session.
	ErrAlreadyStarted = errors.New("study session already started")

	// ErrAlreadyAnswered is returned for a second submission to the same question.
	ErrAlreadyAnswered = errors.New("question already answered")

	// ErrNoActiveQuestion is returned when no question is being presented.
	ErrNoActiveQuestion = errors.New("no active question")

	// ErrNotRevealed is returned when continuing before the current question was answered.
	ErrNotRevealed = errors.New("current question has not been answered")

	// ErrSessionComplete is returned when acting on a completed session.
	ErrSessionComplete = errors.New("study session is complete")

	// ErrSessionNotComplete is returned when asking for the summary of a running session.
	ErrSessionNotComplete = errors.New("study session is not complete")

	// ErrSessionClosed is returned when acting on a torn-down session.
	ErrSessionClosed = errors.New("study session is closed")

	// ErrSignedOut is returned when the session ended because credentials were rejected.
	ErrSignedOut = errors.New("study session ended: signed out")

	// ErrInvalidParams is returned by Params.Validate.
	ErrInvalidParams = errors.New("invalid study parameters")
)
