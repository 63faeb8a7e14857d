package domain

// StartRequest is sent to the collaborator to open a study session.
type StartRequest struct {
	CarryOverCardIDs []int64 `json:"carry_over_card_ids"`
	NewLimit         int     `json:"new_limit"`
	QuestionLimit    int     `json:"question_limit"`
}

// Queues are the collaborator's initial scheduling tiers.
// NewLater holds new cards beyond the new-card limit; it may be empty.
type Queues struct {
	Due      []int64 `json:"due"`
	Learning []int64 `json:"learning"`
	New      []int64 `json:"new"`
	NewLater []int64 `json:"new_later,omitempty"`
}

// Policy echoes the limits the collaborator actually applied.
type Policy struct {
	QuestionLimit int `json:"question_limit"`
	NewLimit      int `json:"new_limit"`
}

// Bootstrap is everything the collaborator returns when a session starts.
type Bootstrap struct {
	SessionID int64
	DeckTitle string
	Cards     []Card
	Queues    Queues
	Policy    *Policy
}

// AnswerReport is the per-answer telemetry forwarded to the collaborator.
type AnswerReport struct {
	SessionID int64 `json:"session_id"`
	CardID    int64 `json:"card_id"`
	Correct   bool  `json:"is_correct"`
}
