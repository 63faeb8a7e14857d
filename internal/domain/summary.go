package domain

// HardWrongThreshold is the number of wrong answers within one session that marks a card as hard.
const HardWrongThreshold = 2

// SummarySource tells where a summary was computed.
type SummarySource string

const (
	SummarySourceLocal  SummarySource = "local"
	SummarySourceRemote SummarySource = "remote"
)

// SummaryRow is the end-of-session tally for one presented card.
type SummaryRow struct {
	CardID       int64  `json:"cardId"`
	Term         string `json:"term"`
	Meaning      string `json:"meaning"`
	Note         string `json:"note"`
	CorrectCount int    `json:"correct"`
	WrongCount   int    `json:"wrong"`
	Hard         bool   `json:"hard"`
}

// NewSummaryRow builds a row for card and derives Hard from the wrong count.
func NewSummaryRow(card Card, correct, wrong int) SummaryRow {
	return SummaryRow{
		CardID:       card.ID,
		Term:         card.Term,
		Meaning:      card.Meaning,
		Note:         card.Note,
		CorrectCount: correct,
		WrongCount:   wrong,
		Hard:         wrong >= HardWrongThreshold,
	}
}

// Summary is the completed-session table plus the carry-over hint for the next session.
type Summary struct {
	Rows      []SummaryRow  `json:"rows"`
	CarryOver []int64       `json:"recommended_carry_over_card_ids"`
	Source    SummarySource `json:"source"`
}
