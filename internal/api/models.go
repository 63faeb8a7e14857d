package api

import (
	"github.com/nhohoai/study-engine/internal/domain"
	"github.com/nhohoai/study-engine/internal/study"
)

// StartSessionRequest is the optional body of the session start endpoint.
type StartSessionRequest struct {
	// CarryOverCardIDs are reviewed first, typically the previous session's carry-over.
	CarryOverCardIDs []int64 `json:"carry_over_card_ids" validate:"omitempty,max=50,dive,gt=0"`
}

// AnswerRequest submits a choice. A null or missing choice is "I don't know".
type AnswerRequest struct {
	Choice *string `json:"choice"`
}

// QuestionResponse is the presented question. The reveal fields are only set
// once the question has been answered.
type QuestionResponse struct {
	CardID        int64               `json:"card_id"`
	Prompt        string              `json:"prompt"`
	Mode          domain.QuestionMode `json:"mode"`
	Choices       []string            `json:"choices"`
	CorrectAnswer string              `json:"correct_answer,omitempty"`
	Meaning       string              `json:"meaning,omitempty"`
	Note          string              `json:"note,omitempty"`
}

// AutoAdvanceResponse is the countdown after a correct answer.
type AutoAdvanceResponse struct {
	RemainingMS int64 `json:"remaining_ms"`
	TotalMS     int64 `json:"total_ms"`
}

// SessionResponse is the view of a live study session.
type SessionResponse struct {
	ID              string               `json:"id"`
	DeckID          int64                `json:"deck_id"`
	DeckTitle       string               `json:"deck_title"`
	RemoteSessionID int64                `json:"remote_session_id"`
	State           study.State          `json:"state"`
	Question        *QuestionResponse    `json:"question,omitempty"`
	AnsweredCount   int                  `json:"answered_count"`
	QuestionLimit   int                  `json:"question_limit"`
	AutoAdvance     *AutoAdvanceResponse `json:"auto_advance,omitempty"`
	LastAnswer      *study.AnswerResult  `json:"last_answer,omitempty"`
}

// AnswerResponse is the outcome of a submission.
type AnswerResponse struct {
	Correct       bool        `json:"correct"`
	CorrectAnswer string      `json:"correct_answer"`
	State         study.State `json:"state"`
}

// HistoryResponse lists recorded sessions, newest first.
type HistoryResponse struct {
	Sessions []domain.SessionRecord `json:"sessions"`
}

func sessionToResponse(snap study.Snapshot) SessionResponse {
	resp := SessionResponse{
		ID:              snap.ID,
		DeckID:          snap.DeckID,
		DeckTitle:       snap.DeckTitle,
		RemoteSessionID: snap.RemoteSessionID,
		State:           snap.State,
		AnsweredCount:   snap.AnsweredCount,
		QuestionLimit:   snap.QuestionLimit,
		LastAnswer:      snap.LastAnswer,
	}
	if q := snap.Question; q != nil {
		resp.Question = &QuestionResponse{
			CardID:  q.CardID,
			Prompt:  q.Prompt,
			Mode:    q.Mode,
			Choices: q.Choices,
		}
		if snap.Revealed() {
			resp.Question.CorrectAnswer = q.Correct
			resp.Question.Meaning = q.Meaning
			resp.Question.Note = q.Note
		}
	}
	if snap.Total > 0 {
		resp.AutoAdvance = &AutoAdvanceResponse{
			RemainingMS: snap.Remaining.Milliseconds(),
			TotalMS:     snap.Total.Milliseconds(),
		}
	}
	return resp
}
