package mocks

import (
	"context"
	"sync"

	"github.com/nhohoai/study-engine/internal/domain"
)

// MockBackend implements study.Backend for testing.
type MockBackend struct {
	StartSessionFn func(ctx context.Context, deckID int64, req domain.StartRequest) (*domain.Bootstrap, error)
	ReportAnswerFn func(ctx context.Context, report domain.AnswerReport) error
	FetchSummaryFn func(ctx context.Context, sessionID int64) (*domain.Summary, error)

	// Default values used when functions aren't explicitly defined
	Bootstrap *domain.Bootstrap
	Summary   *domain.Summary
	Err       error

	mu            sync.Mutex
	startRequests []domain.StartRequest
	reports       []domain.AnswerReport
	summaryCalls  int
}

// StartSession implements study.Backend.
func (m *MockBackend) StartSession(ctx context.Context, deckID int64, req domain.StartRequest) (*domain.Bootstrap, error) {
	m.mu.Lock()
	m.startRequests = append(m.startRequests, req)
	m.mu.Unlock()

	if m.StartSessionFn != nil {
		return m.StartSessionFn(ctx, deckID, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Bootstrap, nil
}

// ReportAnswer implements study.Backend.
func (m *MockBackend) ReportAnswer(ctx context.Context, report domain.AnswerReport) error {
	m.mu.Lock()
	m.reports = append(m.reports, report)
	m.mu.Unlock()

	if m.ReportAnswerFn != nil {
		return m.ReportAnswerFn(ctx, report)
	}
	return m.Err
}

// FetchSummary implements study.Backend.
func (m *MockBackend) FetchSummary(ctx context.Context, sessionID int64) (*domain.Summary, error) {
	m.mu.Lock()
	m.summaryCalls++
	m.mu.Unlock()

	if m.FetchSummaryFn != nil {
		return m.FetchSummaryFn(ctx, sessionID)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Summary, nil
}

// StartRequests returns the requests passed to StartSession.
func (m *MockBackend) StartRequests() []domain.StartRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.StartRequest(nil), m.startRequests...)
}

// Reports returns the answers passed to ReportAnswer.
func (m *MockBackend) Reports() []domain.AnswerReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AnswerReport(nil), m.reports...)
}

// SummaryCalls returns how many times FetchSummary was called.
func (m *MockBackend) SummaryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaryCalls
}
