package study

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/nhohoai/study-engine/internal/domain"
)

func makeCards(ids ...int64) []domain.Card {
	cards := make([]domain.Card, len(ids))
	for i, id := range ids {
		cards[i] = domain.Card{
			ID:      id,
			Term:    fmt.Sprintf("term-%d", id),
			Meaning: fmt.Sprintf("meaning-%d", id),
			Note:    fmt.Sprintf("note-%d", id),
		}
	}
	return cards
}

func idRange(from, to int64) []int64 {
	var ids []int64
	for id := from; id <= to; id++ {
		ids = append(ids, id)
	}
	return ids
}

func mustPool(cards []domain.Card) *CardPool {
	p, err := LoadPool(cards)
	if err != nil {
		panic(err)
	}
	return p
}

func seededRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// inlineDispatcher runs jobs synchronously on the caller's goroutine.
type inlineDispatcher struct{}

func (inlineDispatcher) Dispatch(_ string, fn func(ctx context.Context) error) {
	_ = fn(context.Background())
}

// fakeBackend is an in-memory collaborator.
type fakeBackend struct {
	mu sync.Mutex

	bootstrap  *domain.Bootstrap
	startErr   error
	reportErr  error
	summary    *domain.Summary
	summaryErr error
	onStart    func()

	startRequests []domain.StartRequest
	reports       []domain.AnswerReport
	summaryCalls  int
}

func (b *fakeBackend) StartSession(_ context.Context, _ int64, req domain.StartRequest) (*domain.Bootstrap, error) {
	b.mu.Lock()
	b.startRequests = append(b.startRequests, req)
	hook := b.onStart
	b.mu.Unlock()
	if hook != nil {
		hook()
	}
	if b.startErr != nil {
		return nil, b.startErr
	}
	return b.bootstrap, nil
}

func (b *fakeBackend) ReportAnswer(_ context.Context, r domain.AnswerReport) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reports = append(b.reports, r)
	return b.reportErr
}

func (b *fakeBackend) FetchSummary(_ context.Context, _ int64) (*domain.Summary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.summaryCalls++
	if b.summaryErr != nil {
		return nil, b.summaryErr
	}
	return b.summary, nil
}

func (b *fakeBackend) Reports() []domain.AnswerReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.AnswerReport(nil), b.reports...)
}

// authRecorder counts auth failure notifications.
type authRecorder struct {
	mu    sync.Mutex
	calls int
}

func (a *authRecorder) HandleAuthFailure(context.Context) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
}

func (a *authRecorder) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}
