package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhohoai/study-engine/internal/domain"
	"github.com/nhohoai/study-engine/internal/events"
	"github.com/nhohoai/study-engine/internal/platform/memstore"
	"github.com/nhohoai/study-engine/internal/service/auth"
	"github.com/nhohoai/study-engine/internal/study"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type inlineDispatcher struct{}

func (inlineDispatcher) Dispatch(_ string, fn func(ctx context.Context) error) {
	_ = fn(context.Background())
}

// fakeBackend serves one deck of six new cards. Tokens listed in rejected get ErrUnauthorized.
type fakeBackend struct {
	mu            sync.Mutex
	rejected      map[string]bool
	startRequests []domain.StartRequest
	reports       []domain.AnswerReport
}

type tokenBackend struct {
	b     *fakeBackend
	token string
}

func (b *fakeBackend) forToken(token string) study.Backend {
	return tokenBackend{b: b, token: token}
}

func (b *fakeBackend) reject(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rejected == nil {
		b.rejected = make(map[string]bool)
	}
	b.rejected[token] = true
}

func (t tokenBackend) StartSession(_ context.Context, _ int64, req domain.StartRequest) (*domain.Bootstrap, error) {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if t.b.rejected[t.token] {
		return nil, domain.ErrUnauthorized
	}
	t.b.startRequests = append(t.b.startRequests, req)

	cards := make([]domain.Card, 6)
	ids := make([]int64, 6)
	for i := range cards {
		id := int64(i + 1)
		cards[i] = domain.Card{ID: id, Term: fmt.Sprintf("term-%d", id), Meaning: fmt.Sprintf("meaning-%d", id)}
		ids[i] = id
	}
	return &domain.Bootstrap{
		SessionID: int64(100 + len(t.b.startRequests)),
		DeckTitle: "Deck",
		Cards:     cards,
		Queues:    domain.Queues{New: ids},
	}, nil
}

func (t tokenBackend) ReportAnswer(_ context.Context, r domain.AnswerReport) error {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if t.b.rejected[t.token] {
		return domain.ErrUnauthorized
	}
	t.b.reports = append(t.b.reports, r)
	return nil
}

func (t tokenBackend) FetchSummary(context.Context, int64) (*domain.Summary, error) {
	return nil, nil
}

type recordingRevoker struct {
	mu      sync.Mutex
	revoked []string
}

func (r *recordingRevoker) RevokeUser(c *auth.Claims) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked = append(r.revoked, c.UserID)
}

type fixture struct {
	manager *Manager
	backend *fakeBackend
	history *memstore.HistoryStore
	revoker *recordingRevoker

	clockMu sync.Mutex
	now     time.Time
}

func (f *fixture) clock() time.Time {
	f.clockMu.Lock()
	defer f.clockMu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.clockMu.Lock()
	defer f.clockMu.Unlock()
	f.now = f.now.Add(d)
}

func newFixture(t *testing.T, questionLimit int, opts ...func(*study.Params)) *fixture {
	t.Helper()

	f := &fixture{
		backend: &fakeBackend{},
		history: memstore.NewHistoryStore(),
		revoker: &recordingRevoker{},
		now:     time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
	}

	emitter := events.NewInMemoryEventEmitter(discardLogger())
	emitter.RegisterHandler(NewHistoryRecorder(f.history, discardLogger()))

	params := study.NewDefaultParams()
	params.QuestionLimit = questionLimit
	for _, opt := range opts {
		opt(&params)
	}

	seed := int64(0)
	m, err := NewManager(Options{
		Params:     params,
		IdleTTL:    10 * time.Minute,
		Backends:   f.backend.forToken,
		Dispatcher: inlineDispatcher{},
		Emitter:    emitter,
		History:    f.history,
		Revoker:    f.revoker,
		Logger:     discardLogger(),
		NewRand: func() *rand.Rand {
			seed++
			return rand.New(rand.NewSource(seed))
		},
		Now: f.clock,
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	f.manager = m
	return f
}

func caller(user string) Caller {
	return Caller{
		UserID: user,
		Token:  "token-" + user,
		Claims: &auth.Claims{UserID: user, ID: "jti-" + user},
	}
}

// answer submits the correct choice, or a skip when correct is false.
func answer(t *testing.T, m *Manager, c Caller, id string, correct bool) study.AnswerResult {
	t.Helper()
	sess, err := m.Get(c, id)
	require.NoError(t, err)
	snap := sess.Snapshot()
	require.NotNil(t, snap.Question)

	var choice *string
	if correct {
		choice = &snap.Question.Correct
	}
	res, err := m.Answer(c, id, choice)
	require.NoError(t, err)
	return res
}
