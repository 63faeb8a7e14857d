package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/nhohoai/study-engine/internal/api/middleware"
	"github.com/nhohoai/study-engine/internal/config"
	"github.com/nhohoai/study-engine/internal/domain"
	"github.com/nhohoai/study-engine/internal/events"
	"github.com/nhohoai/study-engine/internal/mocks"
	"github.com/nhohoai/study-engine/internal/platform/memstore"
	"github.com/nhohoai/study-engine/internal/platform/studyapi"
	"github.com/nhohoai/study-engine/internal/service/auth"
	"github.com/nhohoai/study-engine/internal/service/session"
	"github.com/nhohoai/study-engine/internal/study"
)

const (
	testSecret   = "test-jwt-secret-that-is-32-chars-long"
	deckEmpty    = 99
	deckNotFound = 404
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type inlineDispatcher struct{}

func (inlineDispatcher) Dispatch(_ string, fn func(ctx context.Context) error) {
	_ = fn(context.Background())
}

// fakeCollaborator serves four cards per deck and rejects tokens listed in rejected.
type fakeCollaborator struct {
	mu       sync.Mutex
	rejected map[string]bool
}

func (c *fakeCollaborator) reject(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected[token] = true
}

func (c *fakeCollaborator) isRejected(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rejected[token]
}

// backendFor returns the collaborator as seen with token.
func (c *fakeCollaborator) backendFor(token string) study.Backend {
	return &mocks.MockBackend{
		StartSessionFn: func(_ context.Context, deckID int64, _ domain.StartRequest) (*domain.Bootstrap, error) {
			if c.isRejected(token) {
				return nil, studyapi.ErrUnauthorized
			}
			switch deckID {
			case deckEmpty:
				return &domain.Bootstrap{SessionID: 1, DeckTitle: "Empty"}, nil
			case deckNotFound:
				return nil, studyapi.ErrNotFound
			}
			cards := make([]domain.Card, 4)
			ids := make([]int64, 4)
			for i := range cards {
				id := int64(i + 1)
				cards[i] = domain.Card{ID: id, Term: fmt.Sprintf("term-%d", id), Meaning: fmt.Sprintf("meaning-%d", id), Note: "note"}
				ids[i] = id
			}
			return &domain.Bootstrap{SessionID: 55, DeckTitle: "Animals", Cards: cards, Queues: domain.Queues{New: ids}}, nil
		},
		ReportAnswerFn: func(context.Context, domain.AnswerReport) error {
			if c.isRejected(token) {
				return studyapi.ErrUnauthorized
			}
			return nil
		},
	}
}

type testServer struct {
	router       http.Handler
	jwt          auth.JWTService
	collaborator *fakeCollaborator
	manager      *session.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	revocations := auth.NewRevocations(time.Hour)
	jwtService, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret}, revocations)
	require.NoError(t, err)

	collab := &fakeCollaborator{rejected: make(map[string]bool)}
	history := memstore.NewHistoryStore()
	emitter := events.NewInMemoryEventEmitter(discardLogger())
	emitter.RegisterHandler(session.NewHistoryRecorder(history, discardLogger()))

	params := study.NewDefaultParams()
	params.QuestionLimit = 2
	params.AutoNext = time.Minute

	manager, err := session.NewManager(session.Options{
		Params:     params,
		IdleTTL:    time.Hour,
		Backends:   collab.backendFor,
		Dispatcher: inlineDispatcher{},
		Emitter:    emitter,
		History:    history,
		Revoker:    revocations,
		Logger:     discardLogger(),
		NewRand:    func() *rand.Rand { return rand.New(rand.NewSource(7)) },
	})
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	r := chi.NewRouter()
	r.Use(middleware.Trace(discardLogger()))
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(jwtService).Authenticate)
		NewSessionHandler(manager, discardLogger()).Routes(r)
	})

	return &testServer{router: r, jwt: jwtService, collaborator: collab, manager: manager}
}

func (s *testServer) token(t *testing.T, user string) string {
	t.Helper()
	tok, err := s.jwt.GenerateToken(context.Background(), user)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// startSession starts a session on deck 7 and returns its view.
func (s *testServer) startSession(t *testing.T, token string) SessionResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/decks/7/study/sessions", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[SessionResponse](t, rec)
}

// correctChoice reads the correct answer of the presented question from the engine.
func (s *testServer) correctChoice(t *testing.T, user, id string) string {
	t.Helper()
	sess, err := s.manager.Get(session.Caller{UserID: user}, id)
	require.NoError(t, err)
	q := sess.Snapshot().Question
	require.NotNil(t, q)
	return q.Correct
}
