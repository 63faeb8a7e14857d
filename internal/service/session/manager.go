package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nhohoai/study-engine/internal/domain"
	"github.com/nhohoai/study-engine/internal/events"
	"github.com/nhohoai/study-engine/internal/service"
	"github.com/nhohoai/study-engine/internal/service/auth"
	"github.com/nhohoai/study-engine/internal/store"
	"github.com/nhohoai/study-engine/internal/study"
)

// Caller identifies the authenticated user behind a request.
type Caller struct {
	UserID string
	// Token is forwarded to the collaborator.
	Token  string
	Claims *auth.Claims
}

// BackendFactory returns a collaborator client acting with the given bearer token.
type BackendFactory func(token string) study.Backend

// Revoker invalidates the credentials of a signed-out user.
type Revoker interface {
	RevokeUser(claims *auth.Claims)
}

// Options configure a Manager. Backends is required.
type Options struct {
	Params     study.Params
	IdleTTL    time.Duration
	Backends   BackendFactory
	Dispatcher study.Dispatcher
	Emitter    events.EventEmitter
	History    store.SessionHistoryStore
	Revoker    Revoker
	Logger     *slog.Logger
	// NewRand seeds each session's random source. Defaults to the clock.
	NewRand func() *rand.Rand
	Now     func() time.Time
}

type entry struct {
	session  *study.Session
	userID   string
	lastUsed atomic.Int64
}

func (e *entry) touch(now time.Time) {
	e.lastUsed.Store(now.UnixNano())
}

// Manager holds the live sessions of every caller.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewManager creates a Manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.Backends == nil {
		return nil, errors.New("backend factory cannot be nil")
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewRand == nil {
		opts.NewRand = func() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		opts:     opts,
		logger:   opts.Logger.With(slog.String("component", "session_manager")),
		sessions: make(map[string]*entry),
	}, nil
}

// Start creates a session for deckID and bootstraps it. The session is only
// kept when bootstrap succeeds.
func (m *Manager) Start(ctx context.Context, caller Caller, deckID int64, carryOver []int64) (*study.Session, error) {
	if deckID <= 0 {
		return nil, fmt.Errorf("%w: deck id %d", domain.ErrInvalidID, deckID)
	}

	userID := caller.UserID
	e := &entry{userID: userID}
	sess, err := study.NewSession(deckID, m.opts.Params, study.Deps{
		Backend:    m.opts.Backends(caller.Token),
		Dispatcher: m.opts.Dispatcher,
		Auth: study.AuthFailureFunc(func(ctx context.Context) {
			m.SignOutUser(ctx, caller)
		}),
		Rand:   m.opts.NewRand(),
		Logger: m.opts.Logger.With(slog.String("user_id", userID)),
		OnComplete: func(ctx context.Context, c study.Completion) error {
			return m.recordCompletion(ctx, userID, c)
		},
		// a running countdown counts as activity for the idle sweeper
		OnTick: func(time.Duration) { e.touch(m.opts.Now()) },
		Now:    m.opts.Now,
	})
	if err != nil {
		return nil, err
	}

	e.session = sess
	m.add(e)
	if err := sess.Start(ctx, carryOver); err != nil {
		m.remove(sess.ID())
		sess.Teardown()
		return nil, err
	}
	return sess, nil
}

// Get returns the caller's session with the given id.
func (m *Manager) Get(caller Caller, id string) (*study.Session, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, service.ErrSessionNotFound
	}
	if e.userID != caller.UserID {
		return nil, service.ErrNotOwned
	}
	e.touch(m.opts.Now())
	return e.session, nil
}

// Answer submits choice to the caller's session.
func (m *Manager) Answer(caller Caller, id string, choice *string) (study.AnswerResult, error) {
	sess, err := m.Get(caller, id)
	if err != nil {
		return study.AnswerResult{}, err
	}
	return sess.Submit(choice)
}

// Continue advances past a revealed question.
func (m *Manager) Continue(caller Caller, id string) error {
	sess, err := m.Get(caller, id)
	if err != nil {
		return err
	}
	return sess.Continue()
}

// Summary returns the summary of a completed session.
func (m *Manager) Summary(ctx context.Context, caller Caller, id string) (domain.Summary, error) {
	sess, err := m.Get(caller, id)
	if err != nil {
		return domain.Summary{}, err
	}
	return sess.Summary(ctx)
}

// Restart replaces a completed session with a new one over the same deck,
// seeded with the completed session's carry-over set.
func (m *Manager) Restart(ctx context.Context, caller Caller, id string) (*study.Session, error) {
	old, err := m.Get(caller, id)
	if err != nil {
		return nil, err
	}
	summary, err := old.Summary(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.Teardown(caller, id); err != nil && !errors.Is(err, service.ErrSessionNotFound) {
		return nil, err
	}
	return m.Start(ctx, caller, old.DeckID(), summary.CarryOver)
}

// Teardown closes the caller's session and forgets it.
func (m *Manager) Teardown(caller Caller, id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	switch {
	case !ok:
		m.mu.Unlock()
		return service.ErrSessionNotFound
	case e.userID != caller.UserID:
		m.mu.Unlock()
		return service.ErrNotOwned
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	e.session.Teardown()
	return nil
}

// SignOutUser revokes the caller's credentials and tears down every live
// session of that user, cancelling their pending auto-advances.
func (m *Manager) SignOutUser(ctx context.Context, caller Caller) {
	if m.opts.Revoker != nil && caller.Claims != nil {
		m.opts.Revoker.RevokeUser(caller.Claims)
	}

	m.mu.Lock()
	var closing []*study.Session
	for id, e := range m.sessions {
		if e.userID == caller.UserID {
			closing = append(closing, e.session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range closing {
		s.Teardown()
	}
	m.logger.WarnContext(ctx, "user signed out after credential rejection",
		slog.String("user_id", caller.UserID),
		slog.Int("sessions_closed", len(closing)))
}

// History lists the caller's recorded sessions, newest first.
func (m *Manager) History(ctx context.Context, caller Caller, limit int) ([]domain.SessionRecord, error) {
	if m.opts.History == nil {
		return []domain.SessionRecord{}, nil
	}
	return m.opts.History.ListByUser(ctx, caller.UserID, limit)
}

// SweepIdle tears down sessions unused for longer than the idle TTL and
// returns how many were closed.
func (m *Manager) SweepIdle() int {
	if m.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := m.opts.Now().Add(-m.opts.IdleTTL).UnixNano()

	m.mu.Lock()
	var idle []*study.Session
	for id, e := range m.sessions {
		if e.lastUsed.Load() < cutoff {
			idle = append(idle, e.session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Teardown()
	}
	if len(idle) > 0 {
		m.logger.Info("closed idle sessions", slog.Int("count", len(idle)))
	}
	return len(idle)
}

// Close tears down every live session.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range all {
		e.session.Teardown()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) add(e *entry) {
	e.touch(m.opts.Now())
	m.mu.Lock()
	m.sessions[e.session.ID()] = e
	m.mu.Unlock()
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// recordCompletion publishes a session.completed event.
func (m *Manager) recordCompletion(ctx context.Context, userID string, c study.Completion) error {
	if m.opts.Emitter == nil {
		return nil
	}
	evt, err := events.NewEvent(events.TypeSessionCompleted, events.SessionCompleted{
		SessionID:       c.SessionID,
		UserID:          userID,
		DeckID:          c.DeckID,
		RemoteSessionID: c.RemoteSessionID,
		DeckTitle:       c.DeckTitle,
		AnsweredCount:   c.AnsweredCount,
		CorrectCount:    c.CorrectCount,
		WrongCount:      c.WrongCount,
		Summary:         c.Summary,
		CompletedAt:     c.CompletedAt,
	})
	if err != nil {
		return err
	}
	return m.opts.Emitter.EmitEvent(ctx, evt)
}
