package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhohoai/study-engine/internal/domain"
)

// State is the lifecycle state of a Session.
type State string

// Session states.
const (
	StateIdle            State = "idle"
	StateBooting         State = "booting"
	StatePresenting      State = "presenting"
	StateRevealedCorrect State = "revealed_correct"
	StateRevealedWrong   State = "revealed_wrong"
	StateComplete        State = "complete"
	StateBootError       State = "boot_error"
	StateSignedOut       State = "signed_out"
	StateClosed          State = "closed"
)

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool {
	switch s {
	case StateComplete, StateBootError, StateSignedOut, StateClosed:
		return true
	}
	return false
}

// Backend is the deck/progress collaborator a session talks to.
// Implementations return an error wrapping domain.ErrUnauthorized when the
// caller's credentials are rejected.
type Backend interface {
	StartSession(ctx context.Context, deckID int64, req domain.StartRequest) (*domain.Bootstrap, error)
	ReportAnswer(ctx context.Context, report domain.AnswerReport) error
	FetchSummary(ctx context.Context, sessionID int64) (*domain.Summary, error)
}

// Dispatcher runs fire-and-forget work outside the session lock.
type Dispatcher interface {
	Dispatch(kind string, fn func(ctx context.Context) error)
}

// goDispatcher runs every job on its own goroutine.
type goDispatcher struct {
	logger *slog.Logger
}

func (d goDispatcher) Dispatch(kind string, fn func(ctx context.Context) error) {
	go func() {
		if err := fn(context.Background()); err != nil {
			d.logger.Warn("background job failed", slog.String("kind", kind), slog.String("error", err.Error()))
		}
	}()
}

// AuthFailureHandler ends the user's authenticated session after the
// collaborator rejected their credentials.
type AuthFailureHandler interface {
	HandleAuthFailure(ctx context.Context)
}

// AuthFailureFunc adapts a function to AuthFailureHandler.
type AuthFailureFunc func(ctx context.Context)

// HandleAuthFailure calls f(ctx).
func (f AuthFailureFunc) HandleAuthFailure(ctx context.Context) { f(ctx) }

// Completion describes a finished session.
type Completion struct {
	SessionID       string
	DeckID          int64
	RemoteSessionID int64
	DeckTitle       string
	AnsweredCount   int
	CorrectCount    int
	WrongCount      int
	Summary         domain.Summary
	CompletedAt     time.Time
}

// Deps are the collaborators of a Session. Only Backend is required.
type Deps struct {
	Backend    Backend
	Dispatcher Dispatcher
	Auth       AuthFailureHandler
	// Rand drives mode choice, shuffles and fallback draws. It is only used
	// under the session lock.
	Rand   *rand.Rand
	Logger *slog.Logger
	// OnComplete is dispatched once when the session completes.
	OnComplete func(ctx context.Context, c Completion) error
	// OnTick receives the remaining auto-advance time at every tick.
	OnTick func(remaining time.Duration)
	Now    func() time.Time
}

// AnswerResult is the outcome of one submission.
type AnswerResult struct {
	CardID        int64   `json:"card_id"`
	Choice        *string `json:"choice"`
	Correct       bool    `json:"correct"`
	CorrectAnswer string  `json:"correct_answer"`
	// RetryWeight is the number of retry copies queued for a wrong answer.
	RetryWeight int   `json:"retry_weight"`
	State       State `json:"state"`
}

// Snapshot is a consistent copy of a session's observable state.
type Snapshot struct {
	ID              string
	DeckID          int64
	RemoteSessionID int64
	DeckTitle       string
	State           State
	Question        *domain.Question
	LastAnswer      *AnswerResult
	AnsweredCount   int
	QuestionLimit   int
	Remaining       time.Duration
	Total           time.Duration
	BootError       string
}

// Revealed reports whether the current question has been answered.
func (s Snapshot) Revealed() bool {
	return s.State == StateRevealedCorrect || s.State == StateRevealedWrong
}

// Session is one live study session over one deck. All methods are safe for
// concurrent use; state changes are serialised by a single mutex and side
// effects (telemetry, completion, sign-out) run after it is released.
type Session struct {
	id     string
	deckID int64
	params Params
	deps   Deps
	logger *slog.Logger

	mu      sync.Mutex
	pending []func()

	state     State
	bootErr   error
	remoteID  int64
	deckTitle string
	limit     int

	pool    *CardPool
	sched   *Scheduler
	builder *QuestionBuilder

	answered int
	correct  map[int64]int
	wrong    map[int64]int
	current  *domain.Question
	last     *AnswerResult

	timer      AutoAdvance
	advanceGen uint64

	local  *domain.Summary
	remote *domain.Summary
}

// NewSession creates an idle session for deckID. Call Start to bootstrap it.
func NewSession(deckID int64, params Params, deps Deps) (*Session, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if deps.Backend == nil {
		return nil, errors.New("study: backend cannot be nil")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = goDispatcher{logger: deps.Logger}
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	id := uuid.NewString()
	return &Session{
		id:     id,
		deckID: deckID,
		params: params,
		deps:   deps,
		logger: deps.Logger.With(
			slog.String("component", "study_session"),
			slog.String("session_id", id),
			slog.Int64("deck_id", deckID),
		),
		state:   StateIdle,
		limit:   params.QuestionLimit,
		correct: make(map[int64]int),
		wrong:   make(map[int64]int),
	}, nil
}

// ID is the engine-side session handle.
func (s *Session) ID() string { return s.id }

// DeckID is the deck being studied.
func (s *Session) DeckID() int64 { return s.deckID }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start bootstraps the session with the collaborator and presents the first
// question. carryOver is forwarded as a review hint and also seeded locally.
//
// A rejected credential signs the session out and returns ErrSignedOut. Any
// other bootstrap failure leaves the session in StateBootError and returns an
// error wrapping ErrBootFailed; it is not retried.
func (s *Session) Start(ctx context.Context, carryOver []int64) error {
	s.mu.Lock()
	if s.state != StateIdle {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrAlreadyStarted, st)
	}
	s.state = StateBooting
	s.mu.Unlock()

	if carryOver == nil {
		carryOver = []int64{}
	}
	req := domain.StartRequest{
		CarryOverCardIDs: carryOver,
		NewLimit:         s.params.NewLimit,
		QuestionLimit:    s.params.QuestionLimit,
	}
	bs, err := s.deps.Backend.StartSession(ctx, s.deckID, req)

	s.mu.Lock()
	if s.state != StateBooting {
		// torn down or signed out while the call was in flight
		stErr := s.terminalErrLocked()
		s.unlock()
		return stErr
	}
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			s.signOutLocked(ctx)
			s.unlock()
			return ErrSignedOut
		}
		return s.failBootLocked(err)
	}
	if bs == nil {
		return s.failBootLocked(errors.New("empty bootstrap response"))
	}

	pool, err := LoadPool(bs.Cards)
	if err != nil {
		return s.failBootLocked(err)
	}
	if skipped := pool.Skipped(); len(skipped) > 0 {
		s.logger.WarnContext(ctx, "skipped cards with blank term or meaning",
			slog.Int("count", len(skipped)))
	}

	s.remoteID = bs.SessionID
	s.deckTitle = bs.DeckTitle
	if bs.Policy != nil && bs.Policy.QuestionLimit > 0 && bs.Policy.QuestionLimit < s.limit {
		s.limit = bs.Policy.QuestionLimit
	}
	s.pool = pool
	s.builder = NewQuestionBuilder(pool, s.params.NumChoices, s.deps.Rand)
	s.sched = NewScheduler(s.params, pool, s.deps.Rand)
	s.sched.Seed(bs.Queues, carryOver)

	s.logger.InfoContext(ctx, "study session started",
		slog.Int64("remote_session_id", s.remoteID),
		slog.Int("cards", pool.Len()),
		slog.Int("due", len(s.sched.Queue(QueueDue))),
		slog.Int("learning", len(s.sched.Queue(QueueLearning))),
		slog.Int("new", len(s.sched.Queue(QueueNew))),
		slog.Int("question_limit", s.limit),
	)

	s.nextLocked()
	s.unlock()
	return nil
}

// Submit answers the question being presented. A nil choice is an explicit
// skip and is scored as wrong. Only the first submission per question is
// accepted; later ones return ErrAlreadyAnswered and change nothing.
func (s *Session) Submit(choice *string) (AnswerResult, error) {
	s.mu.Lock()
	switch s.state {
	case StatePresenting:
	case StateRevealedCorrect, StateRevealedWrong:
		s.mu.Unlock()
		return AnswerResult{}, ErrAlreadyAnswered
	default:
		err := s.stateErrLocked()
		s.mu.Unlock()
		return AnswerResult{}, err
	}

	q := s.current
	correct := q.IsCorrect(choice)
	s.answered++

	res := AnswerResult{
		CardID:        q.CardID,
		Choice:        cloneChoice(choice),
		Correct:       correct,
		CorrectAnswer: q.Correct,
	}
	if correct {
		s.correct[q.CardID]++
	} else {
		s.wrong[q.CardID]++
		res.RetryWeight = s.sched.Requeue(q.CardID, s.wrong[q.CardID])
	}

	report := domain.AnswerReport{SessionID: s.remoteID, CardID: q.CardID, Correct: correct}
	s.pending = append(s.pending, func() {
		s.deps.Dispatcher.Dispatch("answer_report", func(ctx context.Context) error {
			return s.report(ctx, report)
		})
	})

	switch {
	case s.answered >= s.limit:
		s.completeLocked()
	case correct:
		s.state = StateRevealedCorrect
		s.armLocked()
	default:
		s.state = StateRevealedWrong
	}

	res.State = s.state
	s.last = &res
	out := res
	out.Choice = cloneChoice(res.Choice)
	s.unlock()
	return out, nil
}

// Continue moves past a revealed question. After a correct answer it cancels
// the pending auto-advance and advances immediately.
func (s *Session) Continue() error {
	s.mu.Lock()
	switch s.state {
	case StateRevealedCorrect, StateRevealedWrong:
	case StatePresenting:
		s.mu.Unlock()
		return ErrNotRevealed
	default:
		err := s.stateErrLocked()
		s.mu.Unlock()
		return err
	}
	s.nextLocked()
	s.unlock()
	return nil
}

// Teardown cancels any pending auto-advance and closes the session. It is
// safe to call more than once and from any state.
func (s *Session) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer.Cancel()
	s.advanceGen++
	if s.state == StateClosed || s.state == StateSignedOut {
		return
	}
	s.state = StateClosed
	s.logger.Debug("study session torn down", slog.Int("answered", s.answered))
}

// Summary returns the completed session's summary. With remote summaries
// enabled the collaborator's table is fetched once and supersedes the local
// one; a failed fetch falls back to the local table unless it was an
// authentication failure, which signs the session out.
func (s *Session) Summary(ctx context.Context) (domain.Summary, error) {
	s.mu.Lock()
	if s.state != StateComplete {
		err := s.summaryErrLocked()
		s.mu.Unlock()
		return domain.Summary{}, err
	}
	if s.remote != nil {
		out := cloneSummary(*s.remote)
		s.mu.Unlock()
		return out, nil
	}
	local := cloneSummary(*s.local)
	fetch := s.params.RemoteSummary && s.remoteID != 0
	remoteID := s.remoteID
	s.mu.Unlock()

	if !fetch {
		return local, nil
	}

	remote, err := s.deps.Backend.FetchSummary(ctx, remoteID)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			s.signOut(ctx)
			return domain.Summary{}, ErrSignedOut
		}
		s.logger.WarnContext(ctx, "remote summary unavailable, using local summary",
			slog.String("error", err.Error()))
		return local, nil
	}
	if remote == nil {
		return local, nil
	}

	got := cloneSummary(*remote)
	got.Source = domain.SummarySourceRemote
	if len(got.CarryOver) > CarryOverSize {
		got.CarryOver = got.CarryOver[:CarryOverSize]
	}
	s.mu.Lock()
	if s.remote == nil {
		s.remote = &got
	}
	out := cloneSummary(*s.remote)
	s.mu.Unlock()
	return out, nil
}

// Snapshot returns a copy of the observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:              s.id,
		DeckID:          s.deckID,
		RemoteSessionID: s.remoteID,
		DeckTitle:       s.deckTitle,
		State:           s.state,
		AnsweredCount:   s.answered,
		QuestionLimit:   s.limit,
		Remaining:       s.timer.Remaining(),
	}
	if s.timer.Pending() {
		snap.Total = s.timer.Total()
	}
	if s.current != nil && (s.state == StatePresenting || s.state == StateRevealedCorrect || s.state == StateRevealedWrong) {
		q := *s.current
		q.Choices = append([]string(nil), s.current.Choices...)
		snap.Question = &q
	}
	if s.last != nil {
		last := *s.last
		last.Choice = cloneChoice(s.last.Choice)
		snap.LastAnswer = &last
	}
	if s.bootErr != nil {
		snap.BootError = s.bootErr.Error()
	}
	return snap
}

// Counts returns the per-card correct and wrong tallies so far.
func (s *Session) Counts() (correct, wrong map[int64]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	correct = make(map[int64]int, len(s.correct))
	for k, v := range s.correct {
		correct[k] = v
	}
	wrong = make(map[int64]int, len(s.wrong))
	for k, v := range s.wrong {
		wrong[k] = v
	}
	return correct, wrong
}

// SchedulerView exposes read access to the scheduler for inspection.
// The callback runs under the session lock and must not retain s.
func (s *Session) SchedulerView(fn func(s *Scheduler)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched != nil {
		fn(s.sched)
	}
}

// nextLocked selects and presents the next question, or completes the session.
func (s *Session) nextLocked() {
	s.timer.Cancel()
	s.advanceGen++

	if s.answered >= s.limit {
		s.completeLocked()
		return
	}
	id, ok := s.sched.SelectNext()
	if !ok {
		s.logger.Info("no eligible card left, completing early", slog.Int("answered", s.answered))
		s.completeLocked()
		return
	}
	card, _ := s.pool.Get(id)
	q := s.builder.Build(card)
	s.current = &q
	s.state = StatePresenting
}

// armLocked starts the auto-advance countdown for the current reveal.
func (s *Session) armLocked() {
	s.advanceGen++
	gen := s.advanceGen
	s.timer.Arm(s.params.AutoNext, s.params.Tick, s.deps.OnTick, func() {
		s.autoAdvance(gen)
	})
}

// autoAdvance is the expiry callback. It only advances the reveal it was armed for.
func (s *Session) autoAdvance(gen uint64) {
	s.mu.Lock()
	if s.state != StateRevealedCorrect || s.advanceGen != gen {
		s.mu.Unlock()
		return
	}
	s.nextLocked()
	s.unlock()
}

func (s *Session) completeLocked() {
	s.timer.Cancel()
	s.advanceGen++
	s.state = StateComplete

	sum := BuildSummary(s.pool, s.correct, s.wrong)
	s.local = &sum

	c := Completion{
		SessionID:       s.id,
		DeckID:          s.deckID,
		RemoteSessionID: s.remoteID,
		DeckTitle:       s.deckTitle,
		AnsweredCount:   s.answered,
		Summary:         cloneSummary(sum),
		CompletedAt:     s.deps.Now(),
	}
	for _, n := range s.correct {
		c.CorrectCount += n
	}
	for _, n := range s.wrong {
		c.WrongCount += n
	}

	s.logger.Info("study session complete",
		slog.Int("answered", s.answered),
		slog.Int("correct", c.CorrectCount),
		slog.Int("wrong", c.WrongCount),
		slog.Int("carry_over", len(sum.CarryOver)),
	)

	if s.deps.OnComplete != nil {
		s.pending = append(s.pending, func() {
			s.deps.Dispatcher.Dispatch("session_completed", func(ctx context.Context) error {
				return s.deps.OnComplete(ctx, c)
			})
		})
	}
}

func (s *Session) failBootLocked(err error) error {
	s.state = StateBootError
	s.bootErr = err
	s.logger.Error("study session bootstrap failed", slog.String("error", err.Error()))
	s.unlock()
	return fmt.Errorf("%w: %w", ErrBootFailed, err)
}

// report forwards one answer to the collaborator. Failures never touch
// local state except a rejected credential, which signs the session out.
func (s *Session) report(ctx context.Context, r domain.AnswerReport) error {
	if err := s.deps.Backend.ReportAnswer(ctx, r); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			s.signOut(ctx)
		}
		return fmt.Errorf("report answer for card %d: %w", r.CardID, err)
	}
	return nil
}

func (s *Session) signOut(ctx context.Context) {
	s.mu.Lock()
	s.signOutLocked(ctx)
	s.unlock()
}

// signOutLocked stops the session and queues the auth failure handler.
func (s *Session) signOutLocked(ctx context.Context) {
	s.timer.Cancel()
	s.advanceGen++
	if s.state == StateSignedOut || s.state == StateClosed {
		return
	}
	s.state = StateSignedOut
	s.logger.WarnContext(ctx, "collaborator rejected credentials, signing out")
	if s.deps.Auth != nil {
		auth := s.deps.Auth
		s.pending = append(s.pending, func() {
			auth.HandleAuthFailure(context.WithoutCancel(ctx))
		})
	}
}

// unlock releases the mutex and then runs the side effects queued while it was held.
func (s *Session) unlock() {
	effects := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, fn := range effects {
		fn()
	}
}

func (s *Session) stateErrLocked() error {
	switch s.state {
	case StateIdle, StateBooting:
		return ErrNoActiveQuestion
	default:
		return s.terminalErrLocked()
	}
}

func (s *Session) summaryErrLocked() error {
	switch s.state {
	case StateClosed, StateSignedOut, StateBootError:
		return s.terminalErrLocked()
	default:
		return ErrSessionNotComplete
	}
}

func (s *Session) terminalErrLocked() error {
	switch s.state {
	case StateComplete:
		return ErrSessionComplete
	case StateSignedOut:
		return ErrSignedOut
	case StateBootError:
		return ErrBootFailed
	default:
		return ErrSessionClosed
	}
}

func cloneChoice(c *string) *string {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

func cloneSummary(s domain.Summary) domain.Summary {
	out := s
	out.Rows = append([]domain.SummaryRow(nil), s.Rows...)
	out.CarryOver = append([]int64(nil), s.CarryOver...)
	if out.Rows == nil {
		out.Rows = []domain.SummaryRow{}
	}
	if out.CarryOver == nil {
		out.CarryOver = []int64{}
	}
	return out
}
