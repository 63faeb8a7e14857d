package study

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhohoai/study-engine/internal/domain"
)

func testParams() Params {
	p := NewDefaultParams()
	p.AutoNext = 150 * time.Millisecond
	p.Tick = 10 * time.Millisecond
	return p
}

func newBootstrap(cards []domain.Card, q domain.Queues) *domain.Bootstrap {
	return &domain.Bootstrap{SessionID: 77, DeckTitle: "Fruits", Cards: cards, Queues: q}
}

func newTestSession(t *testing.T, params Params, backend *fakeBackend, mutate ...func(*Deps)) *Session {
	t.Helper()
	deps := Deps{
		Backend:    backend,
		Dispatcher: inlineDispatcher{},
		Rand:       seededRand(),
		Logger:     discardLogger(),
	}
	for _, m := range mutate {
		m(&deps)
	}
	s, err := NewSession(5, params, deps)
	require.NoError(t, err)
	t.Cleanup(s.Teardown)
	return s
}

func currentQuestion(t *testing.T, s *Session) domain.Question {
	t.Helper()
	snap := s.Snapshot()
	require.NotNil(t, snap.Question, "state %s", snap.State)
	return *snap.Question
}

func answerCorrect(t *testing.T, s *Session) AnswerResult {
	t.Helper()
	q := currentQuestion(t, s)
	choice := q.Correct
	res, err := s.Submit(&choice)
	require.NoError(t, err)
	require.True(t, res.Correct)
	return res
}

func answerWrong(t *testing.T, s *Session) AnswerResult {
	t.Helper()
	res, err := s.Submit(nil)
	require.NoError(t, err)
	require.False(t, res.Correct)
	return res
}

func TestNewSession_RejectsBadInput(t *testing.T) {
	t.Parallel()

	bad := NewDefaultParams()
	bad.NumChoices = 1
	_, err := NewSession(1, bad, Deps{Backend: &fakeBackend{}})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = NewSession(1, NewDefaultParams(), Deps{})
	assert.Error(t, err)
}

func TestSession_StartPresentsFirstQuestion(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{bootstrap: newBootstrap(makeCards(idRange(1, 8)...), domain.Queues{
		Due: []int64{3}, New: []int64{1, 2},
	})}
	s := newTestSession(t, testParams(), backend)

	require.NoError(t, s.Start(context.Background(), []int64{4}))

	snap := s.Snapshot()
	assert.Equal(t, StatePresenting, snap.State)
	assert.Equal(t, int64(77), snap.RemoteSessionID)
	assert.Equal(t, "Fruits", snap.DeckTitle)
	assert.Equal(t, 10, snap.QuestionLimit)
	require.NotNil(t, snap.Question)
	assert.Equal(t, int64(3), snap.Question.CardID, "due cards come first")
	require.NoError(t, snap.Question.Validate(4))

	require.Len(t, backend.startRequests, 1)
	assert.Equal(t, domain.StartRequest{CarryOverCardIDs: []int64{4}, NewLimit: 6, QuestionLimit: 10}, backend.startRequests[0])

	assert.ErrorIs(t, s.Start(context.Background(), nil), ErrAlreadyStarted)
}

func TestSession_StartSendsEmptyCarryOver(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{bootstrap: newBootstrap(makeCards(1, 2), domain.Queues{New: []int64{1, 2}})}
	s := newTestSession(t, testParams(), backend)
	require.NoError(t, s.Start(context.Background(), nil))

	assert.NotNil(t, backend.startRequests[0].CarryOverCardIDs)
	assert.Empty(t, backend.startRequests[0].CarryOverCardIDs)
}

func TestSession_PolicyCapsQuestionLimit(t *testing.T) {
	t.Parallel()

	bs := newBootstrap(makeCards(idRange(1, 5)...), domain.Queues{New: idRange(1, 5)})
	bs.Policy = &domain.Policy{QuestionLimit: 3, NewLimit: 6}
	s := newTestSession(t, testParams(), &fakeBackend{bootstrap: bs})
	require.NoError(t, s.Start(context.Background(), nil))

	assert.Equal(t, 3, s.Snapshot().QuestionLimit)
}

func TestSession_BootErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		backend *fakeBackend
		want    error
		state   State
	}{
		{
			name:    "network failure",
			backend: &fakeBackend{startErr: errors.New("connection refused")},
			want:    ErrBootFailed,
			state:   StateBootError,
		},
		{
			name:    "empty deck",
			backend: &fakeBackend{bootstrap: newBootstrap(nil, domain.Queues{})},
			want:    ErrEmptyDeck,
			state:   StateBootError,
		},
		{
			name: "duplicate ids",
			backend: &fakeBackend{bootstrap: newBootstrap(
				append(makeCards(1), makeCards(1)...), domain.Queues{})},
			want:  ErrDuplicateCard,
			state: StateBootError,
		},
		{
			name:    "nil response",
			backend: &fakeBackend{},
			want:    ErrBootFailed,
			state:   StateBootError,
		},
		{
			name:    "rejected credentials",
			backend: &fakeBackend{startErr: domain.ErrUnauthorized},
			want:    ErrSignedOut,
			state:   StateSignedOut,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			auth := &authRecorder{}
			s := newTestSession(t, testParams(), tc.backend, func(d *Deps) { d.Auth = auth })

			err := s.Start(context.Background(), nil)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.state, s.State())

			if tc.state == StateSignedOut {
				assert.Equal(t, 1, auth.Calls())
			} else {
				assert.Equal(t, 0, auth.Calls())
				assert.NotEmpty(t, s.Snapshot().BootError)
			}

			_, err = s.Submit(nil)
			assert.Error(t, err)
		})
	}
}

func TestSession_TeardownDuringBoot(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{bootstrap: newBootstrap(makeCards(1, 2), domain.Queues{New: []int64{1, 2}})}
	var s *Session
	backend.onStart = func() { s.Teardown() }
	s = newTestSession(t, testParams(), backend)

	err := s.Start(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, StateClosed, s.State())
	assert.Nil(t, s.Snapshot().Question)
}

func TestSession_WrongAnswerWaitsForContinue(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{bootstrap: newBootstrap(makeCards(idRange(1, 6)...), domain.Queues{Due: idRange(1, 6)})}
	s := newTestSession(t, testParams(), backend)
	require.NoError(t, s.Start(context.Background(), nil))

	q := currentQuestion(t, s)
	res := answerWrong(t, s)
	assert.Equal(t, q.Correct, res.CorrectAnswer)
	assert.Equal(t, StateRevealedWrong, res.State)
	assert.Equal(t, 2, res.RetryWeight)

	snap := s.Snapshot()
	assert.True(t, snap.Revealed())
	assert.Equal(t, q.Meaning, snap.Question.Meaning)
	assert.Equal(t, q.Note, snap.Question.Note)
	assert.Equal(t, time.Duration(0), snap.Remaining, "no countdown after a wrong answer")

	time.Sleep(2 * testParams().AutoNext)
	assert.Equal(t, StateRevealedWrong, s.State())

	require.NoError(t, s.Continue())
	assert.Equal(t, StatePresenting, s.State())
	assert.ErrorIs(t, s.Continue(), ErrNotRevealed)

	reports := backend.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, domain.AnswerReport{SessionID: 77, CardID: q.CardID, Correct: false}, reports[0])
}

func TestSession_CorrectAnswerAutoAdvances(t *testing.T) {
	t.Parallel()

	var ticks atomic.Int32
	backend := &fakeBackend{bootstrap: newBootstrap(makeCards(idRange(1, 6)...), domain.Queues{Due: idRange(1, 6)})}
	s := newTestSession(t, testParams(), backend, func(d *Deps) {
		d.OnTick = func(time.Duration) { ticks.Add(1) }
	})
	require.NoError(t, s.Start(context.Background(), nil))

	first := currentQuestion(t, s)
	answerCorrect(t, s)

	snap := s.Snapshot()
	assert.Equal(t, StateRevealedCorrect, snap.State)
	assert.Equal(t, testParams().AutoNext, snap.Total)
	assert.Greater(t, snap.Remaining, time.Duration(0))

	require.Eventually(t, func() bool { return s.State() == StatePresenting }, time.Second, 5*time.Millisecond)
	assert.NotEqual(t, first.CardID, currentQuestion(t, s).CardID)
	assert.Greater(t, ticks.Load(), int32(0))
	assert.Equal(t, 1, s.Snapshot().AnsweredCount)
}

func TestSession_ContinueCancelsAutoAdvance(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{bootstrap: newBootstrap(makeCards(idRange(1, 6)...), domain.Queues{Due: idRange(1, 6)})}
	s := newTestSession(t, testParams(), backend)
	require.NoError(t, s.Start(context.Background(), nil))

	answerCorrect(t, s)
	require.NoError(t, s.Continue())
	second := currentQuestion(t, s)

	// the cancelled countdown must not skip the question just presented
	assert.Never(t, func() bool {
		snap := s.Snapshot()
		return snap.State != StatePresenting || snap.Question.CardID != second.CardID
	}, 3*testParams().AutoNext, 10*time.Millisecond)
}

func TestSession_SecondSubmissionIsRejected(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{bootstrap: newBootstrap(makeCards(idRange(1, 6)...), domain.Queues{Due: idRange(1, 6)})}
	s := newTestSession(t, testParams(), backend)
	require.NoError(t, s.Start(context.Background(), nil))

	q := currentQuestion(t, s)
	answerWrong(t, s)

	var retryBefore []int64
	s.SchedulerView(func(sc *Scheduler) { retryBefore = sc.Queue(QueueRetry) })
	correctBefore, wrongBefore := s.Counts()

	choice := q.Correct
	_, err := s.Submit(&choice)
	assert.ErrorIs(t, err, ErrAlreadyAnswered)

	var retryAfter []int64
	s.SchedulerView(func(sc *Scheduler) { retryAfter = sc.Queue(QueueRetry) })
	correctAfter, wrongAfter := s.Counts()

	assert.Equal(t, retryBefore, retryAfter)
	assert.Equal(t, correctBefore, correctAfter)
	assert.Equal(t, wrongBefore, wrongAfter)
	assert.Equal(t, 1, s.Snapshot().AnsweredCount)
	assert.Len(t, backend.Reports(), 1)
}

func TestSession_AnsweredNeverExceedsLimit(t *testing.T) {
	t.Parallel()

	var completions []Completion
	params := testParams()
	backend := &fakeBackend{bootstrap: newBootstrap(makeCards(idRange(1, 12)...), domain.Queues{
		Due: idRange(1, 2), Learning: idRange(3, 4), New: idRange(5, 12),
	})}
	s := newTestSession(t, params, backend, func(d *Deps) {
		d.OnComplete = func(_ context.Context, c Completion) error {
			completions = append(completions, c)
			return nil
		}
	})
	require.NoError(t, s.Start(context.Background(), nil))

	rng := seededRand()
	for i := 0; i < params.QuestionLimit; i++ {
		if rng.Intn(2) == 0 {
			answerWrong(t, s)
		} else {
			answerCorrect(t, s)
		}
		if s.State() != StateComplete {
			require.NoError(t, s.Continue())
		}
	}

	assert.Equal(t, StateComplete, s.State())
	_, err := s.Submit(nil)
	assert.ErrorIs(t, err, ErrSessionComplete)
	assert.ErrorIs(t, s.Continue(), ErrSessionComplete)

	snap := s.Snapshot()
	assert.Equal(t, params.QuestionLimit, snap.AnsweredCount)
	assert.Nil(t, snap.Question)
	assert.Len(t, backend.Reports(), params.QuestionLimit)

	require.Len(t, completions, 1)
	c := completions[0]
	assert.Equal(t, params.QuestionLimit, c.AnsweredCount)
	assert.Equal(t, params.QuestionLimit, c.CorrectCount+c.WrongCount)
	assert.Equal(t, s.ID(), c.SessionID)
	assert.Equal(t, int64(77), c.RemoteSessionID)
}

func TestSession_CompletesWhenCardsExhausted(t *testing.T) {
	t.Parallel()

	params := testParams()
	params.MaxAppearPerCard = 2
	backend := &fakeBackend{bootstrap: newBootstrap(makeCards(1, 2), domain.Queues{New: []int64{1, 2}})}
	s := newTestSession(t, params, backend)
	require.NoError(t, s.Start(context.Background(), nil))

	answered := 0
	for s.State() != StateComplete {
		answerWrong(t, s)
		answered++
		if s.State() != StateComplete {
			require.NoError(t, s.Continue())
		}
		require.LessOrEqual(t, answered, 4)
	}

	assert.Equal(t, 4, answered)
	sum, err := s.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, sum.Rows, 2)
	for _, r := range sum.Rows {
		assert.Equal(t, 2, r.WrongCount)
		assert.True(t, r.Hard)
	}
}

func TestSession_FailedCardWeightedAndHard(t *testing.T) {
	t.Parallel()

	params := testParams()
	params.QuestionLimit = 6
	backend := &fakeBackend{bootstrap: newBootstrap(makeCards(7, 8, 9), domain.Queues{Due: []int64{8, 7, 9}})}
	s := newTestSession(t, params, backend)
	require.NoError(t, s.Start(context.Background(), nil))

	expect := func(id int64) {
		t.Helper()
		require.Equal(t, id, currentQuestion(t, s).CardID)
	}

	expect(8)
	answerCorrect(t, s)
	require.NoError(t, s.Continue())

	expect(7)
	answerWrong(t, s)
	require.NoError(t, s.Continue())

	expect(9)
	answerCorrect(t, s)
	require.NoError(t, s.Continue())

	expect(8)
	answerCorrect(t, s)
	require.NoError(t, s.Continue())

	expect(7)
	res := answerWrong(t, s)
	assert.Equal(t, MaxRetryWeight, res.RetryWeight)
	require.NoError(t, s.Continue())

	s.SchedulerView(func(sc *Scheduler) {
		assert.Equal(t, []int64{7, 7, 7}, sc.Queue(QueueRetry))
		assert.Equal(t, 3, sc.RetryWeight(7))
	})

	answerCorrect(t, s)
	require.Equal(t, StateComplete, s.State())

	sum, err := s.Summary(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, sum.Rows)
	assert.Equal(t, int64(7), sum.Rows[0].CardID)
	assert.True(t, sum.Rows[0].Hard)
	assert.Equal(t, 2, sum.Rows[0].WrongCount)
	assert.Equal(t, []int64{7}, sum.CarryOver)
}

func TestSession_TeardownCancelsPendingAdvance(t *testing.T) {
	t.Parallel()

	params := testParams()
	params.AutoNext = 200 * time.Millisecond
	backend := &fakeBackend{bootstrap: newBootstrap(makeCards(idRange(1, 10)...), domain.Queues{
		Due: idRange(1, 4), New: idRange(5, 10),
	})}
	s := newTestSession(t, params, backend)
	require.NoError(t, s.Start(context.Background(), nil))

	for i := 0; i < 8; i++ {
		answerCorrect(t, s)
		require.NoError(t, s.Continue())
	}
	ninth := currentQuestion(t, s)
	answerCorrect(t, s)
	require.Equal(t, StateRevealedCorrect, s.State())

	time.Sleep(params.AutoNext / 2)
	s.Teardown()
	s.Teardown()

	assert.Never(t, func() bool {
		snap := s.Snapshot()
		return snap.State != StateClosed || snap.AnsweredCount != 9 || snap.Question != nil
	}, 2*params.AutoNext, 10*time.Millisecond)
	assert.Equal(t, ninth.CardID, s.Snapshot().LastAnswer.CardID)

	_, err := s.Submit(nil)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_TelemetryFailureDoesNotAffectState(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		bootstrap: newBootstrap(makeCards(idRange(1, 6)...), domain.Queues{Due: idRange(1, 6)}),
		reportErr: errors.New("503 service unavailable"),
	}
	auth := &authRecorder{}
	s := newTestSession(t, testParams(), backend, func(d *Deps) { d.Auth = auth })
	require.NoError(t, s.Start(context.Background(), nil))

	answerWrong(t, s)
	assert.Equal(t, StateRevealedWrong, s.State())
	assert.Equal(t, 0, auth.Calls())
	_, wrong := s.Counts()
	assert.Len(t, wrong, 1)
}

func TestSession_TelemetryAuthFailureSignsOut(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		bootstrap: newBootstrap(makeCards(idRange(1, 6)...), domain.Queues{Due: idRange(1, 6)}),
		reportErr: domain.ErrUnauthorized,
	}
	auth := &authRecorder{}
	s := newTestSession(t, testParams(), backend, func(d *Deps) { d.Auth = auth })
	require.NoError(t, s.Start(context.Background(), nil))

	answerCorrect(t, s)

	snap := s.Snapshot()
	assert.Equal(t, StateSignedOut, snap.State)
	assert.Equal(t, time.Duration(0), snap.Remaining, "pending countdown is cancelled")
	assert.Equal(t, 1, auth.Calls())
	assert.ErrorIs(t, s.Continue(), ErrSignedOut)

	s.Teardown()
	assert.Equal(t, StateSignedOut, s.State())
}

func TestSession_SummaryBeforeCompletion(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{bootstrap: newBootstrap(makeCards(1, 2), domain.Queues{New: []int64{1, 2}})}
	s := newTestSession(t, testParams(), backend)
	require.NoError(t, s.Start(context.Background(), nil))

	_, err := s.Summary(context.Background())
	assert.ErrorIs(t, err, ErrSessionNotComplete)

	s.Teardown()
	_, err = s.Summary(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func finishOneQuestionSession(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.Start(context.Background(), nil))
	answerWrong(t, s)
	require.Equal(t, StateComplete, s.State())
}

func TestSession_RemoteSummary(t *testing.T) {
	t.Parallel()

	params := testParams()
	params.QuestionLimit = 1
	params.RemoteSummary = true

	remote := &domain.Summary{
		Rows:      []domain.SummaryRow{{CardID: 1, Term: "term-1", WrongCount: 5, Hard: true}},
		CarryOver: []int64{1, 2, 3, 4, 5, 6},
	}

	t.Run("remote supersedes local", func(t *testing.T) {
		t.Parallel()
		backend := &fakeBackend{
			bootstrap: newBootstrap(makeCards(1, 2), domain.Queues{New: []int64{1, 2}}),
			summary:   remote,
		}
		s := newTestSession(t, params, backend)
		finishOneQuestionSession(t, s)

		sum, err := s.Summary(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.SummarySourceRemote, sum.Source)
		assert.Equal(t, 5, sum.Rows[0].WrongCount)
		assert.Len(t, sum.CarryOver, CarryOverSize)

		_, err = s.Summary(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, backend.summaryCalls, "remote summary is fetched once")
	})

	t.Run("fetch failure falls back to local", func(t *testing.T) {
		t.Parallel()
		backend := &fakeBackend{
			bootstrap:  newBootstrap(makeCards(1, 2), domain.Queues{New: []int64{1, 2}}),
			summaryErr: errors.New("timeout"),
		}
		s := newTestSession(t, params, backend)
		finishOneQuestionSession(t, s)

		sum, err := s.Summary(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.SummarySourceLocal, sum.Source)
		require.Len(t, sum.Rows, 1)
		assert.Equal(t, 1, sum.Rows[0].WrongCount)
	})

	t.Run("auth failure signs out", func(t *testing.T) {
		t.Parallel()
		auth := &authRecorder{}
		backend := &fakeBackend{
			bootstrap:  newBootstrap(makeCards(1, 2), domain.Queues{New: []int64{1, 2}}),
			summaryErr: domain.ErrUnauthorized,
		}
		s := newTestSession(t, params, backend, func(d *Deps) { d.Auth = auth })
		finishOneQuestionSession(t, s)

		_, err := s.Summary(context.Background())
		assert.ErrorIs(t, err, ErrSignedOut)
		assert.Equal(t, StateSignedOut, s.State())
		assert.Equal(t, 1, auth.Calls())
	})

	t.Run("disabled uses local only", func(t *testing.T) {
		t.Parallel()
		local := params
		local.RemoteSummary = false
		backend := &fakeBackend{
			bootstrap: newBootstrap(makeCards(1, 2), domain.Queues{New: []int64{1, 2}}),
			summary:   remote,
		}
		s := newTestSession(t, local, backend)
		finishOneQuestionSession(t, s)

		sum, err := s.Summary(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.SummarySourceLocal, sum.Source)
		assert.Equal(t, 0, backend.summaryCalls)
	})
}
