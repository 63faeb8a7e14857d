package study

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhohoai/study-engine/internal/domain"
)

func countOf(choices []string, v string) int {
	n := 0
	for _, c := range choices {
		if c == v {
			n++
		}
	}
	return n
}

func TestBuildWithMode_Fields(t *testing.T) {
	t.Parallel()

	pool := mustPool(makeCards(idRange(1, 8)...))
	b := NewQuestionBuilder(pool, 4, seededRand())
	card, _ := pool.Get(3)

	q := b.BuildWithMode(card, domain.ModeTermToMeaning)
	assert.Equal(t, int64(3), q.CardID)
	assert.Equal(t, "term-3", q.Prompt)
	assert.Equal(t, "meaning-3", q.Correct)
	assert.Equal(t, "meaning-3", q.Meaning)
	assert.Equal(t, "note-3", q.Note)
	require.NoError(t, q.Validate(4))
	for _, c := range q.Choices {
		assert.Contains(t, c, "meaning-", "distractors come from the opposite field")
	}

	q = b.BuildWithMode(card, domain.ModeMeaningToTerm)
	assert.Equal(t, "meaning-3", q.Prompt)
	assert.Equal(t, "term-3", q.Correct)
	require.NoError(t, q.Validate(4))
	for _, c := range q.Choices {
		assert.Contains(t, c, "term-")
	}
}

func TestBuild_ThreeCardDeckPadsWithPlaceholder(t *testing.T) {
	t.Parallel()

	pool := mustPool(makeCards(1, 2, 3))
	b := NewQuestionBuilder(pool, 4, seededRand())

	for _, mode := range []domain.QuestionMode{domain.ModeTermToMeaning, domain.ModeMeaningToTerm} {
		card, _ := pool.Get(2)
		q := b.BuildWithMode(card, mode)
		assert.Len(t, q.Choices, 4)
		assert.Equal(t, 4-pool.Len(), countOf(q.Choices, Placeholder))
		assert.Equal(t, 1, countOf(q.Choices, q.Correct))
	}
}

func TestBuild_SingleCardDeck(t *testing.T) {
	t.Parallel()

	pool := mustPool(makeCards(1))
	b := NewQuestionBuilder(pool, 4, seededRand())
	card, _ := pool.Get(1)

	q := b.Build(card)
	assert.Len(t, q.Choices, 4)
	assert.Equal(t, 3, countOf(q.Choices, Placeholder))
	assert.Equal(t, 1, countOf(q.Choices, q.Correct))
}

func TestBuild_DeduplicatesDistractors(t *testing.T) {
	t.Parallel()

	pool := mustPool([]domain.Card{
		{ID: 1, Term: "big", Meaning: "lớn"},
		{ID: 2, Term: "large", Meaning: "lớn"},
		{ID: 3, Term: "huge", Meaning: "lớn"},
		{ID: 4, Term: "small", Meaning: "nhỏ"},
	})
	b := NewQuestionBuilder(pool, 4, seededRand())
	card, _ := pool.Get(4)

	q := b.BuildWithMode(card, domain.ModeTermToMeaning)
	assert.ElementsMatch(t, []string{"nhỏ", "lớn", Placeholder, Placeholder}, q.Choices)

	// the correct answer is never offered twice, even when other cards share it
	card, _ = pool.Get(1)
	q = b.BuildWithMode(card, domain.ModeTermToMeaning)
	assert.ElementsMatch(t, []string{"lớn", "nhỏ", Placeholder, Placeholder}, q.Choices)
}

func TestBuild_CorrectAnswerEqualToPlaceholder(t *testing.T) {
	t.Parallel()

	pool := mustPool([]domain.Card{{ID: 1, Term: "dash", Meaning: Placeholder}})
	b := NewQuestionBuilder(pool, 4, seededRand())
	card, _ := pool.Get(1)

	q := b.BuildWithMode(card, domain.ModeTermToMeaning)
	assert.Equal(t, 1, countOf(q.Choices, Placeholder))
	require.NoError(t, q.Validate(4))
}

func TestBuild_ShapeHoldsAcrossDecks(t *testing.T) {
	t.Parallel()

	for size := 1; size <= 12; size++ {
		pool := mustPool(makeCards(idRange(1, int64(size))...))
		for _, n := range []int{2, 4, 6} {
			b := NewQuestionBuilder(pool, n, seededRand())
			for _, card := range pool.Cards() {
				q := b.Build(card)
				require.NoError(t, q.Validate(n), "deck size %d, %d choices", size, n)
			}
		}
	}
}

func TestBuild_ChoosesBothModes(t *testing.T) {
	t.Parallel()

	pool := mustPool(makeCards(idRange(1, 5)...))
	b := NewQuestionBuilder(pool, 4, seededRand())
	card, _ := pool.Get(1)

	modes := map[domain.QuestionMode]int{}
	for i := 0; i < 200; i++ {
		modes[b.Build(card).Mode]++
	}
	assert.Greater(t, modes[domain.ModeTermToMeaning], 50)
	assert.Greater(t, modes[domain.ModeMeaningToTerm], 50)
}

func TestBuild_CorrectPositionVaries(t *testing.T) {
	t.Parallel()

	pool := mustPool(makeCards(idRange(1, 10)...))
	b := NewQuestionBuilder(pool, 4, seededRand())
	card, _ := pool.Get(1)

	positions := map[int]int{}
	for i := 0; i < 400; i++ {
		q := b.BuildWithMode(card, domain.ModeTermToMeaning)
		for pos, c := range q.Choices {
			if c == q.Correct {
				positions[pos]++
			}
		}
	}
	for pos := 0; pos < 4; pos++ {
		assert.Greater(t, positions[pos], 50, "position %d", pos)
	}
}
