package study

import (
	"math/rand"

	"github.com/nhohoai/study-engine/internal/domain"
)

// Placeholder pads the choices of decks too small to supply enough distractors.
const Placeholder = "—"

// altPlaceholder is used instead when the correct answer itself equals Placeholder.
const altPlaceholder = "(—)"

// QuestionBuilder turns cards into multiple-choice questions.
type QuestionBuilder struct {
	pool       *CardPool
	numChoices int
	rng        *rand.Rand
}

// NewQuestionBuilder creates a builder drawing distractors from pool.
func NewQuestionBuilder(pool *CardPool, numChoices int, rng *rand.Rand) *QuestionBuilder {
	return &QuestionBuilder{pool: pool, numChoices: numChoices, rng: rng}
}

// Build creates a question for card with a uniformly random mode.
func (b *QuestionBuilder) Build(card domain.Card) domain.Question {
	mode := domain.ModeTermToMeaning
	if b.rng.Intn(2) == 1 {
		mode = domain.ModeMeaningToTerm
	}
	return b.BuildWithMode(card, mode)
}

// BuildWithMode creates a question for card in the given mode.
//
// Distractors are sampled without replacement from the opposite field of every
// pool card (deduplicated, blanks and the correct answer removed). When the
// deck cannot supply NumChoices-1 of them the rest are Placeholder entries.
func (b *QuestionBuilder) BuildWithMode(card domain.Card, mode domain.QuestionMode) domain.Question {
	prompt, correct := card.Term, card.Meaning
	if mode == domain.ModeMeaningToTerm {
		prompt, correct = card.Meaning, card.Term
	}

	candidates := b.distractorPool(mode, correct)
	b.shuffle(candidates)

	want := b.numChoices - 1
	if len(candidates) > want {
		candidates = candidates[:want]
	}

	pad := Placeholder
	if correct == Placeholder {
		pad = altPlaceholder
	}
	choices := make([]string, 0, b.numChoices)
	choices = append(choices, correct)
	choices = append(choices, candidates...)
	for len(choices) < b.numChoices {
		choices = append(choices, pad)
	}
	b.shuffle(choices)

	return domain.Question{
		CardID:  card.ID,
		Prompt:  prompt,
		Correct: correct,
		Choices: choices,
		Mode:    mode,
		Meaning: card.Meaning,
		Note:    card.Note,
	}
}

// distractorPool collects the unique, non-empty answers of the opposite field, minus correct.
func (b *QuestionBuilder) distractorPool(mode domain.QuestionMode, correct string) []string {
	seen := make(map[string]struct{}, b.pool.Len())
	out := make([]string, 0, b.pool.Len())
	for _, c := range b.pool.cards {
		v := c.Meaning
		if mode == domain.ModeMeaningToTerm {
			v = c.Term
		}
		if v == "" || v == correct {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// shuffle is a Fisher-Yates permutation driven by the builder's source.
func (b *QuestionBuilder) shuffle(s []string) {
	b.rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}
