package study

import (
	"fmt"

	"github.com/nhohoai/study-engine/internal/domain"
)

// CardPool is the immutable per-session snapshot of a deck's cards, indexed by id.
type CardPool struct {
	cards   []domain.Card
	byID    map[int64]domain.Card
	skipped []int64
}

// LoadPool indexes cards. A missing or duplicate id fails the load; cards with
// a blank term or meaning are left out of the pool so they can never be asked
// or offered as a distractor. The load fails with ErrEmptyDeck when nothing usable remains.
func LoadPool(cards []domain.Card) (*CardPool, error) {
	p := &CardPool{
		cards: make([]domain.Card, 0, len(cards)),
		byID:  make(map[int64]domain.Card, len(cards)),
	}
	seen := make(map[int64]struct{}, len(cards))

	for i, raw := range cards {
		c := raw.Normalized()
		if c.ID <= 0 {
			return nil, fmt.Errorf("%w: card at index %d has no id", ErrInvalidCard, i)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("%w: id %d", ErrDuplicateCard, c.ID)
		}
		seen[c.ID] = struct{}{}

		if err := c.Validate(); err != nil {
			p.skipped = append(p.skipped, c.ID)
			continue
		}
		p.cards = append(p.cards, c)
		p.byID[c.ID] = c
	}

	if len(p.cards) == 0 {
		return nil, ErrEmptyDeck
	}
	return p, nil
}

// Get returns the card with the given id.
func (p *CardPool) Get(id int64) (domain.Card, bool) {
	c, ok := p.byID[id]
	return c, ok
}

// Has reports whether id is part of the pool.
func (p *CardPool) Has(id int64) bool {
	_, ok := p.byID[id]
	return ok
}

// Len is the number of usable cards.
func (p *CardPool) Len() int { return len(p.cards) }

// Cards returns the cards in bootstrap order.
func (p *CardPool) Cards() []domain.Card {
	out := make([]domain.Card, len(p.cards))
	copy(out, p.cards)
	return out
}

// IDs returns the card ids in bootstrap order.
func (p *CardPool) IDs() []int64 {
	out := make([]int64, len(p.cards))
	for i, c := range p.cards {
		out[i] = c.ID
	}
	return out
}

// Skipped lists ids left out at load because a field was blank.
func (p *CardPool) Skipped() []int64 {
	out := make([]int64, len(p.skipped))
	copy(out, p.skipped)
	return out
}
