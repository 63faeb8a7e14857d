package study

import (
	"sort"

	"github.com/nhohoai/study-engine/internal/domain"
)

// BuildSummary tallies every card that received at least one answer and
// returns the rows in display order together with the carry-over ids.
func BuildSummary(pool *CardPool, correct, wrong map[int64]int) domain.Summary {
	ids := make(map[int64]struct{}, len(correct)+len(wrong))
	for id := range correct {
		ids[id] = struct{}{}
	}
	for id := range wrong {
		ids[id] = struct{}{}
	}

	rows := make([]domain.SummaryRow, 0, len(ids))
	for id := range ids {
		card, ok := pool.Get(id)
		if !ok {
			continue
		}
		rows = append(rows, domain.NewSummaryRow(card, correct[id], wrong[id]))
	}
	SortRows(rows)

	return domain.Summary{
		Rows:      rows,
		CarryOver: CarryOver(rows),
		Source:    domain.SummarySourceLocal,
	}
}

// SortRows orders rows for display: hard first, then more wrong answers,
// then term, then card id.
func SortRows(rows []domain.SummaryRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Hard != b.Hard {
			return a.Hard
		}
		if a.WrongCount != b.WrongCount {
			return a.WrongCount > b.WrongCount
		}
		if a.Term != b.Term {
			return a.Term < b.Term
		}
		return a.CardID < b.CardID
	})
}

// CarryOver picks up to CarryOverSize ids with at least one wrong answer,
// most wrong first. rows keep their incoming order on ties.
func CarryOver(rows []domain.SummaryRow) []int64 {
	ranked := make([]domain.SummaryRow, 0, len(rows))
	for _, r := range rows {
		if r.WrongCount > 0 {
			ranked = append(ranked, r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].WrongCount > ranked[j].WrongCount
	})

	if len(ranked) > CarryOverSize {
		ranked = ranked[:CarryOverSize]
	}
	ids := make([]int64, len(ranked))
	for i, r := range ranked {
		ids[i] = r.CardID
	}
	return ids
}
