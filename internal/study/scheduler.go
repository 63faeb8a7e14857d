package study

import (
	"math/rand"

	"github.com/nhohoai/study-engine/internal/domain"
)

// QueueName identifies one of the scheduling tiers.
type QueueName string

// Scheduling tiers in priority order.
const (
	QueueDue      QueueName = "due"
	QueueLearning QueueName = "learning"
	QueueNew      QueueName = "new"
	QueueRetry    QueueName = "retry"
)

// priority is the fixed order in which queues are consulted.
var priority = []QueueName{QueueDue, QueueLearning, QueueNew, QueueRetry}

// retryEvery makes every n-th question try the retry queue first.
const retryEvery = 3

// Scheduler owns the session's queues and the per-card appearance ledger and
// selects the next card to present.
type Scheduler struct {
	params Params
	pool   *CardPool
	rng    *rand.Rand

	queues   map[QueueName][]int64
	newLater []int64
	// sessionIDs is the union of ids seeded at bootstrap; fallback draws come from it.
	sessionIDs []int64

	seq         int
	seenCount   map[int64]int
	lastSeenAt  map[int64]int
	retryWeight map[int64]int
}

// NewScheduler creates an empty scheduler over pool.
func NewScheduler(params Params, pool *CardPool, rng *rand.Rand) *Scheduler {
	return &Scheduler{
		params:      params,
		pool:        pool,
		rng:         rng,
		queues:      make(map[QueueName][]int64, len(priority)),
		seenCount:   make(map[int64]int),
		lastSeenAt:  make(map[int64]int),
		retryWeight: make(map[int64]int),
	}
}

// Seed fills the queues from the collaborator's bootstrap queues.
//
// Ids unknown to the pool are dropped and every id lands in at most one queue
// (due before learning before new). Carry-over ids not already due go to the
// front of learning. New ids beyond NewLimit are set aside. When fewer than
// OldTarget already-studied cards are queued, the shortfall is borrowed into
// learning from a shuffled pool of the remaining old cards.
func (s *Scheduler) Seed(q domain.Queues, carryOver []int64) {
	assigned := make(map[int64]struct{})
	take := func(ids []int64) []int64 {
		out := make([]int64, 0, len(ids))
		for _, id := range ids {
			if !s.pool.Has(id) {
				continue
			}
			if _, ok := assigned[id]; ok {
				continue
			}
			assigned[id] = struct{}{}
			out = append(out, id)
		}
		return out
	}

	due := take(q.Due)
	learning := take(carryOver)
	learning = append(learning, take(q.Learning)...)
	fresh := take(q.New)
	if len(fresh) > s.params.NewLimit {
		s.newLater = append(s.newLater, fresh[s.params.NewLimit:]...)
		fresh = fresh[:s.params.NewLimit]
	}
	s.newLater = append(s.newLater, take(q.NewLater)...)

	if need := s.params.OldTarget - (len(due) + len(learning)); need > 0 {
		var old []int64
		for _, id := range s.pool.IDs() {
			if _, ok := assigned[id]; !ok {
				old = append(old, id)
			}
		}
		s.rng.Shuffle(len(old), func(i, j int) { old[i], old[j] = old[j], old[i] })
		if need > len(old) {
			need = len(old)
		}
		learning = append(learning, take(old[:need])...)
	}

	s.queues[QueueDue] = due
	s.queues[QueueLearning] = learning
	s.queues[QueueNew] = fresh
	s.queues[QueueRetry] = nil

	s.sessionIDs = make([]int64, 0, len(due)+len(learning)+len(fresh))
	s.sessionIDs = append(s.sessionIDs, due...)
	s.sessionIDs = append(s.sessionIDs, learning...)
	s.sessionIDs = append(s.sessionIDs, fresh...)
}

// SelectNext picks the next card id and records its presentation.
// It returns false only when every session card has reached the appearance cap.
func (s *Scheduler) SelectNext() (int64, bool) {
	s.seq++

	if len(s.queues[QueueRetry]) > 0 && s.seq%retryEvery == 0 {
		if id, ok := s.pull(QueueRetry); ok {
			return s.present(id), true
		}
	}

	for _, name := range priority {
		if id, ok := s.pull(name); ok {
			return s.present(id), true
		}
	}

	if id, ok := s.fallback(); ok {
		return s.present(id), true
	}
	return 0, false
}

// Requeue inserts a failed card into the retry queue with weight
// min(1+wrongCount, MaxRetryWeight) and returns the weight applied. Cards at
// the appearance cap are not re-queued and yield 0.
func (s *Scheduler) Requeue(id int64, wrongCount int) int {
	if s.seenCount[id] >= s.params.MaxAppearPerCard {
		return 0
	}

	weight := 1 + wrongCount
	if weight > MaxRetryWeight {
		weight = MaxRetryWeight
	}

	s.remove(id)
	for i := 0; i < weight; i++ {
		s.queues[QueueRetry] = append(s.queues[QueueRetry], id)
	}
	s.retryWeight[id] = weight
	return weight
}

// Queue returns a copy of the named queue.
func (s *Scheduler) Queue(name QueueName) []int64 {
	q := s.queues[name]
	out := make([]int64, len(q))
	copy(out, q)
	return out
}

// NewLater returns the new ids set aside for later sessions.
func (s *Scheduler) NewLater() []int64 {
	out := make([]int64, len(s.newLater))
	copy(out, s.newLater)
	return out
}

// SessionIDs returns the ids seeded into the session.
func (s *Scheduler) SessionIDs() []int64 {
	out := make([]int64, len(s.sessionIDs))
	copy(out, s.sessionIDs)
	return out
}

// SeenCount is the number of presentations of id so far.
func (s *Scheduler) SeenCount(id int64) int { return s.seenCount[id] }

// LastSeenAt is the sequence index of the last presentation of id, 0 if never shown.
func (s *Scheduler) LastSeenAt(id int64) int { return s.lastSeenAt[id] }

// RetryWeight is the weight applied by the most recent Requeue of id.
func (s *Scheduler) RetryWeight(id int64) int { return s.retryWeight[id] }

// Sequence is the number of selections made so far.
func (s *Scheduler) Sequence() int { return s.seq }

// pull pops candidates from the front of the named queue until one is eligible.
// Candidates at the appearance cap are dropped; candidates shown too recently
// rotate to the back. Each candidate is examined at most once per call.
func (s *Scheduler) pull(name QueueName) (int64, bool) {
	q := s.queues[name]
	for n := len(q); n > 0; n-- {
		id := q[0]
		q = q[1:]
		switch {
		case s.seenCount[id] >= s.params.MaxAppearPerCard:
		case !s.gapOK(id):
			q = append(q, id)
		default:
			s.queues[name] = q
			return id, true
		}
	}
	s.queues[name] = q
	return 0, false
}

// fallback draws from the session pool once every queue is exhausted, so a
// session can still reach its question limit by repeating cards. If the gap
// rule leaves no candidate, the least recently shown card under the cap is used.
func (s *Scheduler) fallback() (int64, bool) {
	var eligible []int64
	var best int64
	bestFound := false
	seen := make(map[int64]struct{}, len(s.sessionIDs))

	for _, id := range s.sessionIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if s.seenCount[id] >= s.params.MaxAppearPerCard {
			continue
		}
		if s.gapOK(id) {
			eligible = append(eligible, id)
			continue
		}
		if !bestFound || s.lastSeenAt[id] < s.lastSeenAt[best] {
			best, bestFound = id, true
		}
	}

	if len(eligible) > 0 {
		return eligible[s.rng.Intn(len(eligible))], true
	}
	return best, bestFound
}

// gapOK reports whether at least MinGap other questions were shown since id's last presentation.
func (s *Scheduler) gapOK(id int64) bool {
	if s.seenCount[id] == 0 {
		return true
	}
	return s.seq-s.lastSeenAt[id]-1 >= s.params.MinGap
}

func (s *Scheduler) present(id int64) int64 {
	s.seenCount[id]++
	s.lastSeenAt[id] = s.seq
	return id
}

// remove deletes every occurrence of id from all queues.
func (s *Scheduler) remove(id int64) {
	for _, name := range priority {
		q := s.queues[name]
		kept := q[:0]
		for _, v := range q {
			if v != id {
				kept = append(kept, v)
			}
		}
		s.queues[name] = kept
	}
}
