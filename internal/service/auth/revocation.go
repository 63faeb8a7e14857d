package auth

import (
	"sync"
	"time"
)

// Revocations remembers tokens invalidated by a sign-out. A revoked user
// cutoff rejects every token of that user issued at or before the cutoff,
// which covers tokens the engine never saw.
type Revocations struct {
	mu        sync.Mutex
	tokens    map[string]time.Time // jti -> token expiry
	users     map[string]time.Time // user id -> cutoff
	retention time.Duration
	now       func() time.Time
}

// NewRevocations creates an empty list. User cutoffs are kept for retention,
// which should cover the longest token lifetime the issuer uses.
func NewRevocations(retention time.Duration) *Revocations {
	return &Revocations{
		tokens:    make(map[string]time.Time),
		users:     make(map[string]time.Time),
		retention: retention,
		now:       time.Now,
	}
}

// RevokeUser rejects every token of the user issued up to now, and the given
// token specifically when claims carry an id.
func (r *Revocations) RevokeUser(claims *Claims) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[claims.UserID] = r.now()
	if claims.ID != "" {
		r.tokens[claims.ID] = claims.ExpiresAt
	}
}

// IsRevoked reports whether the claims belong to a revoked token.
func (r *Revocations) IsRevoked(claims *Claims) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if claims.ID != "" {
		if _, ok := r.tokens[claims.ID]; ok {
			return true
		}
	}
	cutoff, ok := r.users[claims.UserID]
	return ok && !claims.IssuedAt.After(cutoff)
}

// Prune drops entries that can no longer match a valid token and returns how many were removed.
func (r *Revocations) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	removed := 0
	for id, exp := range r.tokens {
		if exp.Before(now) {
			delete(r.tokens, id)
			removed++
		}
	}
	for user, cutoff := range r.users {
		if now.Sub(cutoff) > r.retention {
			delete(r.users, user)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked entries.
func (r *Revocations) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens) + len(r.users)
}
