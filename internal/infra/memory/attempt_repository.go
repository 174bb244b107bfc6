package memory

import (
	"context"
	"sync"

	"moneyrank-service/internal/domain"
)

// AttemptRepository keeps all attempts in memory, indexed so the current
// best for a (user, challenge) pair is an O(1) lookup.
type AttemptRepository struct {
	mu       sync.RWMutex
	attempts map[string]*domain.Attempt
	best     map[pairKey]string // attempt ID of the current best
}

type pairKey struct {
	userID      string
	challengeID string
}

func NewAttemptRepository() *AttemptRepository {
	return &AttemptRepository{
		attempts: make(map[string]*domain.Attempt),
		best:     make(map[pairKey]string),
	}
}

func (r *AttemptRepository) BestAttempt(_ context.Context, userID, challengeID string) (*domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.best[pairKey{userID, challengeID}]
	if !ok {
		return nil, nil
	}
	clone := *r.attempts[id]
	clone.Ranking = append([]string(nil), clone.Ranking...)
	return &clone, nil
}

func (r *AttemptRepository) Save(_ context.Context, attempt domain.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := attempt
	stored.Ranking = append([]string(nil), attempt.Ranking...)
	r.attempts[attempt.ID] = &stored
	if attempt.IsBest {
		r.best[pairKey{attempt.UserID, attempt.ChallengeID}] = attempt.ID
	}
	return nil
}

// ReplaceBest demotes the superseded attempt and stores the new best under
// one lock hold, so readers never observe a pair with zero or two flagged
// rows.
func (r *AttemptRepository) ReplaceBest(_ context.Context, supersededID string, attempt domain.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.attempts[supersededID]; ok {
		old.IsBest = false
	}
	stored := attempt
	stored.Ranking = append([]string(nil), attempt.Ranking...)
	r.attempts[attempt.ID] = &stored
	if attempt.IsBest {
		r.best[pairKey{attempt.UserID, attempt.ChallengeID}] = attempt.ID
	}
	return nil
}

// AttemptsFor returns every stored attempt for a pair, test helper for
// invariant checks.
func (r *AttemptRepository) AttemptsFor(userID, challengeID string) []domain.Attempt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Attempt
	for _, attempt := range r.attempts {
		if attempt.UserID == userID && attempt.ChallengeID == challengeID {
			out = append(out, *attempt)
		}
	}
	return out
}
