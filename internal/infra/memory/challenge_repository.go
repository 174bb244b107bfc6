package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"moneyrank-service/internal/domain"
)

// ChallengeLoader fetches challenge content from a backing store (e.g., the
// relational DB holding the authored challenges).
type ChallengeLoader interface {
	LoadChallenge(ctx context.Context, challengeID string) (domain.Challenge, error)
}

// ChallengeRepository caches challenges with TTL to avoid repeated DB hits.
type ChallengeRepository struct {
	loader ChallengeLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedChallenge
}

type cachedChallenge struct {
	challenge domain.Challenge
	expiresAt time.Time
}

func NewChallengeRepository(loader ChallengeLoader, ttl time.Duration) *ChallengeRepository {
	return &ChallengeRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedChallenge),
	}
}

func (r *ChallengeRepository) GetChallenge(ctx context.Context, challengeID string) (domain.Challenge, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[challengeID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.challenge, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(challengeID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[challengeID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.challenge, nil
		}
		r.mu.RUnlock()

		challenge, err := r.loader.LoadChallenge(ctx, challengeID)
		if err != nil {
			return domain.Challenge{}, err
		}

		r.mu.Lock()
		r.cache[challengeID] = cachedChallenge{
			challenge: challenge,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return challenge, nil
	})
	if err != nil {
		return domain.Challenge{}, err
	}
	return result.(domain.Challenge), nil
}

func (r *ChallengeRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticChallengeLoader is a simple loader backed by an in-memory map
// (useful for tests/demos).
type StaticChallengeLoader struct {
	challenges map[string]domain.Challenge
}

func NewStaticChallengeLoader(challenges map[string]domain.Challenge) *StaticChallengeLoader {
	return &StaticChallengeLoader{challenges: challenges}
}

func (l *StaticChallengeLoader) LoadChallenge(_ context.Context, challengeID string) (domain.Challenge, error) {
	if challenge, ok := l.challenges[challengeID]; ok {
		return challenge, nil
	}
	return domain.Challenge{}, domain.ErrChallengeNotFound
}
