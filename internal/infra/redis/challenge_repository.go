package redis

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"moneyrank-service/internal/domain"
)

// ChallengeLoader fetches challenge content from a backing store (e.g., the
// relational DB holding the authored challenges).
type ChallengeLoader interface {
	LoadChallenge(ctx context.Context, challengeID string) (domain.Challenge, error)
}

// ChallengeRepository caches the ordering of each challenge in Redis (hash
// per challenge) and falls back to a loader on cache miss.
// The ordering is stored as: HSET challenge:{id}:order {optionID} {orderingIndex}
// which is the lightweight form scoring and validation need.
type ChallengeRepository struct {
	client *redis.Client
	loader ChallengeLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewChallengeRepository(client *redis.Client, loader ChallengeLoader, ttl time.Duration) *ChallengeRepository {
	return &ChallengeRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ChallengeRepository) GetChallenge(ctx context.Context, challengeID string) (domain.Challenge, error) {
	orderKey := r.orderKey(challengeID)

	order, err := r.client.HGetAll(ctx, orderKey).Result()
	if err == nil && len(order) > 0 {
		return buildChallengeFromCache(challengeID, order), nil
	}

	result, err, _ := r.sf.Do(challengeID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		order, err := r.client.HGetAll(ctx, orderKey).Result()
		if err == nil && len(order) > 0 {
			return buildChallengeFromCache(challengeID, order), nil
		}

		challenge, err := r.loader.LoadChallenge(ctx, challengeID)
		if err != nil {
			return domain.Challenge{}, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		for _, opt := range challenge.Options {
			pipe.HSet(ctx, orderKey, opt.ID, opt.OrderingIndex)
		}
		if ttl > 0 {
			pipe.Expire(ctx, orderKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return challenge, nil
	})
	if err != nil {
		return domain.Challenge{}, err
	}
	return result.(domain.Challenge), nil
}

func (r *ChallengeRepository) orderKey(challengeID string) string {
	return "challenge:" + challengeID + ":order"
}

func buildChallengeFromCache(challengeID string, order map[string]string) domain.Challenge {
	options := make([]domain.ChallengeOption, 0, len(order))
	for optionID, idxStr := range order {
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			continue
		}
		options = append(options, domain.ChallengeOption{
			ID:            optionID,
			Text:          "", // display text not cached in this lightweight form
			OrderingIndex: idx,
		})
	}
	sort.Slice(options, func(i, j int) bool {
		return options[i].OrderingIndex < options[j].OrderingIndex
	})
	return domain.Challenge{ID: challengeID, Options: options}
}

func (r *ChallengeRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
