package redis

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"moneyrank-service/internal/domain"
)

// AggregateStore keeps each challenge's counters in one Redis hash
// (agg:{challengeID}) with prefixed fields:
//
//	count            best-attempt count
//	top:{optionID}   first-pick distribution
//	toptwo:{optionID} top-two distribution
//	exact:{ranking}  exact-permutation distribution
//	hist:{score}     score histogram
//
// ApplyNewBest runs as a single Lua script; Redis executes scripts
// atomically, which gives the per-challenge critical section without any
// application-side locking, and keeps updates to different challenges fully
// independent.
type AggregateStore struct {
	client    *redis.Client
	symmetric bool
	script    *redis.Script
}

// applyScript folds one new-best event into the hash. ARGV:
// symmetric, score, top1, top2, exactKey, hasPrev, prevScore, prevTop1,
// prevTop2, prevExactKey.
var applyScript = redis.NewScript(`
local key = KEYS[1]

local function decfloor(field)
  local v = tonumber(redis.call('HGET', key, field) or '0')
  if v > 0 then
    redis.call('HINCRBY', key, field, -1)
  end
end

local symmetric = ARGV[1] == '1'
local score = ARGV[2]
local top1 = ARGV[3]
local top2 = ARGV[4]
local exact = ARGV[5]
local hasPrev = ARGV[6] == '1'

redis.call('HINCRBY', key, 'top:' .. top1, 1)
redis.call('HINCRBY', key, 'toptwo:' .. top1, 1)
redis.call('HINCRBY', key, 'toptwo:' .. top2, 1)
redis.call('HINCRBY', key, 'exact:' .. exact, 1)
redis.call('HINCRBY', key, 'hist:' .. score, 1)

if not hasPrev then
  redis.call('HINCRBY', key, 'count', 1)
  return 1
end

local prevScore = ARGV[7]
if prevScore ~= score then
  decfloor('hist:' .. prevScore)
end
if symmetric then
  decfloor('top:' .. ARGV[8])
  decfloor('toptwo:' .. ARGV[8])
  decfloor('toptwo:' .. ARGV[9])
  decfloor('exact:' .. ARGV[10])
end
return 1
`)

// NewAggregateStore builds a store. symmetricReplacement selects whether
// superseded rankings are also removed from the distribution maps on
// replacement, or only the score histogram is compensated.
func NewAggregateStore(client *redis.Client, symmetricReplacement bool) *AggregateStore {
	return &AggregateStore{
		client:    client,
		symmetric: symmetricReplacement,
		script:    applyScript,
	}
}

func (s *AggregateStore) ApplyNewBest(ctx context.Context, challengeID string, ranking []string, score int, prev *domain.PreviousBest) error {
	symmetric := "0"
	if s.symmetric {
		symmetric = "1"
	}
	args := []interface{}{
		symmetric,
		strconv.Itoa(score),
		ranking[0],
		ranking[1],
		domain.RankingKey(ranking),
	}
	if prev == nil {
		args = append(args, "0", "", "", "", "")
	} else {
		prevRanking := prev.Ranking
		if len(prevRanking) < domain.RankingSize {
			prevRanking = []string{"", "", "", ""}
		}
		args = append(args, "1", strconv.Itoa(prev.Score), prevRanking[0], prevRanking[1], domain.RankingKey(prev.Ranking))
	}

	if err := s.script.Run(ctx, s.client, []string{s.key(challengeID)}, args...).Err(); err != nil {
		return storageErr("apply new best", err)
	}
	return nil
}

func (s *AggregateStore) Aggregate(ctx context.Context, challengeID string) (*domain.Aggregate, error) {
	fields, err := s.client.HGetAll(ctx, s.key(challengeID)).Result()
	if err != nil {
		return nil, storageErr("read aggregate", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	agg := domain.NewAggregate(challengeID)
	for field, raw := range fields {
		n, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		switch {
		case field == "count":
			agg.BestAttemptCount = n
		case strings.HasPrefix(field, "top:"):
			agg.TopPickCounts[field[len("top:"):]] = n
		case strings.HasPrefix(field, "toptwo:"):
			agg.TopTwoCounts[field[len("toptwo:"):]] = n
		case strings.HasPrefix(field, "exact:"):
			agg.ExactRankingCounts[field[len("exact:"):]] = n
		case strings.HasPrefix(field, "hist:"):
			if score, err := strconv.Atoi(field[len("hist:"):]); err == nil {
				agg.ScoreHistogram[score] = n
			}
		}
	}
	return agg, nil
}

func (s *AggregateStore) key(challengeID string) string {
	return "agg:" + challengeID
}
