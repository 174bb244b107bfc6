package redis

import (
	"context"
	"testing"
	"time"

	"moneyrank-service/internal/domain"
	"moneyrank-service/internal/infra/memory"
)

func TestChallengeRepositoryCachesInRedis(t *testing.T) {
	mr, client := newTestRedis(t)
	defer mr.Close()

	loader := &countingLoader{
		ChallengeLoader: memory.NewStaticChallengeLoader(map[string]domain.Challenge{
			"day-1": sampleChallenge(),
		}),
	}
	repo := NewChallengeRepository(client, loader, time.Minute)

	challenge, err := repo.GetChallenge(context.Background(), "day-1")
	if err != nil {
		t.Fatalf("get challenge: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	ideal := challenge.IdealRanking()
	if domain.RankingKey(ideal) != "o1,o2,o3,o4" {
		t.Fatalf("unexpected ideal ranking: %v", ideal)
	}

	// Second call should hit cache, loader not incremented, and the cached
	// lightweight form must still produce the same ideal ranking.
	cached, err := repo.GetChallenge(context.Background(), "day-1")
	if err != nil {
		t.Fatalf("get challenge (cached): %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if domain.RankingKey(cached.IdealRanking()) != "o1,o2,o3,o4" {
		t.Fatalf("cached ideal ranking mismatch: %v", cached.IdealRanking())
	}
}

type countingLoader struct {
	memory.ChallengeLoader
	calls int
}

func (l *countingLoader) LoadChallenge(ctx context.Context, challengeID string) (domain.Challenge, error) {
	l.calls++
	return l.ChallengeLoader.LoadChallenge(ctx, challengeID)
}

func sampleChallenge() domain.Challenge {
	return domain.Challenge{
		ID:     "day-1",
		Prompt: "You get a surprise $1,000 bonus. Rank what to do first.",
		Options: []domain.ChallengeOption{
			{ID: "o1", Text: "Pay down the credit card balance", Tier: domain.TierOptimal, OrderingIndex: 1},
			{ID: "o2", Text: "Top up the emergency fund", Tier: domain.TierReasonable, OrderingIndex: 2},
			{ID: "o3", Text: "Buy index funds", Tier: domain.TierReasonable, OrderingIndex: 3},
			{ID: "o4", Text: "Put it on a meme stock", Tier: domain.TierRisky, OrderingIndex: 4},
		},
	}
}
