package memory

import (
	"context"
	"testing"
	"time"

	"moneyrank-service/internal/domain"
)

func TestChallengeRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		ChallengeLoader: NewStaticChallengeLoader(map[string]domain.Challenge{
			"day-1": sampleChallenge(),
		}),
	}
	repo := NewChallengeRepository(loader, time.Minute)

	if _, err := repo.GetChallenge(context.Background(), "day-1"); err != nil {
		t.Fatalf("get challenge: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetChallenge(context.Background(), "day-1"); err != nil {
		t.Fatalf("get challenge 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestChallengeRepositoryUnknownChallenge(t *testing.T) {
	repo := NewChallengeRepository(NewStaticChallengeLoader(nil), time.Minute)
	if _, err := repo.GetChallenge(context.Background(), "nope"); err != domain.ErrChallengeNotFound {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}

type countingLoader struct {
	ChallengeLoader
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
			{ID: "o1", Text: "Pay down the credit card balance", Tier: domain.TierOptimal, Rationale: "Highest guaranteed return", OrderingIndex: 1},
			{ID: "o2", Text: "Top up the emergency fund", Tier: domain.TierReasonable, Rationale: "Buffer before investing", OrderingIndex: 2},
			{ID: "o3", Text: "Buy index funds", Tier: domain.TierReasonable, Rationale: "Good, but after debt", OrderingIndex: 3},
			{ID: "o4", Text: "Put it on a meme stock", Tier: domain.TierRisky, Rationale: "Pure speculation", OrderingIndex: 4},
		},
	}
}
