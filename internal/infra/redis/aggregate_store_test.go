package redis

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"moneyrank-service/internal/domain"
)

func TestAggregateStoreApplyAndRead(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	defer mr.Close()

	store := NewAggregateStore(client, false)

	if err := store.ApplyNewBest(ctx, "day-1", []string{"o1", "o2", "o3", "o4"}, 100, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := store.ApplyNewBest(ctx, "day-1", []string{"o4", "o3", "o2", "o1"}, 0, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}

	agg, err := store.Aggregate(ctx, "day-1")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.BestAttemptCount != 2 {
		t.Fatalf("expected count 2, got %d", agg.BestAttemptCount)
	}
	if agg.TopPickCounts["o1"] != 1 || agg.TopPickCounts["o4"] != 1 {
		t.Fatalf("unexpected top picks: %+v", agg.TopPickCounts)
	}
	if agg.ScoreHistogram[100] != 1 || agg.ScoreHistogram[0] != 1 {
		t.Fatalf("unexpected histogram: %+v", agg.ScoreHistogram)
	}
	if agg.ExactRankingCounts["o1,o2,o3,o4"] != 1 {
		t.Fatalf("unexpected exact counts: %+v", agg.ExactRankingCounts)
	}
	if got := agg.PercentileOf(100); got != 50 {
		t.Fatalf("expected percentile 50, got %d", got)
	}
}

func TestAggregateStoreReplacement(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	defer mr.Close()

	store := NewAggregateStore(client, false)

	_ = store.ApplyNewBest(ctx, "day-1", []string{"o2", "o1", "o3", "o4"}, 75, nil)
	prev := &domain.PreviousBest{Ranking: []string{"o2", "o1", "o3", "o4"}, Score: 75}
	if err := store.ApplyNewBest(ctx, "day-1", []string{"o1", "o2", "o3", "o4"}, 100, prev); err != nil {
		t.Fatalf("apply replacement: %v", err)
	}

	agg, _ := store.Aggregate(ctx, "day-1")
	if agg.BestAttemptCount != 1 {
		t.Fatalf("replacement must not grow count, got %d", agg.BestAttemptCount)
	}
	if agg.ScoreHistogram[75] != 0 || agg.ScoreHistogram[100] != 1 {
		t.Fatalf("expected histogram compensated, got %+v", agg.ScoreHistogram)
	}
	// Asymmetric default keeps the superseded distribution contributions.
	if agg.TopPickCounts["o2"] != 1 {
		t.Fatalf("expected superseded top pick retained, got %+v", agg.TopPickCounts)
	}
}

func TestAggregateStoreSymmetricReplacement(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	defer mr.Close()

	store := NewAggregateStore(client, true)

	_ = store.ApplyNewBest(ctx, "day-1", []string{"o2", "o1", "o3", "o4"}, 75, nil)
	prev := &domain.PreviousBest{Ranking: []string{"o2", "o1", "o3", "o4"}, Score: 75}
	_ = store.ApplyNewBest(ctx, "day-1", []string{"o1", "o2", "o3", "o4"}, 100, prev)

	agg, _ := store.Aggregate(ctx, "day-1")
	if agg.TopPickCounts["o2"] != 0 {
		t.Fatalf("expected superseded top pick removed, got %+v", agg.TopPickCounts)
	}
	if agg.ExactRankingCounts["o2,o1,o3,o4"] != 0 {
		t.Fatalf("expected superseded exact ranking removed, got %+v", agg.ExactRankingCounts)
	}
}

func TestAggregateMissingChallenge(t *testing.T) {
	mr, client := newTestRedis(t)
	defer mr.Close()

	store := NewAggregateStore(client, false)
	agg, err := store.Aggregate(context.Background(), "day-none")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg != nil {
		t.Fatalf("expected nil aggregate, got %+v", agg)
	}
	if got := agg.PercentileOf(10); got != 50 {
		t.Fatalf("expected neutral 50 for missing aggregate, got %d", got)
	}
}

func TestClosedClientReportsStorageUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	defer mr.Close()

	store := NewAggregateStore(client, false)
	client.Close()

	err := store.ApplyNewBest(ctx, "day-1", []string{"o1", "o2", "o3", "o4"}, 100, nil)
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := store.Aggregate(ctx, "day-1"); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}
