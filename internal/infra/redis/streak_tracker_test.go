package redis

import (
	"context"
	"testing"
)

func TestStreakTrackerConsecutiveDays(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	defer mr.Close()

	tracker := NewStreakTracker(client)

	var streak int
	var err error
	for _, day := range []string{"2026-03-01", "2026-03-02", "2026-03-03"} {
		streak, err = tracker.Advance(ctx, "u1", day)
		if err != nil {
			t.Fatalf("advance %s: %v", day, err)
		}
	}
	if streak != 3 {
		t.Fatalf("expected streak 3, got %d", streak)
	}

	streak, err = tracker.Advance(ctx, "u1", "2026-03-05")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if streak != 1 {
		t.Fatalf("expected gap to reset streak to 1, got %d", streak)
	}
}
