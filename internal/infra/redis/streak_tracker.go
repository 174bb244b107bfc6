package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dayKeyLayout = "2006-01-02"

// StreakTracker keeps each user's completed day keys in a Redis set and
// derives the consecutive-day streak by probing backwards from the day
// being recorded.
type StreakTracker struct {
	client *redis.Client
}

func NewStreakTracker(client *redis.Client) *StreakTracker {
	return &StreakTracker{client: client}
}

func (t *StreakTracker) Advance(ctx context.Context, userID, dateKey string) (int, error) {
	day, err := time.Parse(dayKeyLayout, dateKey)
	if err != nil {
		return 0, fmt.Errorf("parse day key %q: %w", dateKey, err)
	}

	key := t.key(userID)
	if err := t.client.SAdd(ctx, key, dateKey).Err(); err != nil {
		return 0, storageErr("record day", err)
	}

	streak := 0
	for cursor := day; ; cursor = cursor.AddDate(0, 0, -1) {
		done, err := t.client.SIsMember(ctx, key, cursor.Format(dayKeyLayout)).Result()
		if err != nil {
			return 0, storageErr("probe day", err)
		}
		if !done {
			break
		}
		streak++
	}
	return streak, nil
}

func (t *StreakTracker) key(userID string) string {
	return "streak:days:" + userID
}
