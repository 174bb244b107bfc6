package memory

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const dayKeyLayout = "2006-01-02"

// StreakTracker keeps the set of completed day keys per user and derives
// the consecutive-day streak ending at the day being recorded.
type StreakTracker struct {
	mu   sync.Mutex
	days map[string]map[string]struct{} // userID -> completed day keys
}

func NewStreakTracker() *StreakTracker {
	return &StreakTracker{days: make(map[string]map[string]struct{})}
}

// Advance records dateKey as completed for the user and returns the length
// of the run of consecutive days ending there.
func (t *StreakTracker) Advance(_ context.Context, userID, dateKey string) (int, error) {
	day, err := time.Parse(dayKeyLayout, dateKey)
	if err != nil {
		return 0, fmt.Errorf("parse day key %q: %w", dateKey, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	completed, ok := t.days[userID]
	if !ok {
		completed = make(map[string]struct{})
		t.days[userID] = completed
	}
	completed[dateKey] = struct{}{}

	streak := 0
	for cursor := day; ; cursor = cursor.AddDate(0, 0, -1) {
		if _, done := completed[cursor.Format(dayKeyLayout)]; !done {
			break
		}
		streak++
	}
	return streak, nil
}
