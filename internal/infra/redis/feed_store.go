package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"moneyrank-service/internal/app"
)

// FeedStore is a Redis-aware implementation of app.FeedRepository.
// Notes:
//   - It still keeps a local in-memory map of feeds to reuse the in-process
//     broadcast logic.
//   - Redis marks feed liveness (and could be extended to route
//     cross-instance pub/sub of aggregate snapshots).
type FeedStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	feeds  map[string]*app.Feed
}

func NewFeedStore(client *redis.Client, ttl time.Duration) *FeedStore {
	return &FeedStore{
		client: client,
		ttl:    ttl,
		feeds:  make(map[string]*app.Feed),
	}
}

func (s *FeedStore) GetOrCreate(challengeID string) *app.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	if feed, ok := s.feeds[challengeID]; ok {
		return feed
	}
	feed := app.NewFeed(challengeID)
	s.feeds[challengeID] = feed
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(challengeID), "1", s.ttl).Err()
	return feed
}

func (s *FeedStore) Get(challengeID string) (*app.Feed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	feed, ok := s.feeds[challengeID]
	return feed, ok
}

func (s *FeedStore) DeleteIfEmpty(challengeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed, ok := s.feeds[challengeID]
	if !ok {
		return
	}
	if feed.IsEmpty() {
		delete(s.feeds, challengeID)
		_ = s.client.Del(context.Background(), s.key(challengeID)).Err()
	}
}

func (s *FeedStore) key(challengeID string) string {
	return "challenge:feed:" + challengeID
}
