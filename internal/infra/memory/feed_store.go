package memory

import (
	"sync"

	"moneyrank-service/internal/app"
)

// FeedStore is an in-memory implementation of app.FeedRepository.
type FeedStore struct {
	mu    sync.RWMutex
	feeds map[string]*app.Feed
}

func NewFeedStore() *FeedStore {
	return &FeedStore{
		feeds: make(map[string]*app.Feed),
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
	}
}
