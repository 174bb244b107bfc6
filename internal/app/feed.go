package app

import (
	"sync"

	"moneyrank-service/internal/domain"
)

// Feed fans aggregate snapshots out to live subscribers of one challenge.
type Feed struct {
	challengeID string
	mu          sync.Mutex
	subscribers map[chan *domain.Aggregate]struct{}
}

// NewFeed is exported for infrastructure layers that need to seed feeds.
func NewFeed(challengeID string) *Feed {
	return &Feed{
		challengeID: challengeID,
		subscribers: make(map[chan *domain.Aggregate]struct{}),
	}
}

// IsEmpty reports whether the feed has no subscribers.
func (f *Feed) IsEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers) == 0
}

func (f *Feed) subscribe(initial *domain.Aggregate) (<-chan *domain.Aggregate, func()) {
	ch := make(chan *domain.Aggregate, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	ch <- initial

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *Feed) publish(snapshot *domain.Aggregate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale snapshot so a slow client never blocks publish.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
