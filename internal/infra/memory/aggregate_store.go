package memory

import (
	"context"
	"sync"

	"moneyrank-service/internal/domain"
)

// AggregateStore maintains per-challenge aggregates behind a single mutex;
// the read-modify-write in ApplyNewBest is the per-challenge critical
// section the workflow relies on.
type AggregateStore struct {
	symmetric bool

	mu         sync.RWMutex
	aggregates map[string]*domain.Aggregate
}

// NewAggregateStore builds an empty store. symmetricReplacement selects
// whether superseded rankings are also removed from the distribution maps
// on replacement, or only the score histogram is compensated.
func NewAggregateStore(symmetricReplacement bool) *AggregateStore {
	return &AggregateStore{
		symmetric:  symmetricReplacement,
		aggregates: make(map[string]*domain.Aggregate),
	}
}

func (s *AggregateStore) ApplyNewBest(_ context.Context, challengeID string, ranking []string, score int, prev *domain.PreviousBest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.aggregates[challengeID]
	if !ok {
		agg = domain.NewAggregate(challengeID)
		s.aggregates[challengeID] = agg
	}
	agg.Apply(ranking, score, prev, s.symmetric)
	return nil
}

func (s *AggregateStore) Aggregate(_ context.Context, challengeID string) (*domain.Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aggregates[challengeID].Clone(), nil
}
