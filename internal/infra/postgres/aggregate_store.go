package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"moneyrank-service/internal/domain"
)

// AggregateStore keeps one JSONB counters document per challenge.
// ApplyNewBest takes a row-level lock (SELECT ... FOR UPDATE), merges in Go,
// and upserts: the per-challenge critical section lives in the database, so
// multiple server instances can update concurrently without losing counts.
type AggregateStore struct {
	pool      *pgxpool.Pool
	symmetric bool
}

// NewAggregateStore builds a store. symmetricReplacement selects whether
// superseded rankings are also removed from the distribution maps on
// replacement, or only the score histogram is compensated.
func NewAggregateStore(pool *pgxpool.Pool, symmetricReplacement bool) *AggregateStore {
	return &AggregateStore{pool: pool, symmetric: symmetricReplacement}
}

func (s *AggregateStore) ApplyNewBest(ctx context.Context, challengeID string, ranking []string, score int, prev *domain.PreviousBest) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback(ctx)

	agg := domain.NewAggregate(challengeID)
	var raw []byte
	err = tx.QueryRow(ctx,
		`SELECT data FROM aggregates WHERE challenge_id=$1 FOR UPDATE`,
		challengeID).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// first best for a challenge whose row was never seeded
	case err != nil:
		return storageErr("lock aggregate", err)
	default:
		if err := json.Unmarshal(raw, agg); err != nil {
			return fmt.Errorf("unmarshal aggregate: %w", err)
		}
		agg.ChallengeID = challengeID
	}

	agg.Apply(ranking, score, prev, s.symmetric)

	data, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("marshal aggregate: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO aggregates (challenge_id, data) VALUES ($1, $2)
		 ON CONFLICT (challenge_id) DO UPDATE SET data = EXCLUDED.data`,
		challengeID, string(data)); err != nil {
		return storageErr("store aggregate", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

func (s *AggregateStore) Aggregate(ctx context.Context, challengeID string) (*domain.Aggregate, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM aggregates WHERE challenge_id=$1`, challengeID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("read aggregate", err)
	}
	agg := domain.NewAggregate(challengeID)
	if err := json.Unmarshal(raw, agg); err != nil {
		return nil, fmt.Errorf("unmarshal aggregate: %w", err)
	}
	agg.ChallengeID = challengeID
	return agg, nil
}
