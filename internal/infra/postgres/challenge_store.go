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

// ChallengeStore loads and writes challenge JSONB in Postgres. The
// challenge_options table mirrors the option set so the database enforces
// that ordering indexes form a permutation per challenge.
type ChallengeStore struct {
	pool *pgxpool.Pool
}

func NewChallengeStore(pool *pgxpool.Pool) *ChallengeStore {
	return &ChallengeStore{pool: pool}
}

func (s *ChallengeStore) LoadChallenge(ctx context.Context, challengeID string) (domain.Challenge, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM challenges WHERE id=$1`, challengeID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	if err != nil {
		return domain.Challenge{}, storageErr("load challenge", err)
	}
	var challenge domain.Challenge
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return domain.Challenge{}, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return challenge, nil
}

// SaveChallenge upserts a challenge, replacing its full option set
// atomically, and seeds the zero aggregate row. The unique constraint on
// (challenge_id, ordering_index) rejects non-permutation option sets.
func (s *ChallengeStore) SaveChallenge(ctx context.Context, challenge domain.Challenge) error {
	data, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO challenges (id, data) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		challenge.ID, string(data)); err != nil {
		return storageErr("upsert challenge", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM challenge_options WHERE challenge_id=$1`, challenge.ID); err != nil {
		return storageErr("clear options", err)
	}
	for _, opt := range challenge.Options {
		if _, err := tx.Exec(ctx,
			`INSERT INTO challenge_options (challenge_id, option_id, ordering_index)
			 VALUES ($1, $2, $3)`,
			challenge.ID, opt.ID, opt.OrderingIndex); err != nil {
			return storageErr("insert option "+opt.ID, err)
		}
	}

	zero, err := json.Marshal(domain.NewAggregate(challenge.ID))
	if err != nil {
		return fmt.Errorf("marshal zero aggregate: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO aggregates (challenge_id, data) VALUES ($1, $2)
		 ON CONFLICT (challenge_id) DO NOTHING`,
		challenge.ID, string(zero)); err != nil {
		return storageErr("seed aggregate", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit", err)
	}
	return nil
}
