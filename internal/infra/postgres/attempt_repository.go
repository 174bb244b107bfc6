package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"moneyrank-service/internal/domain"
)

const uniqueViolation = "23505"

// AttemptRepository persists scoring events. A partial unique index on
// (user_id, challenge_id) WHERE is_best makes the one-best-per-pair
// invariant hold even across server instances; violating inserts surface as
// ErrAttemptConflict for the workflow's bounded retry.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func (r *AttemptRepository) BestAttempt(ctx context.Context, userID, challengeID string) (*domain.Attempt, error) {
	var (
		attempt    domain.Attempt
		rankingRaw []byte
		grade      string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, ranking, score, grade, submitted_at
		 FROM attempts
		 WHERE user_id=$1 AND challenge_id=$2 AND is_best`,
		userID, challengeID,
	).Scan(&attempt.ID, &rankingRaw, &attempt.Score, &grade, &attempt.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load best attempt", err)
	}
	if err := json.Unmarshal(rankingRaw, &attempt.Ranking); err != nil {
		return nil, fmt.Errorf("unmarshal ranking: %w", err)
	}
	attempt.UserID = userID
	attempt.ChallengeID = challengeID
	attempt.Grade = domain.Grade(grade)
	attempt.IsBest = true
	return &attempt, nil
}

func (r *AttemptRepository) Save(ctx context.Context, attempt domain.Attempt) error {
	if err := insertAttempt(ctx, r.pool, attempt); err != nil {
		return err
	}
	return nil
}

// ReplaceBest flips the superseded row's best flag and inserts the new best
// in one transaction: a crash between the two writes can never leave the
// pair bestless (which would double-count the user on the next submission).
func (r *AttemptRepository) ReplaceBest(ctx context.Context, supersededID string, attempt domain.Attempt) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE attempts SET is_best=false WHERE id=$1`, supersededID); err != nil {
		return storageErr("mark superseded", err)
	}
	if err := insertAttempt(ctx, tx, attempt); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

// execer covers both pool and transaction handles.
type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func insertAttempt(ctx context.Context, db execer, attempt domain.Attempt) error {
	ranking, err := json.Marshal(attempt.Ranking)
	if err != nil {
		return fmt.Errorf("marshal ranking: %w", err)
	}
	_, err = db.Exec(ctx,
		`INSERT INTO attempts (id, user_id, challenge_id, ranking, score, grade, is_best, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		attempt.ID, attempt.UserID, attempt.ChallengeID, string(ranking),
		attempt.Score, string(attempt.Grade), attempt.IsBest, attempt.SubmittedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrAttemptConflict
	}
	if err != nil {
		return storageErr("save attempt", err)
	}
	return nil
}
