package app

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"moneyrank-service/internal/domain"
	"moneyrank-service/internal/scoring"
)

// ChallengeRepository loads challenge content (from cache/backing store).
type ChallengeRepository interface {
	GetChallenge(ctx context.Context, challengeID string) (domain.Challenge, error)
}

// AttemptRepository persists scoring events and the best-attempt flag.
type AttemptRepository interface {
	// BestAttempt returns the attempt currently flagged best for the pair,
	// or nil when the user has never completed the challenge.
	BestAttempt(ctx context.Context, userID, challengeID string) (*domain.Attempt, error)
	Save(ctx context.Context, attempt domain.Attempt) error
	// ReplaceBest demotes the superseded attempt and inserts the new one as
	// a single atomic operation, so no interleaving (or crash between the
	// two writes) can leave a pair with zero or two flagged rows.
	ReplaceBest(ctx context.Context, supersededID string, attempt domain.Attempt) error
}

// AggregateStore maintains the per-challenge population statistics. Updates
// to one challenge are linearized inside the store; different challenges
// proceed independently.
type AggregateStore interface {
	// ApplyNewBest folds a new-best event in. prev is nil on a user's
	// first-ever best for the challenge; on replacement it carries the
	// superseded ranking and score.
	ApplyNewBest(ctx context.Context, challengeID string, ranking []string, score int, prev *domain.PreviousBest) error
	// Aggregate returns a snapshot, or nil when the challenge has no
	// aggregate row yet.
	Aggregate(ctx context.Context, challengeID string) (*domain.Aggregate, error)
}

// StreakTracker recomputes a user's consecutive-day completion streak.
type StreakTracker interface {
	Advance(ctx context.Context, userID, dateKey string) (int, error)
}

// FeedRepository abstracts how live aggregate feeds are stored (in-memory,
// Redis-marked, etc).
type FeedRepository interface {
	GetOrCreate(challengeID string) *Feed
	Get(challengeID string) (*Feed, bool)
	DeleteIfEmpty(challengeID string)
}

// maxConflictRetries bounds recovery from best-flag/aggregate races before
// the conflict is surfaced to the caller.
const maxConflictRetries = 3

// lockStripes sizes the keyed mutex table serializing same-(user,challenge)
// submissions.
const lockStripes = 64

// dayKeyLayout is the YYYY-MM-DD shape streak tracking records days under.
const dayKeyLayout = "2006-01-02"

// AttemptService contains the core submit/read use cases.
type AttemptService struct {
	challenges ChallengeRepository
	attempts   AttemptRepository
	aggregates AggregateStore
	streaks    StreakTracker
	feeds      FeedRepository
	thresholds scoring.Thresholds

	locks [lockStripes]sync.Mutex
	now   func() time.Time
	newID func() string
}

func NewAttemptService(
	challenges ChallengeRepository,
	attempts AttemptRepository,
	aggregates AggregateStore,
	streaks StreakTracker,
	feeds FeedRepository,
	thresholds scoring.Thresholds,
) *AttemptService {
	return &AttemptService{
		challenges: challenges,
		attempts:   attempts,
		aggregates: aggregates,
		streaks:    streaks,
		feeds:      feeds,
		thresholds: thresholds,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Submit scores a ranking, records the attempt, and applies the new-best
// side effects (best-flag flip, compensating aggregate update, streak
// advance, feed publish) when the score strictly beats the user's prior
// best. Every submission is recorded and returned; only the side effects
// are gated.
func (s *AttemptService) Submit(ctx context.Context, userID, challengeID, dateKey string, ranking []string) (domain.SubmitResult, error) {
	challenge, err := s.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if err := validateRanking(challenge, ranking); err != nil {
		return domain.SubmitResult{}, err
	}
	// Rejected here so streak recording can never fail a submission whose
	// attempt row and aggregate update have already landed.
	if _, err := time.Parse(dayKeyLayout, dateKey); err != nil {
		return domain.SubmitResult{}, domain.ErrInvalidDateKey
	}

	score := scoring.Score(ranking, challenge.IdealRanking())
	grade := scoring.GradeFor(score, s.thresholds)

	// Same-pair submissions must not race the best-flag read-modify-write.
	lock := s.pairLock(userID, challengeID)
	lock.Lock()
	defer lock.Unlock()

	var attemptID string
	for tries := 0; ; tries++ {
		attemptID, err = s.recordAttempt(ctx, userID, challengeID, dateKey, ranking, score, grade)
		if errors.Is(err, domain.ErrAttemptConflict) && tries < maxConflictRetries {
			continue
		}
		if err != nil {
			return domain.SubmitResult{}, err
		}
		break
	}

	return domain.SubmitResult{AttemptID: attemptID, Score: score, Grade: grade}, nil
}

func (s *AttemptService) recordAttempt(ctx context.Context, userID, challengeID, dateKey string, ranking []string, score int, grade domain.Grade) (string, error) {
	existing, err := s.attempts.BestAttempt(ctx, userID, challengeID)
	if err != nil {
		return "", err
	}

	// Strict >: tied scores keep the first-achieved best.
	isNewBest := existing == nil || score > existing.Score

	var prev *domain.PreviousBest
	if isNewBest && existing != nil {
		prev = &domain.PreviousBest{Ranking: existing.Ranking, Score: existing.Score}
	}

	attempt := domain.Attempt{
		ID:          s.newID(),
		UserID:      userID,
		ChallengeID: challengeID,
		Ranking:     append([]string(nil), ranking...),
		Score:       score,
		Grade:       grade,
		IsBest:      isNewBest,
		SubmittedAt: s.now(),
	}
	if prev != nil {
		err = s.attempts.ReplaceBest(ctx, existing.ID, attempt)
	} else {
		err = s.attempts.Save(ctx, attempt)
	}
	if err != nil {
		return "", err
	}
	if !isNewBest {
		return attempt.ID, nil
	}
	if err := s.aggregates.ApplyNewBest(ctx, challengeID, ranking, score, prev); err != nil {
		return "", err
	}
	if _, err := s.streaks.Advance(ctx, userID, dateKey); err != nil {
		return "", err
	}
	s.publish(ctx, challengeID)
	return attempt.ID, nil
}

// AggregateFor returns the current aggregate snapshot, or nil when nothing
// has been submitted yet.
func (s *AttemptService) AggregateFor(ctx context.Context, challengeID string) (*domain.Aggregate, error) {
	return s.aggregates.Aggregate(ctx, challengeID)
}

// PercentileOf reports how a score sits against the population of best
// attempts, the neutral 50 when none exist.
func (s *AttemptService) PercentileOf(ctx context.Context, challengeID string, score int) (int, error) {
	agg, err := s.aggregates.Aggregate(ctx, challengeID)
	if err != nil {
		return 0, err
	}
	return agg.PercentileOf(score), nil
}

// Subscribe returns a channel receiving aggregate snapshots as new bests
// land for the challenge. The caller must invoke the cancel function.
func (s *AttemptService) Subscribe(ctx context.Context, challengeID string) (<-chan *domain.Aggregate, func(), error) {
	// Subscribers cannot watch unknown challenges.
	if _, err := s.challenges.GetChallenge(ctx, challengeID); err != nil {
		return nil, nil, err
	}

	initial, err := s.aggregates.Aggregate(ctx, challengeID)
	if err != nil {
		return nil, nil, err
	}
	if initial == nil {
		initial = domain.NewAggregate(challengeID)
	}

	feed := s.feeds.GetOrCreate(challengeID)
	ch, cancel := feed.subscribe(initial)
	wrapped := func() {
		cancel()
		s.feeds.DeleteIfEmpty(challengeID)
	}
	return ch, wrapped, nil
}

func (s *AttemptService) publish(ctx context.Context, challengeID string) {
	feed, ok := s.feeds.Get(challengeID)
	if !ok {
		return
	}
	snapshot, err := s.aggregates.Aggregate(ctx, challengeID)
	if err != nil || snapshot == nil {
		return
	}
	feed.publish(snapshot)
}

func (s *AttemptService) pairLock(userID, challengeID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(challengeID))
	return &s.locks[h.Sum32()%lockStripes]
}

// validateRanking checks that ranking is exactly a permutation of the
// challenge's four option IDs.
func validateRanking(challenge domain.Challenge, ranking []string) error {
	if len(ranking) != domain.RankingSize || len(challenge.Options) != domain.RankingSize {
		return domain.ErrInvalidRanking
	}
	seen := make(map[string]struct{}, domain.RankingSize)
	for _, id := range ranking {
		if !challenge.HasOption(id) {
			return domain.ErrInvalidRanking
		}
		if _, dup := seen[id]; dup {
			return domain.ErrInvalidRanking
		}
		seen[id] = struct{}{}
	}
	return nil
}
