package domain

import (
	"strings"
	"time"
)

// OptionTier labels the qualitative quality of a choice.
type OptionTier string

const (
	TierOptimal    OptionTier = "Optimal"
	TierReasonable OptionTier = "Reasonable"
	TierRisky      OptionTier = "Risky"
)

// Grade buckets a numeric score for display.
type Grade string

const (
	GradeGreat Grade = "Great"
	GradeGood  Grade = "Good"
	GradeRisky Grade = "Risky"
)

// RankingSize is the fixed number of options per challenge.
const RankingSize = 4

// ChallengeOption is one of the four choices belonging to a challenge.
// OrderingIndex gives its 1-based position in the ideal ranking; within a
// challenge the indexes form a permutation of 1..4.
type ChallengeOption struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	Tier          OptionTier `json:"tier"`
	Rationale     string     `json:"rationale"`
	OrderingIndex int        `json:"orderingIndex"`
}

// Challenge is one day's ranking puzzle.
type Challenge struct {
	ID      string            `json:"id"`
	Prompt  string            `json:"prompt"`
	Options []ChallengeOption `json:"options"`
}

// IdealRanking projects option IDs sorted by OrderingIndex ascending.
func (c Challenge) IdealRanking() []string {
	ideal := make([]string, len(c.Options))
	for _, opt := range c.Options {
		idx := opt.OrderingIndex - 1
		if idx >= 0 && idx < len(ideal) {
			ideal[idx] = opt.ID
		}
	}
	return ideal
}

// HasOption reports whether id names one of the challenge's options.
func (c Challenge) HasOption(id string) bool {
	for _, opt := range c.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// Attempt is one scoring event. Immutable after creation except IsBest,
// which flips true->false exactly once when a higher-scoring attempt lands.
type Attempt struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ChallengeID string    `json:"challengeId"`
	Ranking     []string  `json:"ranking"`
	Score       int       `json:"score"`
	Grade       Grade     `json:"grade"`
	IsBest      bool      `json:"isBest"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// SubmitResult is what every submission returns, new best or not.
type SubmitResult struct {
	AttemptID string `json:"attemptId"`
	Score     int    `json:"score"`
	Grade     Grade  `json:"grade"`
}

// PreviousBest carries the superseded best attempt's contribution when a
// replacement reaches the aggregate. A nil PreviousBest means first-ever
// best for the (user, challenge) pair.
type PreviousBest struct {
	Ranking []string
	Score   int
}

// RankingKey canonicalizes a permutation so identical orderings always map
// to the same aggregate key.
func RankingKey(ranking []string) string {
	return strings.Join(ranking, ",")
}

// Aggregate is the per-challenge summary of best attempts, maintained
// incrementally and never rebuilt from the attempt history.
type Aggregate struct {
	ChallengeID        string         `json:"challengeId"`
	BestAttemptCount   int            `json:"bestAttemptCount"`
	TopPickCounts      map[string]int `json:"topPickCounts"`
	TopTwoCounts       map[string]int `json:"topTwoCounts"`
	ExactRankingCounts map[string]int `json:"exactRankingCounts"`
	ScoreHistogram     map[int]int    `json:"scoreHistogram"`
}

// NewAggregate returns the zero aggregate for a challenge.
func NewAggregate(challengeID string) *Aggregate {
	return &Aggregate{
		ChallengeID:        challengeID,
		TopPickCounts:      make(map[string]int),
		TopTwoCounts:       make(map[string]int),
		ExactRankingCounts: make(map[string]int),
		ScoreHistogram:     make(map[int]int),
	}
}

// Apply folds one new-best event into the aggregate. When symmetric is
// false the three distribution maps keep the superseded contribution (only
// the histogram is compensated); when true they are decremented as well,
// floored at zero.
func (a *Aggregate) Apply(ranking []string, score int, prev *PreviousBest, symmetric bool) {
	a.TopPickCounts[ranking[0]]++
	a.TopTwoCounts[ranking[0]]++
	a.TopTwoCounts[ranking[1]]++
	a.ExactRankingCounts[RankingKey(ranking)]++
	a.ScoreHistogram[score]++

	if prev == nil {
		a.BestAttemptCount++
		return
	}
	if prev.Score != score {
		decFloor(a.ScoreHistogram, prev.Score)
	}
	if symmetric && len(prev.Ranking) == RankingSize {
		decFloor(a.TopPickCounts, prev.Ranking[0])
		decFloor(a.TopTwoCounts, prev.Ranking[0])
		decFloor(a.TopTwoCounts, prev.Ranking[1])
		decFloor(a.ExactRankingCounts, RankingKey(prev.Ranking))
	}
}

func decFloor[K comparable](m map[K]int, k K) {
	if m[k] > 0 {
		m[k]--
	}
}

// PercentileOf returns the share of best attempts scoring strictly below
// score, as an integer 0..100. Returns the neutral 50 when no best attempts
// exist yet, avoiding a divide by zero.
func (a *Aggregate) PercentileOf(score int) int {
	if a == nil || a.BestAttemptCount == 0 {
		return 50
	}
	below := 0
	for s, n := range a.ScoreHistogram {
		if s < score {
			below += n
		}
	}
	return int(float64(below)/float64(a.BestAttemptCount)*100 + 0.5)
}

// Clone deep-copies the aggregate so snapshots handed to readers never
// alias store-internal maps.
func (a *Aggregate) Clone() *Aggregate {
	if a == nil {
		return nil
	}
	out := NewAggregate(a.ChallengeID)
	out.BestAttemptCount = a.BestAttemptCount
	for k, v := range a.TopPickCounts {
		out.TopPickCounts[k] = v
	}
	for k, v := range a.TopTwoCounts {
		out.TopTwoCounts[k] = v
	}
	for k, v := range a.ExactRankingCounts {
		out.ExactRankingCounts[k] = v
	}
	for k, v := range a.ScoreHistogram {
		out.ScoreHistogram[k] = v
	}
	return out
}
