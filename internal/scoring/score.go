package scoring

import (
	"math"

	"moneyrank-service/internal/domain"
)

// Thresholds are the grade cutoffs, injectable so product configuration can
// move them without touching scoring logic.
type Thresholds struct {
	Great int
	Good  int
}

// DefaultThresholds are the product defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{Great: 90, Good: 60}
}

// pointsPerDisplacement is the linear penalty per unit of footrule
// distance; the max distance for a 4-permutation is 8, so a fully reversed
// ranking lands exactly at 0.
const pointsPerDisplacement = 12.5

// Score maps a submitted ranking against the ideal one via Spearman
// footrule distance: the sum of absolute 0-based positional displacements.
// An option absent from the ideal ranking contributes nothing; the workflow
// validates permutations before calling, so that case only arises on an
// upstream contract violation.
func Score(submitted, ideal []string) int {
	idealPos := make(map[string]int, len(ideal))
	for i, id := range ideal {
		idealPos[id] = i
	}

	distance := 0
	for i, id := range submitted {
		pos, ok := idealPos[id]
		if !ok {
			continue
		}
		if d := i - pos; d < 0 {
			distance -= d
		} else {
			distance += d
		}
	}

	raw := 100 - float64(distance)*pointsPerDisplacement
	if raw < 0 {
		raw = 0
	}
	// Round half up; footrule distance of a permutation is always even, so
	// raw is integral in practice.
	return int(math.Floor(raw + 0.5))
}

// GradeFor buckets a score into its display tier.
func GradeFor(score int, t Thresholds) domain.Grade {
	switch {
	case score >= t.Great:
		return domain.GradeGreat
	case score >= t.Good:
		return domain.GradeGood
	default:
		return domain.GradeRisky
	}
}
