package scoring

import (
	"testing"

	"moneyrank-service/internal/domain"
)

var ideal = []string{"o1", "o2", "o3", "o4"}

func TestPerfectRankingScoresHundred(t *testing.T) {
	if got := Score(ideal, ideal); got != 100 {
		t.Fatalf("expected 100 for the ideal ranking, got %d", got)
	}
}

func TestReversedRankingScoresZero(t *testing.T) {
	reversed := []string{"o4", "o3", "o2", "o1"}
	if got := Score(reversed, ideal); got != 0 {
		t.Fatalf("expected 0 for the reversed ranking, got %d", got)
	}
}

func TestAdjacentSwapCostsTwentyFive(t *testing.T) {
	// [B,A,C,D] vs [A,B,C,D]: distance 2, score 75.
	swapped := []string{"o2", "o1", "o3", "o4"}
	if got := Score(swapped, ideal); got != 75 {
		t.Fatalf("expected 75 for one adjacent swap, got %d", got)
	}
}

func TestAllPermutationsInBounds(t *testing.T) {
	for _, perm := range permutations(ideal) {
		got := Score(perm, ideal)
		if got < 0 || got > 100 {
			t.Fatalf("score out of bounds for %v: %d", perm, got)
		}
	}
}

func TestUnknownOptionContributesNothing(t *testing.T) {
	// Defensive behavior on malformed input: the stray ID is a no-op.
	malformed := []string{"o1", "o2", "o3", "bogus"}
	if got := Score(malformed, ideal); got != 100 {
		t.Fatalf("expected stray option to contribute 0 displacement, got %d", got)
	}
}

func TestGradeThresholds(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		score int
		want  domain.Grade
	}{
		{100, domain.GradeGreat},
		{90, domain.GradeGreat},
		{89, domain.GradeGood},
		{60, domain.GradeGood},
		{59, domain.GradeRisky},
		{0, domain.GradeRisky},
	}
	for _, c := range cases {
		if got := GradeFor(c.score, th); got != c.want {
			t.Fatalf("score %d: expected %s, got %s", c.score, c.want, got)
		}
	}
}

func TestGradeThresholdsAreInjectable(t *testing.T) {
	strict := Thresholds{Great: 100, Good: 75}
	if got := GradeFor(99, strict); got != domain.GradeGood {
		t.Fatalf("expected Good under strict thresholds, got %s", got)
	}
	if got := GradeFor(74, strict); got != domain.GradeRisky {
		t.Fatalf("expected Risky under strict thresholds, got %s", got)
	}
}

func permutations(items []string) [][]string {
	if len(items) == 1 {
		return [][]string{{items[0]}}
	}
	var out [][]string
	for i := range items {
		rest := make([]string, 0, len(items)-1)
		rest = append(rest, items[:i]...)
		rest = append(rest, items[i+1:]...)
		for _, tail := range permutations(rest) {
			out = append(out, append([]string{items[i]}, tail...))
		}
	}
	return out
}
