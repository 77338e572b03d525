package metrics

import (
	"math/rand"
	"testing"

	"finsight/internal/core"
)

func cat(name string, cents int64) core.CategoryAmount {
	return core.CategoryAmount{Name: name, Amount: core.Money{Cents: cents}}
}

// Worked example: 80/20 split gives HHI 0.68, normalized 0.36, score 64.
func TestDiversificationScoreTwoSources(t *testing.T) {
	res := DiversificationScore([]core.CategoryAmount{
		cat("Salary", 400000),
		cat("Freelance", 100000),
	})
	if res.Score != 64 {
		t.Fatalf("expected score 64, got %d", res.Score)
	}
	if res.Insight != InsightWellDiversified {
		t.Fatalf("expected well diversified, got %s", res.Insight)
	}
	if len(res.Shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(res.Shares))
	}
	if res.Shares[0].Percent != 80 || res.Shares[1].Percent != 20 {
		t.Fatalf("expected 80/20 split, got %v/%v", res.Shares[0].Percent, res.Shares[1].Percent)
	}
}

// A perfectly even split scores 100 for any category count >= 2.
func TestDiversificationScoreEvenSplit(t *testing.T) {
	for n := 2; n <= 6; n++ {
		amounts := make([]core.CategoryAmount, n)
		for i := range amounts {
			amounts[i] = cat(string(rune('A'+i)), 100000)
		}
		res := DiversificationScore(amounts)
		if res.Score != 100 {
			t.Fatalf("n=%d expected score 100, got %d", n, res.Score)
		}
	}
}

func TestDiversificationScoreSingleCategory(t *testing.T) {
	res := DiversificationScore([]core.CategoryAmount{cat("Salary", 500000)})
	if res.Score != 0 {
		t.Fatalf("single category expected score 0, got %d", res.Score)
	}
	if res.Insight != InsightHighlyConcentrated {
		t.Fatalf("expected highly concentrated, got %s", res.Insight)
	}
}

func TestDiversificationScoreNoData(t *testing.T) {
	for _, amounts := range [][]core.CategoryAmount{
		nil,
		{},
		{cat("Salary", 0)},
	} {
		res := DiversificationScore(amounts)
		if res.Score != 0 || res.Insight != InsightNoData {
			t.Fatalf("expected 0/no_data, got %d/%s", res.Score, res.Insight)
		}
	}
}

// The score must not depend on input order.
func TestDiversificationScorePermutationInvariant(t *testing.T) {
	amounts := []core.CategoryAmount{
		cat("A", 123400),
		cat("B", 98700),
		cat("C", 45600),
		cat("D", 350000),
	}
	want := DiversificationScore(amounts).Score

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]core.CategoryAmount(nil), amounts...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		if got := DiversificationScore(shuffled).Score; got != want {
			t.Fatalf("permutation %d: expected %d, got %d", i, want, got)
		}
	}
}

// Thresholds are part of the contract: <30 highly concentrated, <60
// moderate, >=60 well diversified.
func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  Insight
	}{
		{0, InsightHighlyConcentrated},
		{29, InsightHighlyConcentrated},
		{30, InsightModeratelyDiverse},
		{59, InsightModeratelyDiverse},
		{60, InsightWellDiversified},
		{100, InsightWellDiversified},
	}
	for _, tc := range cases {
		if got := classify(tc.score); got != tc.want {
			t.Fatalf("score %d expected %s, got %s", tc.score, tc.want, got)
		}
	}
}
