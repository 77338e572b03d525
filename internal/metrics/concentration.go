package metrics

import (
	"math"

	"finsight/internal/core"
)

// Insight is the three-way classification of a diversification score.
type Insight string

const (
	InsightNoData              Insight = "no_data"
	InsightHighlyConcentrated  Insight = "highly_concentrated"
	InsightModeratelyDiverse   Insight = "moderately_diversified"
	InsightWellDiversified     Insight = "well_diversified"
)

// Classification thresholds are part of the observable contract.
const (
	highlyConcentratedBelow = 30
	moderateBelow           = 60
)

// CategoryShare is a category amount with its share of the total.
type CategoryShare struct {
	Name    string
	Amount  core.Money
	Percent float64
}

// DiversificationResult is a 0-100 score (100 = perfectly even split)
// plus the per-category breakdown it was computed from.
type DiversificationResult struct {
	Score   int
	Insight Insight
	Shares  []CategoryShare
}

// DiversificationScore measures how evenly a set of amounts is spread
// across categories using a normalized Herfindahl-Hirschman index:
//
//	HHI        = sum of squared shares, in [1/n, 1]
//	normalized = (HHI - 1/n) / (1 - 1/n)
//	score      = round((1 - normalized) * 100)
//
// Zero categories or a zero total yield score 0 with InsightNoData. A
// single category is maximally concentrated and scores 0 as well, since
// the normalization is undefined at n=1.
func DiversificationScore(amounts []core.CategoryAmount) DiversificationResult {
	var total int64
	for _, a := range amounts {
		if a.Amount.Cents > 0 {
			total += a.Amount.Cents
		}
	}
	if total == 0 {
		return DiversificationResult{Score: 0, Insight: InsightNoData}
	}

	shares := make([]CategoryShare, 0, len(amounts))
	hhi := 0.0
	n := 0
	for _, a := range amounts {
		if a.Amount.Cents <= 0 {
			continue
		}
		share := float64(a.Amount.Cents) / float64(total)
		hhi += share * share
		n++
		shares = append(shares, CategoryShare{
			Name:    a.Name,
			Amount:  a.Amount,
			Percent: share * 100,
		})
	}

	score := 0
	if n > 1 {
		minHHI := 1.0 / float64(n)
		normalized := (hhi - minHHI) / (1 - minHHI)
		score = int(math.Round((1 - normalized) * 100))
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
	}

	return DiversificationResult{
		Score:   score,
		Insight: classify(score),
		Shares:  shares,
	}
}

func classify(score int) Insight {
	switch {
	case score < highlyConcentratedBelow:
		return InsightHighlyConcentrated
	case score < moderateBelow:
		return InsightModeratelyDiverse
	default:
		return InsightWellDiversified
	}
}
