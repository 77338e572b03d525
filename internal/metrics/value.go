package metrics

import (
	"math"
	"sort"

	"finsight/internal/core"
)

// ValueCategory buckets a subscription's combined usage/value score.
type ValueCategory string

const (
	ValuePoor ValueCategory = "poor"
	ValueFair ValueCategory = "fair"
	ValueGood ValueCategory = "good"
)

const (
	poorBelow = 40
	fairBelow = 70

	// neutralSignal substitutes for a missing usage or value rating so one
	// unrated subscription never fails the whole batch.
	neutralSignal = 50
)

// SubscriptionValue is a subscription annotated with its monthly-equivalent
// cost and value classification.
type SubscriptionValue struct {
	Subscription core.Subscription
	MonthlyCost  core.Money
	Score        int
	Category     ValueCategory
}

// ClassifyValue scores every subscription by an even weighting of its usage
// and value signals and ranks the result by monthly-equivalent cost,
// most expensive first. Ties order by name for stable output.
func ClassifyValue(subs []core.Subscription) []SubscriptionValue {
	out := make([]SubscriptionValue, 0, len(subs))
	for _, s := range subs {
		usage := neutralSignal
		if s.UsageScore != nil {
			usage = *s.UsageScore
		}
		value := neutralSignal
		if s.ValueScore != nil {
			value = *s.ValueScore
		}
		score := int(math.Round(0.5*float64(usage) + 0.5*float64(value)))

		monthly, err := MonthlyEquivalent(s.Cost, s.Frequency)
		if err != nil {
			monthly = core.Money{}
		}

		out = append(out, SubscriptionValue{
			Subscription: s,
			MonthlyCost:  monthly,
			Score:        score,
			Category:     bucketValue(score),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MonthlyCost.Cents != out[j].MonthlyCost.Cents {
			return out[i].MonthlyCost.Cents > out[j].MonthlyCost.Cents
		}
		return out[i].Subscription.Name < out[j].Subscription.Name
	})
	return out
}

func bucketValue(score int) ValueCategory {
	switch {
	case score < poorBelow:
		return ValuePoor
	case score < fairBelow:
		return ValueFair
	default:
		return ValueGood
	}
}
