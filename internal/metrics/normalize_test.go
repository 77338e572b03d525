package metrics

import (
	"errors"
	"testing"

	"finsight/internal/core"
)

func TestMonthlyEquivalent(t *testing.T) {
	cases := []struct {
		freq  core.Frequency
		cents int64
		want  int64
	}{
		{core.Daily, 1000, 30420},
		{core.Weekly, 1000, 4330},
		{core.BiWeekly, 1000, 2170},
		{core.Monthly, 1000, 1000},
		{core.Quarterly, 3000, 1000},
		{core.SemiAnnual, 6000, 1000},
		{core.Annual, 12000, 1000},
		{core.Once, 1000, 0},
		{core.Frequency("fortnightly"), 1000, 1000}, // unknown degrades to monthly
	}
	for _, tc := range cases {
		got, err := MonthlyEquivalent(core.Money{Cents: tc.cents}, tc.freq)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.freq, err)
		}
		if got.Cents != tc.want {
			t.Fatalf("%s: expected %d cents, got %d", tc.freq, tc.want, got.Cents)
		}
	}
}

func TestMonthlyEquivalentRejectsNegative(t *testing.T) {
	_, err := MonthlyEquivalent(core.Money{Cents: -100}, core.Monthly)
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

// Doubling the amount doubles the monthly equivalent for every recurring
// frequency.
func TestMonthlyEquivalentLinearity(t *testing.T) {
	freqs := []core.Frequency{core.Daily, core.Weekly, core.BiWeekly, core.Monthly, core.Quarterly, core.SemiAnnual, core.Annual}
	for _, f := range freqs {
		for _, cents := range []int64{100, 3333, 123456} {
			one, err := MonthlyEquivalent(core.Money{Cents: cents}, f)
			if err != nil {
				t.Fatalf("%s: %v", f, err)
			}
			two, err := MonthlyEquivalent(core.Money{Cents: 2 * cents}, f)
			if err != nil {
				t.Fatalf("%s: %v", f, err)
			}
			// Allow one cent of drift from independent rounding.
			diff := two.Cents - 2*one.Cents
			if diff < -1 || diff > 1 {
				t.Fatalf("%s: 2x%d gave %d, expected ~%d", f, cents, two.Cents, 2*one.Cents)
			}
		}
	}
}

func TestMultiplierUnknown(t *testing.T) {
	if _, known := Multiplier(core.Frequency("lunar")); known {
		t.Fatalf("expected unknown frequency")
	}
	if m, known := Multiplier(core.Weekly); !known || m != 4.33 {
		t.Fatalf("expected weekly 4.33, got %v known=%v", m, known)
	}
}
