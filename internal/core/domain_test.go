package core

import (
	"testing"
	"time"
)

func TestValidPeriod(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01", true},
		{"2025-12", true},
		{"2025-13", false},
		{"2025-00", false},
		{"2025-1", false},
		{"25-01", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidPeriod(tc.in); got != tc.ok {
			t.Fatalf("%q expected %v, got %v", tc.in, tc.ok, got)
		}
	}
}

func TestFrequencyKnown(t *testing.T) {
	for _, f := range []Frequency{Daily, Weekly, BiWeekly, Monthly, Quarterly, SemiAnnual, Annual, Once} {
		if !f.Known() {
			t.Fatalf("%s should be known", f)
		}
	}
	if Frequency("fortnightly").Known() {
		t.Fatalf("unexpected known frequency")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:        NewDate(2025, 3, 15),
		Kind:        KindExpense,
		Description: "groceries",
		Amount:      Money{Cents: 4250},
		Category:    "Food",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Date: Date{Time: time.Time{}}, Kind: KindExpense, Description: "a", Amount: Money{Cents: 1}, Category: "c"},
		{Date: NewDate(2025, 3, 15), Kind: "transfer", Description: "a", Amount: Money{Cents: 1}, Category: "c"},
		{Date: NewDate(2025, 3, 15), Kind: KindExpense, Description: "", Amount: Money{Cents: 1}, Category: "c"},
		{Date: NewDate(2025, 3, 15), Kind: KindExpense, Description: "a", Amount: Money{Cents: 0}, Category: "c"},
		{Date: NewDate(2025, 3, 15), Kind: KindExpense, Description: "a", Amount: Money{Cents: 1}, Category: ""},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDebtValidate(t *testing.T) {
	good := Debt{Name: "car loan", Balance: Money{Cents: 500000}, AnnualRate: 0.07, MinPayment: Money{Cents: 15000}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Debt{
		{Name: "", Balance: Money{Cents: 1}, AnnualRate: 0.1, MinPayment: Money{Cents: 1}},
		{Name: "x", Balance: Money{Cents: -1}, AnnualRate: 0.1, MinPayment: Money{Cents: 1}},
		{Name: "x", Balance: Money{Cents: 1}, AnnualRate: -0.1, MinPayment: Money{Cents: 1}},
		{Name: "x", Balance: Money{Cents: 1}, AnnualRate: 0.1, MinPayment: Money{Cents: -1}},
	}
	for i, d := range bads {
		if err := d.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestSubscriptionValidate(t *testing.T) {
	usage := 70
	good := Subscription{Name: "streaming", Cost: Money{Cents: 1299}, Frequency: Monthly, UsageScore: &usage}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	over := 101
	bads := []Subscription{
		{Name: "", Cost: Money{Cents: 1}},
		{Name: "x", Cost: Money{Cents: 0}},
		{Name: "x", Cost: Money{Cents: 1}, UsageScore: &over},
		{Name: "x", Cost: Money{Cents: 1}, ValueScore: &over},
	}
	for i, s := range bads {
		if err := s.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDatePeriod(t *testing.T) {
	d := NewDate(2025, 3, 15)
	if got := d.Period(); got != "2025-03" {
		t.Fatalf("expected 2025-03, got %s", got)
	}
}
