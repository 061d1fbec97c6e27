package core

import (
	"errors"
	"testing"
)

func TestValidateNewBudget(t *testing.T) {
	cases := []struct {
		name    string
		budget  string
		total   float64
		wantErr error
	}{
		{"zero total", "Groceries", 0, nil},
		{"upper bound", "Groceries", 1_000_000, nil},
		{"middle of range", "Groceries", 500, nil},
		{"empty name", "", 100, ErrEmptyBudgetName},
		{"whitespace name", "   ", 100, ErrEmptyBudgetName},
		{"negative total", "Groceries", -0.01, ErrTotalOutOfRange},
		{"total above cap", "Groceries", 1_000_000.01, ErrTotalOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateNewBudget(tc.budget, tc.total)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ValidateNewBudget(%q, %v) = %v, want %v", tc.budget, tc.total, err, tc.wantErr)
			}
		})
	}
}

func TestBelowThreshold(t *testing.T) {
	cases := []struct {
		remaining float64
		total     float64
		want      bool
	}{
		{95, 1000, true},    // below 10%
		{100, 1000, false},  // exactly 10% does not alert
		{100.01, 1000, false},
		{99.99, 1000, true},
		{485, 500, false},
		{45, 500, true},
		{0, 0, false}, // zero-total budget never alerts
	}
	for i, tc := range cases {
		if got := BelowThreshold(tc.remaining, tc.total); got != tc.want {
			t.Errorf("case %d: BelowThreshold(%v, %v) = %v, want %v", i, tc.remaining, tc.total, got, tc.want)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	if got := OutcomeApplied.String(); got != "applied" {
		t.Errorf("OutcomeApplied.String() = %q", got)
	}
	if got := OutcomeBudgetNotFound.String(); got != "budget not found" {
		t.Errorf("OutcomeBudgetNotFound.String() = %q", got)
	}
	if got := Outcome(99).String(); got != "unknown" {
		t.Errorf("Outcome(99).String() = %q", got)
	}
}
