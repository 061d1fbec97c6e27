package core

import (
	"errors"
	"strings"
)

// MaxBudgetTotal is the upper bound accepted for a budget's total amount at
// creation time. The lower bound is zero.
const MaxBudgetTotal = 1_000_000.0

// LowBalanceRatio is the fraction of the total amount below which the
// remaining balance triggers an alert. The comparison is strict: a balance
// exactly at 10% does not alert.
const LowBalanceRatio = 0.10

type (
	// Budget is a named allotment. RemainingAmount is a snapshot taken at
	// creation; reporting paths recompute the balance from transactions
	// instead of trusting it.
	Budget struct {
		ID              int64
		Name            string
		TotalAmount     float64
		RemainingAmount float64
	}

	// Transaction is a signed amount recorded against exactly one budget.
	// A negative amount is a refund.
	Transaction struct {
		ID       int64
		BudgetID int64
		Name     string
		Amount   float64
	}

	// BudgetRow is one line of the budget listing, read straight from
	// storage including the stored remaining_amount column.
	BudgetRow struct {
		ID              int64
		Name            string
		TotalAmount     float64
		RemainingAmount float64
	}

	// BalanceReport is the result of the stored-total balance read path.
	BalanceReport struct {
		BudgetID    int64
		TotalAmount float64
		Remaining   float64
	}

	// LowBalanceAlert carries the values the notifier reports when a
	// budget drops below the low-balance threshold.
	LowBalanceAlert struct {
		BudgetName  string
		TotalAmount float64
		Remaining   float64
	}
)

var (
	ErrEmptyBudgetName = errors.New("empty budget name")
	ErrTotalOutOfRange = errors.New("total amount out of range")
	ErrBudgetNotFound  = errors.New("budget not found")
)

// ValidateNewBudget checks the creation-time constraints: a non-blank name
// and a total amount within [0, MaxBudgetTotal]. Edits deliberately skip
// this check.
func ValidateNewBudget(name string, totalAmount float64) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyBudgetName
	}
	if totalAmount < 0 || totalAmount > MaxBudgetTotal {
		return ErrTotalOutOfRange
	}
	return nil
}

// BelowThreshold reports whether a remaining balance is low enough to alert
// relative to the given total.
func BelowThreshold(remaining, totalAmount float64) bool {
	return remaining < totalAmount*LowBalanceRatio
}

// Outcome classifies the result of a transaction mutation addressed by
// budget and transaction name. Not-found conditions are part of normal
// control flow and are reported here rather than as errors.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeNotFound
	OutcomeBudgetNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeNotFound:
		return "transaction not found"
	case OutcomeBudgetNotFound:
		return "budget not found"
	default:
		return "unknown"
	}
}
