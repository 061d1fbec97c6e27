package ledger

import (
	"context"

	"bilancio/internal/core"
)

// Store is the persistence collaborator the engine depends on. Lookups by
// name follow first-match semantics when several budgets share a name;
// mutation counts report how many rows were touched so callers can branch on
// zero without treating it as an error.
type Store interface {
	// CreateBudget persists a new budget with remaining_amount equal to
	// totalAmount and returns its identifier.
	CreateBudget(ctx context.Context, name string, totalAmount float64) (int64, error)

	// DeleteBudgetByName removes every budget matching name and returns
	// the number of rows affected. Transactions are not touched.
	DeleteBudgetByName(ctx context.Context, name string) (int64, error)

	// UpdateBudget sets name and total_amount on the budgets matching
	// oldName. The stored remaining_amount is left as is.
	UpdateBudget(ctx context.Context, oldName, newName string, newTotalAmount float64) (int64, error)

	// FindBudgetIDByName returns the identifier of the first budget whose
	// name matches, or ok=false when there is none.
	FindBudgetIDByName(ctx context.Context, name string) (int64, bool, error)

	// ListBudgets returns all budgets as stored, including the snapshot
	// remaining_amount column.
	ListBudgets(ctx context.Context) ([]core.BudgetRow, error)

	// SumTransactionAmounts totals the transaction amounts recorded for a
	// budget. A budget with no transactions sums to 0, never an error.
	SumTransactionAmounts(ctx context.Context, budgetID int64) (float64, error)

	// CreateTransaction records a transaction against an existing budget.
	CreateTransaction(ctx context.Context, budgetID int64, name string, amount float64) (int64, error)

	// DeleteTransaction removes the transactions matching (budgetID, name)
	// and returns the number of rows affected.
	DeleteTransaction(ctx context.Context, budgetID int64, name string) (int64, error)

	// UpdateTransaction sets name and amount on the transactions matching
	// (budgetID, oldName) and returns the number of rows affected.
	UpdateTransaction(ctx context.Context, budgetID int64, oldName, newName string, newAmount float64) (int64, error)

	// GetBudgetTotal returns the identifier and stored total_amount of the
	// first budget matching name, or ok=false when there is none.
	GetBudgetTotal(ctx context.Context, name string) (id int64, totalAmount float64, ok bool, err error)
}
