// Package ledger implements the budget ledger engine: validated budget and
// transaction mutations, on-demand balance computation and the low-balance
// alert rule.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/alert"
	"bilancio/internal/cache"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

// EventPublisher receives a notification after a transaction row has been
// persisted, so a worker can mirror it to the export target. A nil publisher
// degrades to local-only operation.
type EventPublisher interface {
	PublishTransactionRecorded(ctx context.Context, txID int64) error
}

const (
	nameCacheSize = 256
	nameCacheTTL  = 5 * time.Minute
)

// Engine orchestrates all ledger operations against the Store. Operations
// are synchronous; the engine assumes a single writer.
type Engine struct {
	store    Store
	notifier alert.Notifier
	events   EventPublisher
	names    *cache.LRU[int64]
}

// New creates an engine. notifier may be nil to disable alerts (tests);
// events may be nil to disable export notifications.
func New(store Store, notifier alert.Notifier, events EventPublisher) *Engine {
	return &Engine{
		store:    store,
		notifier: notifier,
		events:   events,
		names:    cache.NewLRU[int64](nameCacheSize, nameCacheTTL),
	}
}

// CreateBudget validates and persists a new budget, returning its id. The
// stored remaining_amount starts equal to totalAmount.
func (e *Engine) CreateBudget(ctx context.Context, name string, totalAmount float64) (int64, error) {
	if err := core.ValidateNewBudget(name, totalAmount); err != nil {
		return 0, err
	}

	id, err := e.store.CreateBudget(ctx, name, totalAmount)
	if err != nil {
		return 0, fmt.Errorf("create budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget created",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpCreate,
		applog.FieldBudgetID, id,
		applog.FieldBudgetName, name,
		applog.FieldTotalAmount, totalAmount)

	return id, nil
}

// DeleteBudget removes the budget(s) matching name and reports whether any
// row was affected. Orphaned transactions are deliberately left in place.
func (e *Engine) DeleteBudget(ctx context.Context, name string) (bool, error) {
	affected, err := e.store.DeleteBudgetByName(ctx, name)
	if err != nil {
		return false, fmt.Errorf("delete budget: %w", err)
	}
	e.names.Delete(name)

	slog.InfoContext(ctx, "Budget deleted",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpDelete,
		applog.FieldBudgetName, name,
		applog.FieldAffected, affected)

	return affected > 0, nil
}

// EditBudget renames a budget and resets its total amount. The new total is
// not re-validated against the creation range and the stored
// remaining_amount is not recomputed.
func (e *Engine) EditBudget(ctx context.Context, oldName, newName string, newTotalAmount float64) (bool, error) {
	affected, err := e.store.UpdateBudget(ctx, oldName, newName, newTotalAmount)
	if err != nil {
		return false, fmt.Errorf("edit budget: %w", err)
	}
	e.names.Delete(oldName)
	e.names.Delete(newName)

	slog.InfoContext(ctx, "Budget updated",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpUpdate,
		applog.FieldBudgetName, newName,
		applog.FieldTotalAmount, newTotalAmount,
		applog.FieldAffected, affected)

	return affected > 0, nil
}

// ListBudgets returns the stored budget rows. The remaining_amount column is
// the creation-time snapshot, shown as such in the listing; authoritative
// balances come from ComputeRemaining.
func (e *Engine) ListBudgets(ctx context.Context) ([]core.BudgetRow, error) {
	rows, err := e.store.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return rows, nil
}

// FindBudgetID resolves a budget name to the id of its first match.
func (e *Engine) FindBudgetID(ctx context.Context, name string) (int64, bool, error) {
	if id, ok := e.names.Get(name); ok {
		return id, true, nil
	}
	id, ok, err := e.store.FindBudgetIDByName(ctx, name)
	if err != nil {
		return 0, false, fmt.Errorf("find budget: %w", err)
	}
	if ok {
		e.names.Set(name, id)
	}
	return id, ok, err
}

// AddTransaction records a transaction against the named budget. The amount
// is unconstrained; a negative value acts as a refund.
func (e *Engine) AddTransaction(ctx context.Context, budgetName, description string, amount float64) error {
	id, ok, err := e.FindBudgetID(ctx, budgetName)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrBudgetNotFound
	}

	txID, err := e.store.CreateTransaction(ctx, id, description, amount)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpCreate,
		applog.FieldBudgetID, id,
		applog.FieldTxID, txID,
		applog.FieldTxName, description,
		applog.FieldAmount, amount)

	e.publishRecorded(ctx, txID)
	return nil
}

// RemoveTransaction deletes the transactions matching the given name within
// the named budget. Missing budget or transaction is an outcome, not an
// error.
func (e *Engine) RemoveTransaction(ctx context.Context, budgetName, txName string) (core.Outcome, error) {
	id, ok, err := e.FindBudgetID(ctx, budgetName)
	if err != nil {
		return core.OutcomeBudgetNotFound, err
	}
	if !ok {
		return core.OutcomeBudgetNotFound, nil
	}

	affected, err := e.store.DeleteTransaction(ctx, id, txName)
	if err != nil {
		return core.OutcomeNotFound, fmt.Errorf("delete transaction: %w", err)
	}
	if affected == 0 {
		return core.OutcomeNotFound, nil
	}

	slog.InfoContext(ctx, "Transaction removed",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpDelete,
		applog.FieldBudgetID, id,
		applog.FieldTxName, txName,
		applog.FieldAffected, affected)

	return core.OutcomeApplied, nil
}

// EditTransaction updates name and amount of the transactions matching
// (budget, oldName), with the same resolution discipline as
// RemoveTransaction.
func (e *Engine) EditTransaction(ctx context.Context, budgetName, oldName, newName string, newAmount float64) (core.Outcome, error) {
	id, ok, err := e.FindBudgetID(ctx, budgetName)
	if err != nil {
		return core.OutcomeBudgetNotFound, err
	}
	if !ok {
		return core.OutcomeBudgetNotFound, nil
	}

	affected, err := e.store.UpdateTransaction(ctx, id, oldName, newName, newAmount)
	if err != nil {
		return core.OutcomeNotFound, fmt.Errorf("update transaction: %w", err)
	}
	if affected == 0 {
		return core.OutcomeNotFound, nil
	}

	slog.InfoContext(ctx, "Transaction updated",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpUpdate,
		applog.FieldBudgetID, id,
		applog.FieldTxName, newName,
		applog.FieldAmount, newAmount,
		applog.FieldAffected, affected)

	return core.OutcomeApplied, nil
}

// ComputeRemaining returns totalAmount minus the sum of the budget's
// transaction amounts, firing the low-balance alert when the result drops
// below 10% of totalAmount. The threshold is evaluated against the
// caller-supplied total, so the alert is only meaningful when the caller
// passes the budget's real total. Pure read; nothing is persisted.
func (e *Engine) ComputeRemaining(ctx context.Context, budgetName string, totalAmount float64) (float64, error) {
	id, ok, err := e.FindBudgetID(ctx, budgetName)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, core.ErrBudgetNotFound
	}

	totalSpent, err := e.store.SumTransactionAmounts(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}

	remaining := totalAmount - totalSpent

	if core.BelowThreshold(remaining, totalAmount) && e.notifier != nil {
		if err := e.notifier.LowBalance(ctx, core.LowBalanceAlert{
			BudgetName:  budgetName,
			TotalAmount: totalAmount,
			Remaining:   remaining,
		}); err != nil {
			slog.ErrorContext(ctx, "Low-balance notification failed",
				applog.FieldComponent, applog.ComponentLedger,
				applog.FieldBudgetName, budgetName,
				applog.FieldError, err)
		}
	}

	return remaining, nil
}

// ShowRemaining reports the balance computed against the *stored* total
// amount. Unlike ComputeRemaining it never triggers the alert rule, and an
// unresolved budget is reported as found=false rather than an error.
func (e *Engine) ShowRemaining(ctx context.Context, budgetName string) (core.BalanceReport, bool, error) {
	id, totalAmount, ok, err := e.store.GetBudgetTotal(ctx, budgetName)
	if err != nil {
		return core.BalanceReport{}, false, fmt.Errorf("get budget total: %w", err)
	}
	if !ok {
		return core.BalanceReport{}, false, nil
	}

	totalSpent, err := e.store.SumTransactionAmounts(ctx, id)
	if err != nil {
		return core.BalanceReport{}, false, fmt.Errorf("sum transactions: %w", err)
	}

	return core.BalanceReport{
		BudgetID:    id,
		TotalAmount: totalAmount,
		Remaining:   totalAmount - totalSpent,
	}, true, nil
}

func (e *Engine) publishRecorded(ctx context.Context, txID int64) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishTransactionRecorded(ctx, txID); err != nil {
		// The row is already persisted; export will catch up through the
		// periodic pending scan.
		slog.ErrorContext(ctx, "Failed to publish transaction-recorded event",
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldTxID, txID,
			applog.FieldError, err)
	}
}
