// Package storage provides the durable ledger store implementations backing
// the engine: SQLite (default), Postgres and an in-memory store.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

// Export states tracked per transaction for the sheets mirror.
const (
	ExportPending = "pending"
	ExportDone    = "done"
	ExportError   = "error"
)

// SQLiteStore persists budgets and transactions in a local SQLite file.
//
// Foreign keys are declared but not enforced: deleting a budget leaves its
// transactions orphaned on purpose.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) CreateBudget(ctx context.Context, name string, totalAmount float64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (budget_name, total_amount, remaining_amount) VALUES (?, ?, ?)`,
		name, totalAmount, totalAmount)
	if err != nil {
		return 0, fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("budget id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) DeleteBudgetByName(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE budget_name = ?`, name)
	if err != nil {
		return 0, fmt.Errorf("delete budget: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) UpdateBudget(ctx context.Context, oldName, newName string, newTotalAmount float64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE budgets SET budget_name = ?, total_amount = ? WHERE budget_name = ?`,
		newName, newTotalAmount, oldName)
	if err != nil {
		return 0, fmt.Errorf("update budget: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) FindBudgetIDByName(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM budgets WHERE budget_name = ? ORDER BY id LIMIT 1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find budget id: %w", err)
	}
	return id, true, nil
}

func (s *SQLiteStore) ListBudgets(ctx context.Context) ([]core.BudgetRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, budget_name, total_amount, remaining_amount FROM budgets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetRow
	for rows.Next() {
		var r core.BudgetRow
		if err := rows.Scan(&r.ID, &r.Name, &r.TotalAmount, &r.RemainingAmount); err != nil {
			return nil, fmt.Errorf("scan budget row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) SumTransactionAmounts(ctx context.Context, budgetID int64) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE budget_id = ?`, budgetID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return total, nil
}

// CreateTransaction inserts a transaction guarded by an existence check on
// the budget in the same statement, so the resolve-then-insert window cannot
// produce a row referencing a missing budget.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, budgetID int64, name string, amount float64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (budget_id, transaction_name, amount)
		 SELECT ?, ?, ? WHERE EXISTS (SELECT 1 FROM budgets WHERE id = ?)`,
		budgetID, name, amount, budgetID)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	if affected == 0 {
		return 0, core.ErrBudgetNotFound
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) DeleteTransaction(ctx context.Context, budgetID int64, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE budget_id = ? AND transaction_name = ?`,
		budgetID, name)
	if err != nil {
		return 0, fmt.Errorf("delete transaction: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) UpdateTransaction(ctx context.Context, budgetID int64, oldName, newName string, newAmount float64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET transaction_name = ?, amount = ? WHERE budget_id = ? AND transaction_name = ?`,
		newName, newAmount, budgetID, oldName)
	if err != nil {
		return 0, fmt.Errorf("update transaction: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) GetBudgetTotal(ctx context.Context, name string) (int64, float64, bool, error) {
	var (
		id    int64
		total float64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, total_amount FROM budgets WHERE budget_name = ? ORDER BY id LIMIT 1`, name).Scan(&id, &total)
	if err == sql.ErrNoRows {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("get budget total: %w", err)
	}
	return id, total, true, nil
}

// GetTransaction loads a single transaction by id for the export worker.
func (s *SQLiteStore) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var tx core.Transaction
	err := s.db.QueryRowContext(ctx,
		`SELECT id, budget_id, transaction_name, amount FROM transactions WHERE id = ?`, id).
		Scan(&tx.ID, &tx.BudgetID, &tx.Name, &tx.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// ListPendingExport returns up to limit transactions that still need to be
// mirrored to the export target.
func (s *SQLiteStore) ListPendingExport(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, budget_id, transaction_name, amount FROM transactions
		 WHERE export_status = ? ORDER BY id LIMIT ?`, ExportPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		if err := rows.Scan(&tx.ID, &tx.BudgetID, &tx.Name, &tx.Amount); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// MarkExported records a successful export.
func (s *SQLiteStore) MarkExported(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET export_status = ?, exported_at = ? WHERE id = ?`,
		ExportDone, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

// MarkExportError flags a transaction whose export failed; the periodic scan
// leaves it alone until an operator intervenes.
func (s *SQLiteStore) MarkExportError(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET export_status = ? WHERE id = ?`, ExportError, id)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	return nil
}

// BudgetName resolves a budget id back to its name; used when exporting
// rows, where orphaned transactions fall back to an empty name.
func (s *SQLiteStore) BudgetName(ctx context.Context, budgetID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT budget_name FROM budgets WHERE id = ?`, budgetID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("budget name: %w", err)
	}
	return name, nil
}
