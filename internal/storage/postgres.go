package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bilancio/internal/core"
)

// PostgresStore is the shared-database variant of the ledger store, for
// setups where the budget file should live on a server instead of a local
// SQLite file. Semantics match the SQLite store row for row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS budgets (
			id BIGSERIAL PRIMARY KEY,
			budget_name TEXT NOT NULL,
			total_amount DOUBLE PRECISION NOT NULL,
			remaining_amount DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			budget_id BIGINT NOT NULL,
			transaction_name TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			export_status TEXT NOT NULL DEFAULT 'pending',
			exported_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_budgets_name ON budgets(budget_name)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_budget ON transactions(budget_id)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateBudget(ctx context.Context, name string, totalAmount float64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO budgets (budget_name, total_amount, remaining_amount) VALUES ($1, $2, $3) RETURNING id`,
		name, totalAmount, totalAmount).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert budget: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) DeleteBudgetByName(ctx context.Context, name string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM budgets WHERE budget_name = $1`, name)
	if err != nil {
		return 0, fmt.Errorf("delete budget: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) UpdateBudget(ctx context.Context, oldName, newName string, newTotalAmount float64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE budgets SET budget_name = $1, total_amount = $2 WHERE budget_name = $3`,
		newName, newTotalAmount, oldName)
	if err != nil {
		return 0, fmt.Errorf("update budget: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) FindBudgetIDByName(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM budgets WHERE budget_name = $1 ORDER BY id LIMIT 1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find budget id: %w", err)
	}
	return id, true, nil
}

func (s *PostgresStore) ListBudgets(ctx context.Context) ([]core.BudgetRow, error) {
	rows, err := s.pool.Query(ctx,
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

func (s *PostgresStore) SumTransactionAmounts(ctx context.Context, budgetID int64) (float64, error) {
	var total float64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE budget_id = $1`, budgetID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) CreateTransaction(ctx context.Context, budgetID int64, name string, amount float64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO transactions (budget_id, transaction_name, amount)
		 SELECT $1, $2, $3 WHERE EXISTS (SELECT 1 FROM budgets WHERE id = $1)
		 RETURNING id`,
		budgetID, name, amount).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, core.ErrBudgetNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) DeleteTransaction(ctx context.Context, budgetID int64, name string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM transactions WHERE budget_id = $1 AND transaction_name = $2`, budgetID, name)
	if err != nil {
		return 0, fmt.Errorf("delete transaction: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) UpdateTransaction(ctx context.Context, budgetID int64, oldName, newName string, newAmount float64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE transactions SET transaction_name = $1, amount = $2 WHERE budget_id = $3 AND transaction_name = $4`,
		newName, newAmount, budgetID, oldName)
	if err != nil {
		return 0, fmt.Errorf("update transaction: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) GetBudgetTotal(ctx context.Context, name string) (int64, float64, bool, error) {
	var (
		id    int64
		total float64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, total_amount FROM budgets WHERE budget_name = $1 ORDER BY id LIMIT 1`, name).Scan(&id, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("get budget total: %w", err)
	}
	return id, total, true, nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var tx core.Transaction
	err := s.pool.QueryRow(ctx,
		`SELECT id, budget_id, transaction_name, amount FROM transactions WHERE id = $1`, id).
		Scan(&tx.ID, &tx.BudgetID, &tx.Name, &tx.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (s *PostgresStore) ListPendingExport(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, budget_id, transaction_name, amount FROM transactions
		 WHERE export_status = $1 ORDER BY id LIMIT $2`, ExportPending, limit)
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

func (s *PostgresStore) MarkExported(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE transactions SET export_status = $1, exported_at = $2 WHERE id = $3`,
		ExportDone, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkExportError(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE transactions SET export_status = $1 WHERE id = $2`, ExportError, id)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	return nil
}

func (s *PostgresStore) BudgetName(ctx context.Context, budgetID int64) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx,
		`SELECT budget_name FROM budgets WHERE id = $1`, budgetID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("budget name: %w", err)
	}
	return name, nil
}
