package storage

import (
	"context"
	"fmt"
	"sync"

	"bilancio/internal/core"
)

type memTransaction struct {
	core.Transaction
	exportStatus string
}

// MemoryStore keeps the ledger in process memory. It backs the "memory"
// backend and the engine tests, and follows the same first-match and
// orphaning semantics as the SQLite store.
type MemoryStore struct {
	mu           sync.Mutex
	budgets      []core.Budget
	transactions []memTransaction
	nextBudgetID int64
	nextTxID     int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextBudgetID: 1, nextTxID: 1}
}

func (s *MemoryStore) CreateBudget(_ context.Context, name string, totalAmount float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextBudgetID
	s.nextBudgetID++
	s.budgets = append(s.budgets, core.Budget{
		ID:              id,
		Name:            name,
		TotalAmount:     totalAmount,
		RemainingAmount: totalAmount,
	})
	return id, nil
}

func (s *MemoryStore) DeleteBudgetByName(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []core.Budget
	var affected int64
	for _, b := range s.budgets {
		if b.Name == name {
			affected++
			continue
		}
		kept = append(kept, b)
	}
	s.budgets = kept
	return affected, nil
}

func (s *MemoryStore) UpdateBudget(_ context.Context, oldName, newName string, newTotalAmount float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	for i := range s.budgets {
		if s.budgets[i].Name == oldName {
			s.budgets[i].Name = newName
			s.budgets[i].TotalAmount = newTotalAmount
			affected++
		}
	}
	return affected, nil
}

func (s *MemoryStore) FindBudgetIDByName(_ context.Context, name string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.budgets {
		if b.Name == name {
			return b.ID, true, nil
		}
	}
	return 0, false, nil
}

func (s *MemoryStore) ListBudgets(_ context.Context) ([]core.BudgetRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.BudgetRow, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, core.BudgetRow{
			ID:              b.ID,
			Name:            b.Name,
			TotalAmount:     b.TotalAmount,
			RemainingAmount: b.RemainingAmount,
		})
	}
	return out, nil
}

func (s *MemoryStore) SumTransactionAmounts(_ context.Context, budgetID int64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, tx := range s.transactions {
		if tx.BudgetID == budgetID {
			total += tx.Amount
		}
	}
	return total, nil
}

func (s *MemoryStore) CreateTransaction(_ context.Context, budgetID int64, name string, amount float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.budgetExists(budgetID) {
		return 0, core.ErrBudgetNotFound
	}
	id := s.nextTxID
	s.nextTxID++
	s.transactions = append(s.transactions, memTransaction{
		Transaction: core.Transaction{
			ID:       id,
			BudgetID: budgetID,
			Name:     name,
			Amount:   amount,
		},
		exportStatus: ExportPending,
	})
	return id, nil
}

func (s *MemoryStore) DeleteTransaction(_ context.Context, budgetID int64, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []memTransaction
	var affected int64
	for _, tx := range s.transactions {
		if tx.BudgetID == budgetID && tx.Name == name {
			affected++
			continue
		}
		kept = append(kept, tx)
	}
	s.transactions = kept
	return affected, nil
}

func (s *MemoryStore) UpdateTransaction(_ context.Context, budgetID int64, oldName, newName string, newAmount float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	for i := range s.transactions {
		if s.transactions[i].BudgetID == budgetID && s.transactions[i].Name == oldName {
			s.transactions[i].Name = newName
			s.transactions[i].Amount = newAmount
			affected++
		}
	}
	return affected, nil
}

func (s *MemoryStore) GetBudgetTotal(_ context.Context, name string) (int64, float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.budgets {
		if b.Name == name {
			return b.ID, b.TotalAmount, true, nil
		}
	}
	return 0, 0, false, nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range s.transactions {
		if tx.ID == id {
			return tx.Transaction, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("get transaction: no row with id %d", id)
}

func (s *MemoryStore) ListPendingExport(_ context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, tx := range s.transactions {
		if tx.exportStatus != ExportPending {
			continue
		}
		out = append(out, tx.Transaction)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkExported(_ context.Context, id int64) error {
	return s.setExportStatus(id, ExportDone)
}

func (s *MemoryStore) MarkExportError(_ context.Context, id int64) error {
	return s.setExportStatus(id, ExportError)
}

func (s *MemoryStore) BudgetName(_ context.Context, budgetID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.budgets {
		if b.ID == budgetID {
			return b.Name, nil
		}
	}
	return "", nil
}

func (s *MemoryStore) setExportStatus(id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.transactions {
		if s.transactions[i].ID == id {
			s.transactions[i].exportStatus = status
			return nil
		}
	}
	return fmt.Errorf("set export status: no row with id %d", id)
}

func (s *MemoryStore) budgetExists(id int64) bool {
	for _, b := range s.budgets {
		if b.ID == id {
			return true
		}
	}
	return false
}
