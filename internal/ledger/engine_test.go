package ledger

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

type spyNotifier struct {
	alerts []core.LowBalanceAlert
}

func (n *spyNotifier) LowBalance(_ context.Context, a core.LowBalanceAlert) error {
	n.alerts = append(n.alerts, a)
	return nil
}

type spyPublisher struct {
	published []int64
	err       error
}

func (p *spyPublisher) PublishTransactionRecorded(_ context.Context, txID int64) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, txID)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *spyNotifier) {
	t.Helper()
	notifier := &spyNotifier{}
	return New(storage.NewMemoryStore(), notifier, nil), notifier
}

func TestCreateBudget(t *testing.T) {
	tests := []struct {
		name       string
		budgetName string
		total      float64
		wantErr    error
	}{
		{"valid budget", "Groceries", 500, nil},
		{"zero total is valid", "Empty", 0, nil},
		{"max total is valid", "Max", core.MaxBudgetTotal, nil},
		{"empty name", "", 100, core.ErrEmptyBudgetName},
		{"whitespace name", "   ", 100, core.ErrEmptyBudgetName},
		{"negative total", "Neg", -1, core.ErrTotalOutOfRange},
		{"total above max", "Big", core.MaxBudgetTotal + 1, core.ErrTotalOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := newTestEngine(t)

			id, err := engine.CreateBudget(context.Background(), tt.budgetName, tt.total)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateBudget() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && id == 0 {
				t.Error("CreateBudget() returned id 0 for a valid budget")
			}
		})
	}
}

func TestDeleteBudget(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.CreateBudget(ctx, "Groceries", 500); err != nil {
		t.Fatal(err)
	}

	removed, err := engine.DeleteBudget(ctx, "Groceries")
	if err != nil {
		t.Fatalf("DeleteBudget() error = %v", err)
	}
	if !removed {
		t.Error("DeleteBudget() = false, want true")
	}

	removed, err = engine.DeleteBudget(ctx, "Groceries")
	if err != nil {
		t.Fatalf("DeleteBudget() error = %v", err)
	}
	if removed {
		t.Error("DeleteBudget() = true for a missing budget")
	}
}

func TestDeleteBudgetLeavesTransactions(t *testing.T) {
	store := storage.NewMemoryStore()
	engine := New(store, nil, nil)
	ctx := context.Background()

	id, err := engine.CreateBudget(ctx, "Groceries", 500)
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.AddTransaction(ctx, "Groceries", "Milk", 10); err != nil {
		t.Fatal(err)
	}

	if _, err := engine.DeleteBudget(ctx, "Groceries"); err != nil {
		t.Fatal(err)
	}

	// Transactions are not cascaded; the row stays behind, orphaned.
	sum, err := store.SumTransactionAmounts(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if sum != 10 {
		t.Errorf("orphaned transaction sum = %v, want 10", sum)
	}
}

func TestEditBudget(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.CreateBudget(ctx, "Groceries", 500); err != nil {
		t.Fatal(err)
	}

	t.Run("rename and reset total", func(t *testing.T) {
		updated, err := engine.EditBudget(ctx, "Groceries", "Food", 600)
		if err != nil {
			t.Fatalf("EditBudget() error = %v", err)
		}
		if !updated {
			t.Error("EditBudget() = false, want true")
		}

		rows, err := engine.ListBudgets(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 || rows[0].Name != "Food" || rows[0].TotalAmount != 600 {
			t.Errorf("after edit, rows = %+v", rows)
		}
	})

	t.Run("edit skips creation-time validation", func(t *testing.T) {
		updated, err := engine.EditBudget(ctx, "Food", "Food", core.MaxBudgetTotal*2)
		if err != nil {
			t.Fatalf("EditBudget() error = %v", err)
		}
		if !updated {
			t.Error("EditBudget() = false, want true")
		}
	})

	t.Run("missing budget", func(t *testing.T) {
		updated, err := engine.EditBudget(ctx, "Nothing", "Else", 100)
		if err != nil {
			t.Fatalf("EditBudget() error = %v", err)
		}
		if updated {
			t.Error("EditBudget() = true for a missing budget")
		}
	})
}

func TestEditBudgetInvalidatesNameCache(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.CreateBudget(ctx, "Groceries", 500); err != nil {
		t.Fatal(err)
	}
	// Warm the cache with the old name.
	if _, _, err := engine.FindBudgetID(ctx, "Groceries"); err != nil {
		t.Fatal(err)
	}

	if _, err := engine.EditBudget(ctx, "Groceries", "Food", 500); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := engine.FindBudgetID(ctx, "Groceries"); ok {
		t.Error("FindBudgetID resolved the old name after a rename")
	}
	if _, ok, _ := engine.FindBudgetID(ctx, "Food"); !ok {
		t.Error("FindBudgetID did not resolve the new name after a rename")
	}
}

func TestFindBudgetIDFirstMatch(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.CreateBudget(ctx, "Groceries", 500)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.CreateBudget(ctx, "Groceries", 900); err != nil {
		t.Fatal(err)
	}

	id, ok, err := engine.FindBudgetID(ctx, "Groceries")
	if err != nil || !ok {
		t.Fatalf("FindBudgetID() = (%d, %v, %v)", id, ok, err)
	}
	if id != first {
		t.Errorf("FindBudgetID() = %d, want first match %d", id, first)
	}
}

func TestAddTransaction(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.CreateBudget(ctx, "Groceries", 500); err != nil {
		t.Fatal(err)
	}

	if err := engine.AddTransaction(ctx, "Groceries", "Milk", 10); err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}

	err := engine.AddTransaction(ctx, "Nothing", "Milk", 10)
	if !errors.Is(err, core.ErrBudgetNotFound) {
		t.Errorf("AddTransaction() error = %v, want ErrBudgetNotFound", err)
	}
}

func TestAddTransactionPublishesEvent(t *testing.T) {
	publisher := &spyPublisher{}
	engine := New(storage.NewMemoryStore(), nil, publisher)
	ctx := context.Background()

	if _, err := engine.CreateBudget(ctx, "Groceries", 500); err != nil {
		t.Fatal(err)
	}
	if err := engine.AddTransaction(ctx, "Groceries", "Milk", 10); err != nil {
		t.Fatal(err)
	}

	if len(publisher.published) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.published))
	}
}

func TestAddTransactionSurvivesPublishFailure(t *testing.T) {
	publisher := &spyPublisher{err: errors.New("broker down")}
	store := storage.NewMemoryStore()
	engine := New(store, nil, publisher)
	ctx := context.Background()

	id, err := engine.CreateBudget(ctx, "Groceries", 500)
	if err != nil {
		t.Fatal(err)
	}

	// A dead broker must not lose the write.
	if err := engine.AddTransaction(ctx, "Groceries", "Milk", 10); err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	sum, _ := store.SumTransactionAmounts(ctx, id)
	if sum != 10 {
		t.Errorf("transaction sum = %v, want 10", sum)
	}
}

func TestRemoveTransaction(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.CreateBudget(ctx, "Groceries", 500); err != nil {
		t.Fatal(err)
	}
	if err := engine.AddTransaction(ctx, "Groceries", "Milk", 10); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		budgetName  string
		txName      string
		wantOutcome core.Outcome
	}{
		{"existing transaction", "Groceries", "Milk", core.OutcomeApplied},
		{"already removed", "Groceries", "Milk", core.OutcomeNotFound},
		{"unknown transaction", "Groceries", "Bread", core.OutcomeNotFound},
		{"unknown budget", "Nothing", "Milk", core.OutcomeBudgetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := engine.RemoveTransaction(ctx, tt.budgetName, tt.txName)
			if err != nil {
				t.Fatalf("RemoveTransaction() error = %v", err)
			}
			if outcome != tt.wantOutcome {
				t.Errorf("RemoveTransaction() = %v, want %v", outcome, tt.wantOutcome)
			}
		})
	}
}

func TestEditTransaction(t *testing.T) {
	store := storage.NewMemoryStore()
	engine := New(store, nil, nil)
	ctx := context.Background()

	id, err := engine.CreateBudget(ctx, "Groceries", 500)
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.AddTransaction(ctx, "Groceries", "Milk", 10); err != nil {
		t.Fatal(err)
	}

	outcome, err := engine.EditTransaction(ctx, "Groceries", "Milk", "Oat milk", 12)
	if err != nil {
		t.Fatalf("EditTransaction() error = %v", err)
	}
	if outcome != core.OutcomeApplied {
		t.Errorf("EditTransaction() = %v, want %v", outcome, core.OutcomeApplied)
	}
	sum, _ := store.SumTransactionAmounts(ctx, id)
	if sum != 12 {
		t.Errorf("transaction sum after edit = %v, want 12", sum)
	}

	outcome, err = engine.EditTransaction(ctx, "Groceries", "Milk", "Whatever", 1)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != core.OutcomeNotFound {
		t.Errorf("EditTransaction() = %v, want %v", outcome, core.OutcomeNotFound)
	}

	outcome, err = engine.EditTransaction(ctx, "Nothing", "Milk", "Whatever", 1)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != core.OutcomeBudgetNotFound {
		t.Errorf("EditTransaction() = %v, want %v", outcome, core.OutcomeBudgetNotFound)
	}
}

func TestComputeRemaining(t *testing.T) {
	engine, notifier := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.CreateBudget(ctx, "Groceries", 1000); err != nil {
		t.Fatal(err)
	}

	t.Run("no transactions coalesces to total", func(t *testing.T) {
		remaining, err := engine.ComputeRemaining(ctx, "Groceries", 1000)
		if err != nil {
			t.Fatalf("ComputeRemaining() error = %v", err)
		}
		if remaining != 1000 {
			t.Errorf("remaining = %v, want 1000", remaining)
		}
		if len(notifier.alerts) != 0 {
			t.Errorf("alerts fired = %d, want 0", len(notifier.alerts))
		}
	})

	t.Run("unknown budget", func(t *testing.T) {
		_, err := engine.ComputeRemaining(ctx, "Nothing", 1000)
		if !errors.Is(err, core.ErrBudgetNotFound) {
			t.Errorf("ComputeRemaining() error = %v, want ErrBudgetNotFound", err)
		}
	})

	t.Run("exactly at threshold does not alert", func(t *testing.T) {
		if err := engine.AddTransaction(ctx, "Groceries", "Big spend", 900); err != nil {
			t.Fatal(err)
		}

		remaining, err := engine.ComputeRemaining(ctx, "Groceries", 1000)
		if err != nil {
			t.Fatal(err)
		}
		if remaining != 100 {
			t.Errorf("remaining = %v, want 100", remaining)
		}
		if len(notifier.alerts) != 0 {
			t.Errorf("alerts fired at exactly 10%% = %d, want 0", len(notifier.alerts))
		}
	})

	t.Run("below threshold alerts", func(t *testing.T) {
		if err := engine.AddTransaction(ctx, "Groceries", "One more", 5); err != nil {
			t.Fatal(err)
		}

		remaining, err := engine.ComputeRemaining(ctx, "Groceries", 1000)
		if err != nil {
			t.Fatal(err)
		}
		if remaining != 95 {
			t.Errorf("remaining = %v, want 95", remaining)
		}
		if len(notifier.alerts) != 1 {
			t.Fatalf("alerts fired = %d, want 1", len(notifier.alerts))
		}
		a := notifier.alerts[0]
		if a.BudgetName != "Groceries" || a.TotalAmount != 1000 || a.Remaining != 95 {
			t.Errorf("alert = %+v", a)
		}
	})

	t.Run("refund can clear the alert condition", func(t *testing.T) {
		if err := engine.AddTransaction(ctx, "Groceries", "Return", -500); err != nil {
			t.Fatal(err)
		}

		remaining, err := engine.ComputeRemaining(ctx, "Groceries", 1000)
		if err != nil {
			t.Fatal(err)
		}
		if remaining != 595 {
			t.Errorf("remaining = %v, want 595", remaining)
		}
		if len(notifier.alerts) != 1 {
			t.Errorf("alerts fired = %d, want 1 (no new alert)", len(notifier.alerts))
		}
	})
}

func TestShowRemaining(t *testing.T) {
	engine, notifier := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.CreateBudget(ctx, "Groceries", 500); err != nil {
		t.Fatal(err)
	}
	if err := engine.AddTransaction(ctx, "Groceries", "Big spend", 490); err != nil {
		t.Fatal(err)
	}

	report, found, err := engine.ShowRemaining(ctx, "Groceries")
	if err != nil {
		t.Fatalf("ShowRemaining() error = %v", err)
	}
	if !found {
		t.Fatal("ShowRemaining() found = false")
	}
	if report.TotalAmount != 500 || report.Remaining != 10 {
		t.Errorf("report = %+v, want total 500 remaining 10", report)
	}
	// The display path never alerts, even this far below the threshold.
	if len(notifier.alerts) != 0 {
		t.Errorf("alerts fired = %d, want 0", len(notifier.alerts))
	}

	_, found, err = engine.ShowRemaining(ctx, "Nothing")
	if err != nil {
		t.Fatalf("ShowRemaining() error = %v", err)
	}
	if found {
		t.Error("ShowRemaining() found = true for a missing budget")
	}
}

func TestListBudgetsShowsStoredSnapshot(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.CreateBudget(ctx, "Groceries", 500); err != nil {
		t.Fatal(err)
	}
	if err := engine.AddTransaction(ctx, "Groceries", "Milk", 10); err != nil {
		t.Fatal(err)
	}

	// The listing reads the stored remaining_amount column, which stays at
	// its creation-time value no matter how many transactions land.
	for i := 0; i < 2; i++ {
		rows, err := engine.ListBudgets(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 {
			t.Fatalf("len(rows) = %d, want 1", len(rows))
		}
		if rows[0].RemainingAmount != 500 {
			t.Errorf("stored remaining = %v, want 500", rows[0].RemainingAmount)
		}
	}
}

func TestGroceriesSession(t *testing.T) {
	engine, notifier := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.CreateBudget(ctx, "Groceries", 500); err != nil {
		t.Fatal(err)
	}
	if err := engine.AddTransaction(ctx, "Groceries", "Milk", 10); err != nil {
		t.Fatal(err)
	}
	if err := engine.AddTransaction(ctx, "Groceries", "Bread", 5); err != nil {
		t.Fatal(err)
	}

	remaining, err := engine.ComputeRemaining(ctx, "Groceries", 500)
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 485 {
		t.Errorf("remaining = %v, want 485", remaining)
	}
	if len(notifier.alerts) != 0 {
		t.Errorf("alerts fired = %d, want 0", len(notifier.alerts))
	}

	if err := engine.AddTransaction(ctx, "Groceries", "Party supplies", 440); err != nil {
		t.Fatal(err)
	}

	remaining, err = engine.ComputeRemaining(ctx, "Groceries", 500)
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 45 {
		t.Errorf("remaining = %v, want 45", remaining)
	}
	if len(notifier.alerts) != 1 {
		t.Errorf("alerts fired = %d, want 1", len(notifier.alerts))
	}
}
