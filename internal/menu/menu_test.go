package menu

import (
	"context"
	"strings"
	"testing"

	"bilancio/internal/ledger"
	"bilancio/internal/storage"
)

func runSession(t *testing.T, input string) string {
	t.Helper()

	engine := ledger.New(storage.NewMemoryStore(), nil, nil)
	var out strings.Builder
	m := New(engine, strings.NewReader(input), &out)

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return out.String()
}

func TestSessionAddListAndBalance(t *testing.T) {
	input := strings.Join([]string{
		"1", "Groceries", "500",
		"5", "Groceries", "Milk", "10",
		"5", "Groceries", "Bread", "5",
		"4",
		"8", "Groceries",
		"10",
	}, "\n") + "\n"

	out := runSession(t, input)

	for _, want := range []string{
		"Budget 'Groceries' added successfully!",
		"Transaction 'Milk' recorded",
		"Transaction 'Bread' recorded",
		"Remaining balance of 'Groceries': 485.00 of 500.00",
		"Goodbye!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\noutput:\n%s", want, out)
		}
	}

	// The listing shows the stored snapshot, untouched by transactions.
	if !strings.Contains(out, "Groceries") || !strings.Contains(out, "500.00") {
		t.Errorf("listing missing stored snapshot\noutput:\n%s", out)
	}
}

func TestSessionValidationMessages(t *testing.T) {
	input := strings.Join([]string{
		"1", "   ", "100",
		"1", "Big", "2000000",
		"5", "Nothing", "Milk", "10",
		"10",
	}, "\n") + "\n"

	out := runSession(t, input)

	for _, want := range []string{
		"budget name cannot be empty",
		"total amount must be between 0 and 1000000",
		"No budget named 'Nothing'",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\noutput:\n%s", want, out)
		}
	}
}

func TestSessionRepromptsOnBadAmount(t *testing.T) {
	input := strings.Join([]string{
		"1", "Groceries", "abc", "500",
		"10",
	}, "\n") + "\n"

	out := runSession(t, input)

	if !strings.Contains(out, "Invalid amount, please try again") {
		t.Errorf("output missing re-prompt message\noutput:\n%s", out)
	}
	if !strings.Contains(out, "Budget 'Groceries' added successfully!") {
		t.Errorf("budget not added after re-prompt\noutput:\n%s", out)
	}
}

func TestSessionRemoveAndEdit(t *testing.T) {
	input := strings.Join([]string{
		"1", "Groceries", "500",
		"5", "Groceries", "Milk", "10",
		"7", "Groceries", "Milk", "Oat milk", "12",
		"6", "Groceries", "Oat milk",
		"6", "Groceries", "Oat milk",
		"3", "Groceries", "Food", "600",
		"2", "Food",
		"2", "Food",
		"10",
	}, "\n") + "\n"

	out := runSession(t, input)

	for _, want := range []string{
		"Transaction 'Oat milk' updated",
		"Transaction 'Oat milk' removed",
		"No transaction named 'Oat milk' in budget 'Groceries'",
		"Budget 'Food' updated",
		"Budget 'Food' removed",
		"No budget named 'Food'",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\noutput:\n%s", want, out)
		}
	}
}

func TestSessionInvalidOptionAndEOF(t *testing.T) {
	// Input ends without a quit; the menu exits cleanly on EOF.
	out := runSession(t, "42\n")

	if !strings.Contains(out, "Invalid option, please try again") {
		t.Errorf("output missing invalid-option message\noutput:\n%s", out)
	}
}
