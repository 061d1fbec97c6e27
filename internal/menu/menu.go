// Package menu implements the interactive shell around the ledger engine.
// It reads numbered choices and field values line by line, so a test can
// drive a full session through an io.Reader.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"bilancio/internal/core"
	"bilancio/internal/importer"
	"bilancio/internal/ledger"
)

type Menu struct {
	engine *ledger.Engine
	in     *bufio.Scanner
	out    io.Writer
}

func New(engine *ledger.Engine, in io.Reader, out io.Writer) *Menu {
	return &Menu{
		engine: engine,
		in:     bufio.NewScanner(in),
		out:    out,
	}
}

// Run loops until the user quits or input is exhausted.
func (m *Menu) Run(ctx context.Context) error {
	for {
		m.printMenu()

		choice, ok := m.readLine("Choose an option: ")
		if !ok {
			return nil
		}

		switch choice {
		case "1":
			m.addBudget(ctx)
		case "2":
			m.removeBudget(ctx)
		case "3":
			m.editBudget(ctx)
		case "4":
			m.listBudgets(ctx)
		case "5":
			m.addTransaction(ctx)
		case "6":
			m.removeTransaction(ctx)
		case "7":
			m.editTransaction(ctx)
		case "8":
			m.showRemaining(ctx)
		case "9":
			m.importCSV(ctx)
		case "10":
			fmt.Fprintln(m.out, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(m.out, "Invalid option, please try again")
		}

		fmt.Fprintln(m.out)
	}
}

func (m *Menu) printMenu() {
	fmt.Fprintln(m.out, "=== Budget Manager ===")
	fmt.Fprintln(m.out, "1. Add a budget")
	fmt.Fprintln(m.out, "2. Remove a budget")
	fmt.Fprintln(m.out, "3. Edit a budget")
	fmt.Fprintln(m.out, "4. List all budgets")
	fmt.Fprintln(m.out, "5. Add a transaction")
	fmt.Fprintln(m.out, "6. Remove a transaction")
	fmt.Fprintln(m.out, "7. Edit a transaction")
	fmt.Fprintln(m.out, "8. Show remaining balance of a budget")
	fmt.Fprintln(m.out, "9. Import transactions from CSV")
	fmt.Fprintln(m.out, "10. Quit")
	fmt.Fprintln(m.out)
}

// readLine prompts and returns the trimmed next input line. ok is false when
// input is exhausted.
func (m *Menu) readLine(prompt string) (string, bool) {
	fmt.Fprint(m.out, prompt)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

// readAmount re-prompts until the line parses as a number.
func (m *Menu) readAmount(prompt string) (float64, bool) {
	for {
		line, ok := m.readLine(prompt)
		if !ok {
			return 0, false
		}
		amount, err := strconv.ParseFloat(line, 64)
		if err != nil {
			fmt.Fprintln(m.out, "Invalid amount, please try again")
			continue
		}
		return amount, true
	}
}

func (m *Menu) addBudget(ctx context.Context) {
	name, ok := m.readLine("Budget name: ")
	if !ok {
		return
	}
	total, ok := m.readAmount("Total budget amount: ")
	if !ok {
		return
	}

	_, err := m.engine.CreateBudget(ctx, name, total)
	switch {
	case errors.Is(err, core.ErrEmptyBudgetName):
		fmt.Fprintln(m.out, "Error: budget name cannot be empty")
	case errors.Is(err, core.ErrTotalOutOfRange):
		fmt.Fprintf(m.out, "Error: total amount must be between 0 and %.0f\n", core.MaxBudgetTotal)
	case err != nil:
		fmt.Fprintf(m.out, "Error adding budget: %v\n", err)
	default:
		fmt.Fprintf(m.out, "Budget '%s' added successfully!\n", name)
	}
}

func (m *Menu) removeBudget(ctx context.Context) {
	name, ok := m.readLine("Budget to remove: ")
	if !ok {
		return
	}

	removed, err := m.engine.DeleteBudget(ctx, name)
	switch {
	case err != nil:
		fmt.Fprintf(m.out, "Error removing budget: %v\n", err)
	case !removed:
		fmt.Fprintf(m.out, "No budget named '%s'\n", name)
	default:
		fmt.Fprintf(m.out, "Budget '%s' removed\n", name)
	}
}

func (m *Menu) editBudget(ctx context.Context) {
	oldName, ok := m.readLine("Budget to edit: ")
	if !ok {
		return
	}
	newName, ok := m.readLine("New budget name: ")
	if !ok {
		return
	}
	newTotal, ok := m.readAmount("New total budget amount: ")
	if !ok {
		return
	}

	updated, err := m.engine.EditBudget(ctx, oldName, newName, newTotal)
	switch {
	case err != nil:
		fmt.Fprintf(m.out, "Error editing budget: %v\n", err)
	case !updated:
		fmt.Fprintf(m.out, "No budget named '%s'\n", oldName)
	default:
		fmt.Fprintf(m.out, "Budget '%s' updated\n", newName)
	}
}

func (m *Menu) listBudgets(ctx context.Context) {
	rows, err := m.engine.ListBudgets(ctx)
	if err != nil {
		fmt.Fprintf(m.out, "Error listing budgets: %v\n", err)
		return
	}
	if len(rows) == 0 {
		fmt.Fprintln(m.out, "No budgets yet")
		return
	}

	w := tabwriter.NewWriter(m.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTOTAL\tREMAINING")
	for _, row := range rows {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%.2f\n", row.ID, row.Name, row.TotalAmount, row.RemainingAmount)
	}
	w.Flush()
}

func (m *Menu) addTransaction(ctx context.Context) {
	budgetName, ok := m.readLine("Budget name: ")
	if !ok {
		return
	}
	txName, ok := m.readLine("Transaction name: ")
	if !ok {
		return
	}
	amount, ok := m.readAmount("Transaction amount: ")
	if !ok {
		return
	}

	err := m.engine.AddTransaction(ctx, budgetName, txName, amount)
	switch {
	case errors.Is(err, core.ErrBudgetNotFound):
		fmt.Fprintf(m.out, "No budget named '%s'\n", budgetName)
	case err != nil:
		fmt.Fprintf(m.out, "Error adding transaction: %v\n", err)
	default:
		fmt.Fprintf(m.out, "Transaction '%s' recorded\n", txName)
	}
}

func (m *Menu) removeTransaction(ctx context.Context) {
	budgetName, ok := m.readLine("Budget name: ")
	if !ok {
		return
	}
	txName, ok := m.readLine("Transaction to remove: ")
	if !ok {
		return
	}

	outcome, err := m.engine.RemoveTransaction(ctx, budgetName, txName)
	if err != nil {
		fmt.Fprintf(m.out, "Error removing transaction: %v\n", err)
		return
	}
	m.printOutcome(outcome, budgetName, txName, fmt.Sprintf("Transaction '%s' removed", txName))
}

func (m *Menu) editTransaction(ctx context.Context) {
	budgetName, ok := m.readLine("Budget name: ")
	if !ok {
		return
	}
	oldName, ok := m.readLine("Transaction to edit: ")
	if !ok {
		return
	}
	newName, ok := m.readLine("New transaction name: ")
	if !ok {
		return
	}
	newAmount, ok := m.readAmount("New transaction amount: ")
	if !ok {
		return
	}

	outcome, err := m.engine.EditTransaction(ctx, budgetName, oldName, newName, newAmount)
	if err != nil {
		fmt.Fprintf(m.out, "Error editing transaction: %v\n", err)
		return
	}
	m.printOutcome(outcome, budgetName, oldName, fmt.Sprintf("Transaction '%s' updated", newName))
}

func (m *Menu) printOutcome(outcome core.Outcome, budgetName, txName, applied string) {
	switch outcome {
	case core.OutcomeBudgetNotFound:
		fmt.Fprintf(m.out, "No budget named '%s'\n", budgetName)
	case core.OutcomeNotFound:
		fmt.Fprintf(m.out, "No transaction named '%s' in budget '%s'\n", txName, budgetName)
	default:
		fmt.Fprintln(m.out, applied)
	}
}

func (m *Menu) showRemaining(ctx context.Context) {
	budgetName, ok := m.readLine("Budget name: ")
	if !ok {
		return
	}

	report, found, err := m.engine.ShowRemaining(ctx, budgetName)
	switch {
	case err != nil:
		fmt.Fprintf(m.out, "Error computing balance: %v\n", err)
	case !found:
		fmt.Fprintf(m.out, "No budget named '%s'\n", budgetName)
	default:
		fmt.Fprintf(m.out, "Remaining balance of '%s': %.2f of %.2f\n",
			budgetName, report.Remaining, report.TotalAmount)
	}
}

func (m *Menu) importCSV(ctx context.Context) {
	path, ok := m.readLine("CSV file path: ")
	if !ok {
		return
	}

	sum, err := importer.ImportFile(ctx, m.engine, path)
	if err != nil {
		fmt.Fprintf(m.out, "Error importing CSV: %v\n", err)
		return
	}
	fmt.Fprintf(m.out, "Imported %d transaction(s), skipped %d\n", sum.Imported, sum.Skipped)
}
