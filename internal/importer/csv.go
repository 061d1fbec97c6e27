// Package importer bulk-ingests transactions from a CSV file. Rows whose
// budget does not exist are skipped and counted rather than failing the run.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

// Recorder is the slice of the ledger engine the importer needs.
type Recorder interface {
	AddTransaction(ctx context.Context, budgetName, description string, amount float64) error
}

// Summary reports what an import run did.
type Summary struct {
	Rows     int
	Imported int
	Skipped  int
}

// ImportFile reads a CSV file with header budget_name,description,amount and
// records each row through the engine.
func ImportFile(ctx context.Context, rec Recorder, path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	sum, err := Import(ctx, rec, f)
	if err != nil {
		return sum, err
	}

	slog.InfoContext(ctx, "CSV import completed",
		applog.FieldComponent, applog.ComponentImport,
		applog.FieldFile, path,
		"rows", sum.Rows,
		"imported", sum.Imported,
		"skipped", sum.Skipped)
	return sum, nil
}

// Import reads CSV records from r. The first row must be the header.
func Import(ctx context.Context, rec Recorder, r io.Reader) (Summary, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return Summary{}, errors.New("empty csv file")
	}
	if err != nil {
		return Summary{}, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) != 3 || header[0] != "budget_name" || header[1] != "description" || header[2] != "amount" {
		return Summary{}, fmt.Errorf("unexpected csv header %v, want [budget_name description amount]", header)
	}

	var sum Summary
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("read csv record: %w", err)
		}
		sum.Rows++

		amount, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			slog.WarnContext(ctx, "Skipping row with invalid amount",
				applog.FieldComponent, applog.ComponentImport,
				applog.FieldBudgetName, record[0],
				applog.FieldAmount, record[2])
			sum.Skipped++
			continue
		}

		err = rec.AddTransaction(ctx, record[0], record[1], amount)
		if errors.Is(err, core.ErrBudgetNotFound) {
			slog.WarnContext(ctx, "Skipping row for unknown budget",
				applog.FieldComponent, applog.ComponentImport,
				applog.FieldBudgetName, record[0])
			sum.Skipped++
			continue
		}
		if err != nil {
			return sum, fmt.Errorf("record transaction for %q: %w", record[0], err)
		}
		sum.Imported++
	}

	return sum, nil
}
