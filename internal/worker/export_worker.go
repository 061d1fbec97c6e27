// Package worker mirrors recorded transactions from the ledger store to the
// export target, driven by broker messages with a periodic pending scan as
// backup.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/export"
	applog "bilancio/internal/log"
)

// ExportStore is the slice of the store the worker needs: loading rows and
// tracking export state.
type ExportStore interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListPendingExport(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkExported(ctx context.Context, id int64) error
	MarkExportError(ctx context.Context, id int64) error
	BudgetName(ctx context.Context, budgetID int64) (string, error)
}

type ExportWorker struct {
	store     ExportStore
	appender  export.RowAppender
	batchSize int
}

func NewExportWorker(store ExportStore, appender export.RowAppender, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleRecordedMessage processes one transaction-recorded message.
func (w *ExportWorker) HandleRecordedMessage(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	tx, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction from store: %w", err)
	}
	return w.exportTransaction(ctx, tx)
}

// ProcessPending exports transactions whose broker message was lost. Errors
// on individual rows are logged and skipped so one bad row cannot wedge the
// batch.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.ListPendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending export: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldCount, len(pending))

	for _, tx := range pending {
		if err := w.exportTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				applog.FieldComponent, applog.ComponentWorker,
				applog.FieldTxID, tx.ID,
				applog.FieldError, err)
		}
	}
	return nil
}

// StartupCheck drains a larger pending backlog once at worker startup, to
// recover from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.ListPendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending export for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup",
			applog.FieldComponent, applog.ComponentWorker)
		return nil
	}

	exported := 0
	failed := 0
	for _, tx := range pending {
		if err := w.exportTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				applog.FieldComponent, applog.ComponentWorker,
				applog.FieldTxID, tx.ID,
				applog.FieldError, err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export check completed",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldCount, len(pending),
		"exported", exported,
		"errors", failed)
	return nil
}

func (w *ExportWorker) exportTransaction(ctx context.Context, tx core.Transaction) error {
	// Orphaned transactions export with an empty budget name.
	budgetName, err := w.store.BudgetName(ctx, tx.BudgetID)
	if err != nil {
		return fmt.Errorf("resolve budget name: %w", err)
	}

	ref, err := w.appender.AppendTransaction(ctx, budgetName, tx)
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				applog.FieldComponent, applog.ComponentWorker,
				applog.FieldTxID, tx.ID,
				applog.FieldError, markErr)
		}
		return fmt.Errorf("append transaction: %w", err)
	}

	if err := w.store.MarkExported(ctx, tx.ID); err != nil {
		// The append went through; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark transaction exported",
			applog.FieldComponent, applog.ComponentWorker,
			applog.FieldTxID, tx.ID,
			applog.FieldError, err)
		return nil
	}

	slog.InfoContext(ctx, "Transaction exported",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldOperation, applog.OpExport,
		applog.FieldTxID, tx.ID,
		applog.FieldBudgetName, budgetName,
		applog.FieldSheetsRef, ref)
	return nil
}
