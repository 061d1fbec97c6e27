// Package alert formats and emits low-balance warnings raised by the ledger
// engine.
package alert

import (
	"context"
	"log/slog"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

// Notifier receives a low-balance alert when the balance rule fires.
type Notifier interface {
	LowBalance(ctx context.Context, a core.LowBalanceAlert) error
}

// LogNotifier reports alerts through the structured logger. This is the
// default notifier and mirrors the warning banner of the interactive shell.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) LowBalance(ctx context.Context, a core.LowBalanceAlert) error {
	n.logger.WarnContext(ctx, "Remaining balance is below 10% of the budget total",
		applog.FieldComponent, applog.ComponentAlert,
		applog.FieldBudgetName, a.BudgetName,
		applog.FieldTotalAmount, a.TotalAmount,
		applog.FieldRemaining, a.Remaining)
	return nil
}

// Publisher is the transport side of an asynchronous notifier, satisfied by
// the AMQP client.
type Publisher interface {
	PublishLowBalance(ctx context.Context, a core.LowBalanceAlert) error
}

// PublishNotifier forwards alerts to a message broker so an operator process
// can consume them, and falls back to logging when publishing fails. The
// alert itself must never fail the balance computation.
type PublishNotifier struct {
	publisher Publisher
	fallback  *LogNotifier
}

func NewPublishNotifier(publisher Publisher, logger *slog.Logger) *PublishNotifier {
	return &PublishNotifier{
		publisher: publisher,
		fallback:  NewLogNotifier(logger),
	}
}

func (n *PublishNotifier) LowBalance(ctx context.Context, a core.LowBalanceAlert) error {
	if n.publisher == nil {
		return n.fallback.LowBalance(ctx, a)
	}
	if err := n.publisher.PublishLowBalance(ctx, a); err != nil {
		slog.ErrorContext(ctx, "Failed to publish low-balance alert",
			applog.FieldComponent, applog.ComponentAlert,
			applog.FieldBudgetName, a.BudgetName,
			applog.FieldError, err)
		return n.fallback.LowBalance(ctx, a)
	}
	return n.fallback.LowBalance(ctx, a)
}
