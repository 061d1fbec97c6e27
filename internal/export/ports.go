// Package export defines the outbound port for mirroring recorded
// transactions to an external ledger copy.
package export

import (
	"context"

	"bilancio/internal/core"
)

// RowAppender appends one recorded transaction to the export target and
// returns an opaque row reference.
type RowAppender interface {
	AppendTransaction(ctx context.Context, budgetName string, tx core.Transaction) (rowRef string, err error)
}
