// Package log defines the shared field, component and operation names used
// for structured logging across the binaries.
package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldBudgetID    = "budget_id"
	FieldBudgetName  = "budget_name"
	FieldTxID        = "transaction_id"
	FieldTxName      = "transaction_name"
	FieldAmount      = "amount"
	FieldTotalAmount = "total_amount"
	FieldRemaining   = "remaining"
	FieldAffected    = "rows_affected"
	FieldOutcome     = "outcome"
	FieldSheetsRef   = "sheets_ref"
	FieldCount       = "count"
	FieldFile        = "file"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAlert   = "alert"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentExport  = "export"
	ComponentImport  = "import"
	ComponentMenu    = "menu"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpList    = "list"
	OpBalance = "balance"
	OpImport  = "import"
	OpExport  = "export"
)
