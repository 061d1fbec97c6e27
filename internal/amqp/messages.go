package amqp

import (
	"encoding/json"
	"time"

	"bilancio/internal/core"
)

// TransactionRecordedMessage tells the export worker a transaction row is
// waiting in the store. Only the id travels; the worker loads the row.
type TransactionRecordedMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionRecordedMessage(id int64) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{ID: id, Timestamp: time.Now()}
}

func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// LowBalanceMessage is the broker form of a low-balance alert.
type LowBalanceMessage struct {
	BudgetName  string    `json:"budget_name"`
	TotalAmount float64   `json:"total_amount"`
	Remaining   float64   `json:"remaining"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewLowBalanceMessage(a core.LowBalanceAlert) *LowBalanceMessage {
	return &LowBalanceMessage{
		BudgetName:  a.BudgetName,
		TotalAmount: a.TotalAmount,
		Remaining:   a.Remaining,
		Timestamp:   time.Now(),
	}
}

func (m *LowBalanceMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LowBalanceMessageFromJSON(data []byte) (*LowBalanceMessage, error) {
	var msg LowBalanceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
