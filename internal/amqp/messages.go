package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"tasca/internal/notify"
)

// BudgetAlertMessage carries one budget-overage alert to the alert worker
type BudgetAlertMessage struct {
	UserID        string          `json:"user_id"`
	Title         string          `json:"title"`
	Body          string          `json:"body"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewBudgetAlertMessage creates a message from an alert, stamping it now if
// the alert carries no time
func NewBudgetAlertMessage(alert notify.Alert) *BudgetAlertMessage {
	ts := alert.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &BudgetAlertMessage{
		UserID:        alert.UserID,
		Title:         alert.Title,
		Body:          alert.Body,
		TotalExpenses: alert.Total,
		MonthlyIncome: alert.Income,
		Timestamp:     ts,
	}
}

// Alert converts the message back into a local alert
func (m *BudgetAlertMessage) Alert() notify.Alert {
	return notify.Alert{
		UserID: m.UserID,
		Title:  m.Title,
		Body:   m.Body,
		Total:  m.TotalExpenses,
		Income: m.MonthlyIncome,
		At:     m.Timestamp,
	}
}

// ToJSON converts the message to JSON bytes
func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessageFromJSON creates a message from JSON bytes
func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
