package worker

import (
	"context"
	"fmt"

	"tasca/internal/amqp"
	applog "tasca/internal/log"
	"tasca/internal/notify"
)

// AlertWorker shows budget alerts consumed from the broker on a local
// notifier
type AlertWorker struct {
	notifier notify.Notifier
}

func NewAlertWorker(notifier notify.Notifier) *AlertWorker {
	return &AlertWorker{notifier: notifier}
}

// HandleAlert processes a single budget alert message from AMQP. A returned
// error makes the broker redeliver the message.
func (w *AlertWorker) HandleAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentWorker)
	logger.InfoContext(ctx, "Processing budget alert",
		applog.FieldOperation, applog.OpConsume,
		applog.FieldUserID, msg.UserID,
		applog.FieldTotal, msg.TotalExpenses.String(),
		applog.FieldIncome, msg.MonthlyIncome.String())

	if err := w.notifier.Notify(ctx, msg.Alert()); err != nil {
		logger.ErrorContext(ctx, "Failed to show budget alert",
			applog.FieldUserID, msg.UserID,
			applog.FieldError, err)
		return fmt.Errorf("show budget alert: %w", err)
	}

	logger.DebugContext(ctx, "Budget alert shown", applog.FieldUserID, msg.UserID)
	return nil
}
