// Package notify delivers local alerts raised by the record store.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	applog "tasca/internal/log"
)

const (
	BudgetAlertTitle = "Budget Alert"
	BudgetAlertBody  = "You have exceeded your monthly budget!"
)

// Alert is a fire-and-forget local notification.
type Alert struct {
	UserID string
	Title  string
	Body   string
	Total  decimal.Decimal
	Income decimal.Decimal
	At     time.Time
}

// BudgetAlert builds the fixed budget-overage alert.
func BudgetAlert(userID string, total, income decimal.Decimal, at time.Time) Alert {
	return Alert{
		UserID: userID,
		Title:  BudgetAlertTitle,
		Body:   BudgetAlertBody,
		Total:  total,
		Income: income,
		At:     at,
	}
}

type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, alert Alert) error

func (f NotifierFunc) Notify(ctx context.Context, alert Alert) error { return f(ctx, alert) }

// LogNotifier records alerts in the structured log.
type LogNotifier struct {
	logger *applog.Logger
}

func NewLogNotifier(logger *applog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithComponent(applog.ComponentNotify)}
}

func (n *LogNotifier) Notify(ctx context.Context, alert Alert) error {
	n.logger.WarnContext(ctx, alert.Title,
		applog.FieldUserID, alert.UserID,
		applog.FieldTotal, alert.Total.String(),
		applog.FieldIncome, alert.Income.String(),
		"body", alert.Body)
	return nil
}

// WriterNotifier shows alerts as a banner on a terminal.
type WriterNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriterNotifier(out io.Writer) *WriterNotifier {
	return &WriterNotifier{out: out}
}

func (n *WriterNotifier) Notify(_ context.Context, alert Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.out, "[%s] %s (spent %s of %s)\n",
		alert.Title, alert.Body, alert.Total.StringFixed(2), alert.Income.StringFixed(2))
	return err
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
