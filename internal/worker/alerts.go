package worker

import (
	"context"
	"fmt"

	"financeflow/internal/amqp"
	"financeflow/internal/core"
	"financeflow/internal/ledger"
	"financeflow/internal/log"
)

// Alert reasons
const (
	ReasonCreditOverspent = "credit_overspent"
	ReasonSavingsNegative = "savings_negative"
)

// OverviewReader reconciles a month for a user.
type OverviewReader interface {
	Overview(ctx context.Context, userID string, month core.Month) (ledger.Overview, error)
}

// Alert is raised when an event leaves a user's month overspent.
type Alert struct {
	UserID          string
	Month           core.Month
	Action          string
	RemainingCredit core.Money
	TotalSavings    core.Money
	Reasons         []string
}

// AlertWorker consumes budget events and checks the affected month for
// overspend. State is always reloaded; the event only names the month.
type AlertWorker struct {
	budget OverviewReader
	logger *log.Logger
	notify func(context.Context, Alert)
}

type AlertOption func(*AlertWorker)

// WithNotifier registers a callback invoked for every alert in addition to
// the log line.
func WithNotifier(fn func(context.Context, Alert)) AlertOption {
	return func(w *AlertWorker) { w.notify = fn }
}

func NewAlertWorker(budget OverviewReader, logger *log.Logger, opts ...AlertOption) *AlertWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	w := &AlertWorker{budget: budget, logger: logger.WithComponent(log.ComponentWorker)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleBudgetEvent processes a single budget event from AMQP. Events
// without a date refer to the summary's current month.
func (w *AlertWorker) HandleBudgetEvent(ctx context.Context, msg *amqp.BudgetEventMessage) error {
	var month core.Month
	if msg.Date != "" {
		date, err := core.ParseDate(msg.Date)
		if err != nil {
			// Redelivery would fail the same way.
			w.logger.WarnContext(ctx, "Dropping budget event with bad date",
				log.FieldUserID, msg.UserID,
				log.FieldDate, msg.Date,
				log.FieldError, err)
			return nil
		}
		month = date.Month()
	}

	ov, err := w.budget.Overview(ctx, msg.UserID, month)
	if err != nil {
		return fmt.Errorf("reconcile %s for %s: %w", month, msg.UserID, err)
	}

	alert, ok := Evaluate(msg.UserID, msg.Action, ov)
	if !ok {
		w.logger.DebugContext(ctx, "Budget event within limits",
			log.FieldUserID, msg.UserID,
			log.FieldMonth, ov.Month.String(),
			log.FieldAction, msg.Action)
		return nil
	}

	w.logger.WarnContext(ctx, "Overspend alert",
		log.FieldUserID, alert.UserID,
		log.FieldMonth, alert.Month.String(),
		log.FieldAction, alert.Action,
		"remaining_credit_cents", alert.RemainingCredit.Cents,
		"total_savings_cents", alert.TotalSavings.Cents,
		"reasons", alert.Reasons)
	if w.notify != nil {
		w.notify(ctx, alert)
	}
	return nil
}

// Evaluate checks an overview for overspend. Months without a summary are
// never flagged.
func Evaluate(userID, action string, ov ledger.Overview) (Alert, bool) {
	alert := Alert{
		UserID:          userID,
		Month:           ov.Month,
		Action:          action,
		RemainingCredit: ov.RemainingCredit,
		TotalSavings:    ov.AvailableSavings,
	}
	if ov.MonthlyCredit.IsZero() && ov.DailyTarget.IsZero() && ov.AvailableSavings.IsZero() {
		return alert, false
	}
	if ov.RemainingCredit.IsNegative() {
		alert.Reasons = append(alert.Reasons, ReasonCreditOverspent)
	}
	if ov.AvailableSavings.IsNegative() {
		alert.Reasons = append(alert.Reasons, ReasonSavingsNegative)
	}
	return alert, len(alert.Reasons) > 0
}
