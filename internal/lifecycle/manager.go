// Package lifecycle applies one user action at a time to a daily record.
//
// Each action returns the patch to persist, the record with the patch
// applied and the delta to add to the user's savings pool. Nothing here
// touches storage; the caller commits patch and delta together.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"financeflow/internal/core"
	"financeflow/internal/ledger"
)

// Warning codes for soft limits. A warning never blocks the action.
const (
	WarnAboveRemainingTarget  = "above_remaining_target"
	WarnAboveAvailableSavings = "above_available_savings"
	WarnAboveAvailableExcess  = "above_available_excess"
)

// Warning reports a soft budget limit crossed by an accepted action.
type Warning struct {
	Code    string     `json:"code"`
	Message string     `json:"message"`
	Limit   core.Money `json:"limit"`
}

// Outcome is the result of an action.
type Outcome struct {
	Patch        core.DailyRecordPatch
	Record       core.DailyRecord
	SavingsDelta core.Money
	Warnings     []Warning
}

// Changed reports whether the action produced anything to persist.
func (o Outcome) Changed() bool {
	return !o.Patch.IsEmpty() || !o.SavingsDelta.IsZero()
}

// Manager applies lifecycle actions. It is safe for concurrent use as long
// as the injected clock and id generator are.
type Manager struct {
	now   func() time.Time
	newID func() string
}

type Option func(*Manager)

// WithClock overrides time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides the UUID generator used for entry and task ids.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func outcome(rec core.DailyRecord, p core.DailyRecordPatch, delta core.Money) Outcome {
	return Outcome{Patch: p, Record: rec.Apply(p), SavingsDelta: delta}
}

// unchanged is the outcome of an action that is a no-op for this record.
func unchanged(rec core.DailyRecord) Outcome {
	return Outcome{Record: rec.Clone()}
}

func (m *Manager) AddSpending(rec core.DailyRecord, description string, amount core.Money) (Outcome, error) {
	entry := core.SpendingEntry{
		ID:          m.newID(),
		Description: strings.TrimSpace(description),
		Amount:      amount,
		Timestamp:   m.now().UTC(),
	}
	if err := entry.Validate(); err != nil {
		return Outcome{}, err
	}
	spending := append(append([]core.SpendingEntry(nil), rec.Spending...), entry)
	return outcome(rec, core.DailyRecordPatch{Spending: core.Set(spending)}, core.Money{}), nil
}

func (m *Manager) DeleteSpending(rec core.DailyRecord, id string) (Outcome, error) {
	i, ok := rec.FindSpending(id)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", core.ErrEntryNotFound, id)
	}
	spending := make([]core.SpendingEntry, 0, len(rec.Spending)-1)
	spending = append(spending, rec.Spending[:i]...)
	spending = append(spending, rec.Spending[i+1:]...)
	return outcome(rec, core.DailyRecordPatch{Spending: core.Set(spending)}, core.Money{}), nil
}

func (m *Manager) AddTask(rec core.DailyRecord, description string) (Outcome, error) {
	description = strings.TrimSpace(description)
	if err := core.ValidateDescription(description); err != nil {
		return Outcome{}, err
	}
	task := core.Task{ID: m.newID(), Description: description, CreatedDate: rec.Date}
	tasks := append(append([]core.Task(nil), rec.Tasks...), task)
	return outcome(rec, core.DailyRecordPatch{Tasks: core.Set(tasks)}, core.Money{}), nil
}

func (m *Manager) ToggleTask(rec core.DailyRecord, id string) (Outcome, error) {
	i, ok := rec.FindTask(id)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", core.ErrTaskNotFound, id)
	}
	tasks := append([]core.Task(nil), rec.Tasks...)
	tasks[i].Completed = !tasks[i].Completed
	return outcome(rec, core.DailyRecordPatch{Tasks: core.Set(tasks)}, core.Money{}), nil
}

func (m *Manager) DeleteTask(rec core.DailyRecord, id string) (Outcome, error) {
	i, ok := rec.FindTask(id)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", core.ErrTaskNotFound, id)
	}
	tasks := make([]core.Task, 0, len(rec.Tasks)-1)
	tasks = append(tasks, rec.Tasks[:i]...)
	tasks = append(tasks, rec.Tasks[i+1:]...)
	return outcome(rec, core.DailyRecordPatch{Tasks: core.Set(tasks)}, core.Money{}), nil
}

// TransferToSavings moves money from today's budget into the savings pool.
// Transfers above the remaining daily target are accepted with a warning.
func (m *Manager) TransferToSavings(rec core.DailyRecord, summary core.FinanceSummary, amount core.Money) (Outcome, error) {
	if err := amount.Validate(); err != nil {
		return Outcome{}, err
	}
	room := ledger.DailyDue(rec, summary.DailyTarget).RemainingTarget

	total := core.MoneyOrZero(rec.SavingsTransferred).Add(amount)
	out := outcome(rec, core.DailyRecordPatch{SavingsTransferred: core.Set(total)}, amount)
	if amount.GreaterThan(room) {
		out.Warnings = append(out.Warnings, Warning{
			Code:    WarnAboveRemainingTarget,
			Message: fmt.Sprintf("transfer of %s exceeds the remaining daily target of %s", amount, core.Max(core.Money{}, room)),
			Limit:   room,
		})
	}
	return out, nil
}

// Borrow takes money out of the savings pool. The savings pool may go
// negative; a warning is attached when it does.
func (m *Manager) Borrow(rec core.DailyRecord, summary core.FinanceSummary, amount core.Money) (Outcome, error) {
	if err := amount.Validate(); err != nil {
		return Outcome{}, err
	}
	available := ledger.AvailableSavings(summary)

	total := core.MoneyOrZero(rec.Borrowed).Add(amount)
	out := outcome(rec, core.DailyRecordPatch{Borrowed: core.Set(total)}, amount.Neg())
	if amount.GreaterThan(available) {
		out.Warnings = append(out.Warnings, Warning{
			Code:    WarnAboveAvailableSavings,
			Message: fmt.Sprintf("borrowing %s exceeds available savings of %s", amount, available),
			Limit:   available,
		})
	}
	return out, nil
}

// EditBorrowed replaces the day's borrowed amount and returns the
// difference to the savings pool.
func (m *Manager) EditBorrowed(rec core.DailyRecord, newAmount core.Money) (Outcome, error) {
	if newAmount.IsNegative() {
		return Outcome{}, core.ErrInvalidAmount
	}
	old := core.MoneyOrZero(rec.Borrowed)
	diff := newAmount.Sub(old)
	if diff.IsZero() {
		return unchanged(rec), nil
	}
	return outcome(rec, core.DailyRecordPatch{Borrowed: core.Set(newAmount)}, diff.Neg()), nil
}

// DeleteBorrowed gives the day's borrowed amount back to the savings pool.
func (m *Manager) DeleteBorrowed(rec core.DailyRecord) (Outcome, error) {
	old := core.MoneyOrZero(rec.Borrowed)
	if !old.IsPositive() {
		return unchanged(rec), nil
	}
	return outcome(rec, core.DailyRecordPatch{Borrowed: core.Set(core.Money{})}, old), nil
}

// RecordExcessSpending logs spending outside the daily budget. available is
// the month's room for excess spending; exceeding it yields a warning.
func (m *Manager) RecordExcessSpending(rec core.DailyRecord, amount core.Money, reason string, available core.Money) (Outcome, error) {
	if err := amount.Validate(); err != nil {
		return Outcome{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Outcome{}, core.ErrEmptyReason
	}

	total := core.MoneyOrZero(rec.ExcessSpending).Add(amount)
	out := outcome(rec, core.DailyRecordPatch{
		ExcessSpending:       core.Set(total),
		ExcessSpendingReason: core.Set(reason),
	}, core.Money{})
	if amount.GreaterThan(available) {
		out.Warnings = append(out.Warnings, Warning{
			Code:    WarnAboveAvailableExcess,
			Message: fmt.Sprintf("excess spending of %s exceeds the %s left this month", amount, available),
			Limit:   available,
		})
	}
	return out, nil
}

// ClearDue pays off as much of the carried due as today's remaining target
// allows, recorded as a synthetic spending entry.
func (m *Manager) ClearDue(rec core.DailyRecord, summary core.FinanceSummary) (Outcome, error) {
	due := core.MoneyOrZero(rec.Due)
	if !due.IsPositive() {
		return unchanged(rec), nil
	}
	clearable := core.Min(due, ledger.DailyDue(rec, summary.DailyTarget).RemainingTarget)
	if !clearable.IsPositive() {
		return unchanged(rec), nil
	}

	entry := core.SpendingEntry{
		ID:          m.newID(),
		Description: core.ClearingDueDescription,
		Amount:      clearable,
		Timestamp:   m.now().UTC(),
	}
	p := core.DailyRecordPatch{
		Spending: core.Set(append(append([]core.SpendingEntry(nil), rec.Spending...), entry)),
		Due:      dueField(due.Sub(clearable)),
	}
	return outcome(rec, p, core.Money{}), nil
}

// SetDue records a shortfall carried from an earlier day. Zero removes it.
func (m *Manager) SetDue(rec core.DailyRecord, amount core.Money) (Outcome, error) {
	if amount.IsNegative() {
		return Outcome{}, core.ErrInvalidAmount
	}
	return outcome(rec, core.DailyRecordPatch{Due: dueField(amount)}, core.Money{}), nil
}

func (m *Manager) SetNotes(rec core.DailyRecord, text string) (Outcome, error) {
	return outcome(rec, core.DailyRecordPatch{Notes: core.Set(text)}, core.Money{}), nil
}

func dueField(amount core.Money) core.Optional[core.Money] {
	if amount.IsZero() {
		return core.Clear[core.Money]()
	}
	return core.Set(amount)
}
