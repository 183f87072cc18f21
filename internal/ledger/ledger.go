// Package ledger folds a user's finance summary and daily records into the
// derived budget figures: remaining credit, available savings, due amounts
// and the room left under the daily target.
//
// Every function here is pure; time is passed in explicitly.
package ledger

import (
	"time"

	"financeflow/internal/core"
)

// Totals are the per-category sums over a set of daily records.
type Totals struct {
	Spent              core.Money `json:"spent"`
	SavingsTransferred core.Money `json:"savingsTransferred"`
	Borrowed           core.Money `json:"borrowed"`
	ExcessSpending     core.Money `json:"excessSpending"`
}

// Add combines the totals of two disjoint record sets.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Spent:              t.Spent.Add(o.Spent),
		SavingsTransferred: t.SavingsTransferred.Add(o.SavingsTransferred),
		Borrowed:           t.Borrowed.Add(o.Borrowed),
		ExcessSpending:     t.ExcessSpending.Add(o.ExcessSpending),
	}
}

// Fold sums every category over the records. Order does not matter.
func Fold(records []core.DailyRecord) Totals {
	var t Totals
	for _, r := range records {
		t = t.Add(recordTotals(r))
	}
	return t
}

func recordTotals(r core.DailyRecord) Totals {
	return Totals{
		Spent:              r.TotalSpent(),
		SavingsTransferred: core.MoneyOrZero(r.SavingsTransferred),
		Borrowed:           core.MoneyOrZero(r.Borrowed),
		ExcessSpending:     core.MoneyOrZero(r.ExcessSpending),
	}
}

// Remaining applies the totals to a monthly credit. Spending, savings
// transfers and excess spending consume credit; borrowing restores it.
func (t Totals) Remaining(monthlyCredit core.Money) core.Money {
	return monthlyCredit.
		Sub(t.Spent).
		Sub(t.SavingsTransferred).
		Add(t.Borrowed).
		Sub(t.ExcessSpending)
}

// RemainingCredit is the month's credit left after the records. It may be
// negative, which signals overspend.
func RemainingCredit(summary core.FinanceSummary, records []core.DailyRecord) core.Money {
	return Fold(records).Remaining(summary.MonthlyCredit)
}

// AvailableSavings is the stored savings pool. Borrowing and transfers update
// it when they are recorded, so it is never recomputed from records.
func AvailableSavings(summary core.FinanceSummary) core.Money {
	return summary.TotalSavings
}

// AvailableForExcessSpending is the remaining credit floored at zero.
func AvailableForExcessSpending(summary core.FinanceSummary, records []core.DailyRecord) core.Money {
	return core.Max(core.Money{}, RemainingCredit(summary, records))
}

// DueStatus describes one day against the daily target.
type DueStatus struct {
	TotalSpent      core.Money `json:"totalSpent"`
	IsOverTarget    bool       `json:"isOverTarget"`
	CurrentDue      core.Money `json:"currentDue"`
	RemainingTarget core.Money `json:"remainingTarget"` // positive: still transferable to savings today
}

// DailyDue evaluates a record against the daily target.
func DailyDue(record core.DailyRecord, dailyTarget core.Money) DueStatus {
	spent := record.TotalSpent()
	over := core.Max(core.Money{}, spent.Sub(dailyTarget))
	return DueStatus{
		TotalSpent:      spent,
		IsOverTarget:    spent.GreaterThan(dailyTarget),
		CurrentDue:      core.MoneyOrZero(record.Due).Add(over),
		RemainingTarget: dailyTarget.Sub(spent).Sub(core.MoneyOrZero(record.SavingsTransferred)),
	}
}

// IsSetupStale reports whether the user should run monthly setup again:
// there is no summary yet, or it governs a month earlier than today's.
func IsSetupStale(summary *core.FinanceSummary, today time.Time) bool {
	if summary == nil || summary.CurrentMonth.IsZero() {
		return true
	}
	return summary.CurrentMonth.Before(core.MonthOf(today))
}

// Overview bundles the derived figures a dashboard shows for one month.
type Overview struct {
	Month                      core.Month `json:"month"`
	MonthlyCredit              core.Money `json:"monthlyCredit"`
	DailyTarget                core.Money `json:"dailyTarget"`
	Totals                     Totals     `json:"totals"`
	RemainingCredit            core.Money `json:"remainingCredit"`
	AvailableSavings           core.Money `json:"availableSavings"`
	AvailableForExcessSpending core.Money `json:"availableForExcessSpending"`
	SetupStale                 bool       `json:"setupStale"`
	Days                       int        `json:"days"`
}

// Reconcile computes the overview of the given records for a month.
func Reconcile(summary *core.FinanceSummary, month core.Month, records []core.DailyRecord, today time.Time) Overview {
	ov := Overview{
		Month:      month,
		SetupStale: IsSetupStale(summary, today),
		Days:       len(records),
	}
	ov.Totals = Fold(records)
	if summary == nil {
		ov.RemainingCredit = ov.Totals.Remaining(core.Money{})
		ov.AvailableForExcessSpending = core.Max(core.Money{}, ov.RemainingCredit)
		return ov
	}
	ov.MonthlyCredit = summary.MonthlyCredit
	ov.DailyTarget = summary.DailyTarget
	ov.RemainingCredit = ov.Totals.Remaining(summary.MonthlyCredit)
	ov.AvailableSavings = AvailableSavings(*summary)
	ov.AvailableForExcessSpending = core.Max(core.Money{}, ov.RemainingCredit)
	return ov
}
