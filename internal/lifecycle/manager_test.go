package lifecycle

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/ledger"
)

var fixedNow = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

func newTestManager() *Manager {
	n := 0
	return NewManager(
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
}

func amountPtr(c int64) *core.Money {
	m := core.Cents(c)
	return &m
}

func TestAddSpending(t *testing.T) {
	m := newTestManager()
	rec := core.DailyRecord{Date: core.NewDate(2024, 1, 2)}

	out, err := m.AddSpending(rec, "  coffee ", core.Cents(350))
	if err != nil {
		t.Fatalf("AddSpending: %v", err)
	}
	if len(out.Record.Spending) != 1 {
		t.Fatalf("expected one entry, got %d", len(out.Record.Spending))
	}
	e := out.Record.Spending[0]
	if e.ID != "id-1" || e.Description != "coffee" || e.Amount != core.Cents(350) || !e.Timestamp.Equal(fixedNow) {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if !out.SavingsDelta.IsZero() {
		t.Fatalf("spending must not touch savings")
	}
	if len(rec.Spending) != 0 {
		t.Fatalf("input record mutated")
	}
}

func TestAddSpendingRejectsBadInput(t *testing.T) {
	m := newTestManager()
	cases := []struct {
		desc   string
		amount core.Money
		want   error
	}{
		{"lunch", core.Money{}, core.ErrInvalidAmount},
		{"lunch", core.Cents(-100), core.ErrInvalidAmount},
		{"   ", core.Cents(100), core.ErrEmptyDescription},
	}
	for _, tc := range cases {
		if _, err := m.AddSpending(core.DailyRecord{}, tc.desc, tc.amount); !errors.Is(err, tc.want) {
			t.Fatalf("AddSpending(%q, %v) err = %v, want %v", tc.desc, tc.amount, err, tc.want)
		}
	}
}

func TestDeleteSpending(t *testing.T) {
	m := newTestManager()
	rec := core.DailyRecord{Spending: []core.SpendingEntry{
		{ID: "a", Amount: core.Cents(100)},
		{ID: "b", Amount: core.Cents(200)},
		{ID: "c", Amount: core.Cents(300)},
	}}
	out, err := m.DeleteSpending(rec, "b")
	if err != nil {
		t.Fatalf("DeleteSpending: %v", err)
	}
	if got := out.Record.TotalSpent(); got != core.Cents(400) {
		t.Fatalf("TotalSpent = %v", got)
	}
	if out.Record.Spending[0].ID != "a" || out.Record.Spending[1].ID != "c" {
		t.Fatalf("order not preserved: %+v", out.Record.Spending)
	}
	if _, err := m.DeleteSpending(rec, "zzz"); !errors.Is(err, core.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestTasks(t *testing.T) {
	m := newTestManager()
	rec := core.DailyRecord{Date: core.NewDate(2024, 1, 2)}

	out, err := m.AddTask(rec, "pay rent")
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	task := out.Record.Tasks[0]
	if task.Completed || task.CreatedDate.String() != "2024-01-02" {
		t.Fatalf("unexpected task: %+v", task)
	}

	out, err = m.ToggleTask(out.Record, task.ID)
	if err != nil || !out.Record.Tasks[0].Completed {
		t.Fatalf("ToggleTask: %+v, %v", out.Record.Tasks, err)
	}
	out, err = m.ToggleTask(out.Record, task.ID)
	if err != nil || out.Record.Tasks[0].Completed {
		t.Fatalf("second ToggleTask should reopen: %+v, %v", out.Record.Tasks, err)
	}

	out, err = m.DeleteTask(out.Record, task.ID)
	if err != nil || len(out.Record.Tasks) != 0 {
		t.Fatalf("DeleteTask: %+v, %v", out.Record.Tasks, err)
	}

	if _, err := m.ToggleTask(rec, "missing"); !errors.Is(err, core.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := m.AddTask(rec, ""); !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
}

func TestTransferMonotonicity(t *testing.T) {
	m := newTestManager()
	summary := core.FinanceSummary{MonthlyCredit: core.Cents(300000), DailyTarget: core.Cents(10000), TotalSavings: core.Cents(5000)}
	rec := core.DailyRecord{Date: core.NewDate(2024, 1, 2), SavingsTransferred: amountPtr(1000)}

	before := ledger.RemainingCredit(summary, []core.DailyRecord{rec})
	out, err := m.TransferToSavings(rec, summary, core.Cents(2500))
	if err != nil {
		t.Fatalf("TransferToSavings: %v", err)
	}
	if got := core.MoneyOrZero(out.Record.SavingsTransferred); got != core.Cents(3500) {
		t.Fatalf("savingsTransferred = %v, want 35.00", got)
	}
	if out.SavingsDelta != core.Cents(2500) {
		t.Fatalf("SavingsDelta = %v, want +25.00", out.SavingsDelta)
	}
	after := ledger.RemainingCredit(summary, []core.DailyRecord{out.Record})
	if before.Sub(after) != core.Cents(2500) {
		t.Fatalf("remaining credit dropped by %v, want 25.00", before.Sub(after))
	}
	if len(out.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", out.Warnings)
	}

	if _, err := m.TransferToSavings(rec, summary, core.Money{}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestTransferAboveRemainingTargetWarns(t *testing.T) {
	m := newTestManager()
	summary := core.FinanceSummary{DailyTarget: core.Cents(10000)}
	rec := core.DailyRecord{Spending: []core.SpendingEntry{{ID: "a", Amount: core.Cents(8000)}}}

	out, err := m.TransferToSavings(rec, summary, core.Cents(5000))
	if err != nil {
		t.Fatalf("TransferToSavings: %v", err)
	}
	if len(out.Warnings) != 1 || out.Warnings[0].Code != WarnAboveRemainingTarget {
		t.Fatalf("expected remaining target warning, got %+v", out.Warnings)
	}
	if out.SavingsDelta != core.Cents(5000) {
		t.Fatalf("warning must not cap the transfer, delta = %v", out.SavingsDelta)
	}
}

// Borrow 200 from 500 savings, edit to 150, delete: savings goes 300, 350, 500.
func TestBorrowEditDeleteScenario(t *testing.T) {
	m := newTestManager()
	summary := core.FinanceSummary{TotalSavings: core.Cents(50000)}
	rec := core.DailyRecord{Date: core.NewDate(2024, 1, 5)}

	out, err := m.Borrow(rec, summary, core.Cents(20000))
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	summary.TotalSavings = summary.TotalSavings.Add(out.SavingsDelta)
	if summary.TotalSavings != core.Cents(30000) {
		t.Fatalf("after borrow savings = %v, want 300.00", summary.TotalSavings)
	}
	if len(out.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", out.Warnings)
	}

	out, err = m.EditBorrowed(out.Record, core.Cents(15000))
	if err != nil {
		t.Fatalf("EditBorrowed: %v", err)
	}
	summary.TotalSavings = summary.TotalSavings.Add(out.SavingsDelta)
	if summary.TotalSavings != core.Cents(35000) || core.MoneyOrZero(out.Record.Borrowed) != core.Cents(15000) {
		t.Fatalf("after edit savings = %v borrowed = %v", summary.TotalSavings, out.Record.Borrowed)
	}

	out, err = m.DeleteBorrowed(out.Record)
	if err != nil {
		t.Fatalf("DeleteBorrowed: %v", err)
	}
	summary.TotalSavings = summary.TotalSavings.Add(out.SavingsDelta)
	if summary.TotalSavings != core.Cents(50000) {
		t.Fatalf("after delete savings = %v, want 500.00", summary.TotalSavings)
	}
	if out.Record.Borrowed == nil || !out.Record.Borrowed.IsZero() {
		t.Fatalf("borrowed should be zero after delete, got %v", out.Record.Borrowed)
	}
}

func TestBorrowReciprocity(t *testing.T) {
	m := newTestManager()
	for _, start := range []int64{0, 1, 12345, 50000} {
		for _, amount := range []int64{1, 99, 20000, 70000} {
			summary := core.FinanceSummary{TotalSavings: core.Cents(start)}
			out, err := m.Borrow(core.DailyRecord{}, summary, core.Cents(amount))
			if err != nil {
				t.Fatalf("Borrow: %v", err)
			}
			edit, err := m.EditBorrowed(out.Record, core.Cents(amount))
			if err != nil {
				t.Fatalf("EditBorrowed: %v", err)
			}
			if !edit.SavingsDelta.IsZero() {
				t.Fatalf("start %d amount %d: unchanged edit moved savings by %v", start, amount, edit.SavingsDelta)
			}
			del, err := m.DeleteBorrowed(edit.Record)
			if err != nil {
				t.Fatalf("DeleteBorrowed: %v", err)
			}
			got := summary.TotalSavings.Add(out.SavingsDelta).Add(edit.SavingsDelta).Add(del.SavingsDelta)
			if got != core.Cents(start) {
				t.Fatalf("start %d amount %d: savings ended at %v", start, amount, got)
			}
			if amount > start && len(out.Warnings) == 0 {
				t.Fatalf("start %d amount %d: expected savings warning", start, amount)
			}
		}
	}
}

func TestBorrowNoOps(t *testing.T) {
	m := newTestManager()
	rec := core.DailyRecord{Borrowed: amountPtr(500)}

	out, err := m.EditBorrowed(rec, core.Cents(500))
	if err != nil || out.Changed() {
		t.Fatalf("editing to the same amount should be a no-op: %+v, %v", out, err)
	}
	out, err = m.DeleteBorrowed(core.DailyRecord{})
	if err != nil || out.Changed() {
		t.Fatalf("deleting nothing should be a no-op: %+v, %v", out, err)
	}
	if _, err := m.Borrow(rec, core.FinanceSummary{}, core.Money{}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := m.EditBorrowed(rec, core.Cents(-1)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestRecordExcessSpending(t *testing.T) {
	m := newTestManager()
	rec := core.DailyRecord{ExcessSpending: amountPtr(1000), ExcessSpendingReason: strPtr("gift")}

	out, err := m.RecordExcessSpending(rec, core.Cents(3000), "car repair", core.Cents(100000))
	if err != nil {
		t.Fatalf("RecordExcessSpending: %v", err)
	}
	if core.MoneyOrZero(out.Record.ExcessSpending) != core.Cents(4000) {
		t.Fatalf("excessSpending = %v", out.Record.ExcessSpending)
	}
	if *out.Record.ExcessSpendingReason != "car repair" {
		t.Fatalf("reason = %q", *out.Record.ExcessSpendingReason)
	}
	if len(out.Record.Spending) != 0 || !out.SavingsDelta.IsZero() {
		t.Fatalf("excess spending leaked: %+v", out)
	}

	out, err = m.RecordExcessSpending(rec, core.Cents(3000), "again", core.Cents(2000))
	if err != nil || len(out.Warnings) != 1 || out.Warnings[0].Code != WarnAboveAvailableExcess {
		t.Fatalf("expected excess warning, got %+v, %v", out.Warnings, err)
	}

	if _, err := m.RecordExcessSpending(rec, core.Cents(100), " ", core.Cents(100)); !errors.Is(err, core.ErrEmptyReason) {
		t.Fatalf("expected ErrEmptyReason, got %v", err)
	}
}

func TestClearDueNoOpAtZero(t *testing.T) {
	m := newTestManager()
	summary := core.FinanceSummary{DailyTarget: core.Cents(10000)}

	for _, rec := range []core.DailyRecord{
		{},
		{Due: amountPtr(0)},
		// due present but no room left under the target
		{Due: amountPtr(500), Spending: []core.SpendingEntry{{ID: "a", Amount: core.Cents(10000)}}},
	} {
		out, err := m.ClearDue(rec, summary)
		if err != nil {
			t.Fatalf("ClearDue: %v", err)
		}
		if out.Changed() || len(out.Record.Spending) != len(rec.Spending) {
			t.Fatalf("expected no-op, got %+v", out)
		}
	}
}

func TestDueClearingScenario(t *testing.T) {
	m := newTestManager()
	summary := core.FinanceSummary{MonthlyCredit: core.Cents(300000), DailyTarget: core.Cents(10000)}

	day1 := core.DailyRecord{Date: core.NewDate(2024, 1, 1)}
	out, _ := m.AddSpending(day1, "groceries", core.Cents(4000))
	out, _ = m.AddSpending(out.Record, "dinner", core.Cents(7000))
	status := ledger.DailyDue(out.Record, summary.DailyTarget)
	if status.CurrentDue != core.Cents(1000) || status.RemainingTarget != core.Cents(-1000) {
		t.Fatalf("day 1 status = %+v", status)
	}

	day2 := core.DailyRecord{Date: core.NewDate(2024, 1, 2)}
	out, err := m.SetDue(day2, status.CurrentDue)
	if err != nil {
		t.Fatalf("SetDue: %v", err)
	}
	out, _ = m.AddSpending(out.Record, "lunch", core.Cents(5000))
	if got := ledger.DailyDue(out.Record, summary.DailyTarget).RemainingTarget; got != core.Cents(5000) {
		t.Fatalf("day 2 remaining target = %v, want 50.00", got)
	}

	out, err = m.ClearDue(out.Record, summary)
	if err != nil {
		t.Fatalf("ClearDue: %v", err)
	}
	rec := out.Record
	if rec.Due != nil {
		t.Fatalf("due should be absent, got %v", *rec.Due)
	}
	if !out.Patch.Due.IsCleared() {
		t.Fatalf("patch must clear due so storage drops it")
	}
	last := rec.Spending[len(rec.Spending)-1]
	if last.Description != core.ClearingDueDescription || last.Amount != core.Cents(1000) {
		t.Fatalf("unexpected synthetic entry: %+v", last)
	}
	if rec.TotalSpent() != core.Cents(6000) {
		t.Fatalf("day 2 total = %v, want 60.00", rec.TotalSpent())
	}
}

func TestClearDuePartial(t *testing.T) {
	m := newTestManager()
	summary := core.FinanceSummary{DailyTarget: core.Cents(10000)}
	rec := core.DailyRecord{Due: amountPtr(4000), Spending: []core.SpendingEntry{{ID: "a", Amount: core.Cents(7000)}}}

	out, err := m.ClearDue(rec, summary)
	if err != nil {
		t.Fatalf("ClearDue: %v", err)
	}
	if core.MoneyOrZero(out.Record.Due) != core.Cents(1000) {
		t.Fatalf("due = %v, want 10.00 left", out.Record.Due)
	}
	if out.Record.TotalSpent() != core.Cents(10000) {
		t.Fatalf("total = %v", out.Record.TotalSpent())
	}
}

func TestSetDueAndNotes(t *testing.T) {
	m := newTestManager()
	out, err := m.SetDue(core.DailyRecord{Due: amountPtr(100)}, core.Money{})
	if err != nil || out.Record.Due != nil {
		t.Fatalf("SetDue(0) should clear due: %+v, %v", out.Record.Due, err)
	}
	if _, err := m.SetDue(core.DailyRecord{}, core.Cents(-5)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	out, err = m.SetNotes(core.DailyRecord{}, "quiet day")
	if err != nil || out.Record.Notes == nil || *out.Record.Notes != "quiet day" {
		t.Fatalf("SetNotes: %+v, %v", out.Record.Notes, err)
	}
}

func TestApplyDispatch(t *testing.T) {
	m := newTestManager()
	st := State{
		Record:  core.DailyRecord{Date: core.NewDate(2024, 1, 2)},
		Summary: core.FinanceSummary{MonthlyCredit: core.Cents(10000), DailyTarget: core.Cents(1000)},
		MonthRecords: []core.DailyRecord{
			{Spending: []core.SpendingEntry{{ID: "x", Amount: core.Cents(9000)}}},
		},
	}

	out, err := m.Apply(st, Action{Kind: KindExcessSpending, Amount: core.Cents(2000), Text: "vet"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(out.Warnings) != 1 || out.Warnings[0].Limit != core.Cents(1000) {
		t.Fatalf("expected warning against 10.00 of room, got %+v", out.Warnings)
	}

	if _, err := m.Apply(st, Action{Kind: "launch_rocket"}); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if Kind("launch_rocket").Valid() || !KindClearDue.Valid() {
		t.Fatalf("Valid() mismatch")
	}
}

func strPtr(s string) *string { return &s }
