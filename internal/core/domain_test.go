package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDateParseAndNeighbours(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := d.Prev().String(); got != "2024-02-29" {
		t.Fatalf("Prev() = %s", got)
	}
	if got := d.Next().String(); got != "2024-03-02" {
		t.Fatalf("Next() = %s", got)
	}
	if got := d.Month().String(); got != "2024-03" {
		t.Fatalf("Month() = %s", got)
	}

	for _, bad := range []string{"", "2024-13-01", "2024-1-01", "yesterday"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q: expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestMonthRange(t *testing.T) {
	m, err := ParseMonth("2024-12")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	from, to := m.Range()
	if from.String() != "2024-12-01" || to.String() != "2025-01-01" {
		t.Fatalf("Range() = [%s, %s)", from, to)
	}
	if !NewMonth(2024, 11).Before(m) || m.Before(NewMonth(2024, 12)) {
		t.Fatalf("Before() ordering broken")
	}
	if _, err := ParseMonth("2024-1"); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestSummaryValidate(t *testing.T) {
	good := FinanceSummary{MonthlyCredit: Cents(300000), DailyTarget: Cents(10000), CurrentMonth: NewMonth(2024, 1)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []FinanceSummary{
		{MonthlyCredit: Cents(-1), CurrentMonth: NewMonth(2024, 1)},
		{DailyTarget: Cents(-1), CurrentMonth: NewMonth(2024, 1)},
		{MonthlyCredit: Cents(1)},
	}
	for i, s := range bads {
		if err := s.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestApplyPatchKeepsUnsetFields(t *testing.T) {
	notes := "groceries day"
	due := Cents(500)
	rec := DailyRecord{
		Date:     NewDate(2024, 1, 2),
		Spending: []SpendingEntry{{ID: "a", Description: "coffee", Amount: Cents(300)}},
		Notes:    &notes,
		Due:      &due,
	}

	out := rec.Apply(DailyRecordPatch{
		Borrowed: Set(Cents(2000)),
		Due:      Clear[Money](),
	})

	if out.Notes == nil || *out.Notes != notes {
		t.Fatalf("notes should be untouched, got %v", out.Notes)
	}
	if len(out.Spending) != 1 {
		t.Fatalf("spending should be untouched, got %d entries", len(out.Spending))
	}
	if out.Due != nil {
		t.Fatalf("due should be cleared, got %v", *out.Due)
	}
	if out.Borrowed == nil || out.Borrowed.Cents != 2000 {
		t.Fatalf("borrowed should be set, got %v", out.Borrowed)
	}
	// The source record must not be mutated.
	if rec.Due == nil || rec.Borrowed != nil {
		t.Fatalf("source record mutated: %+v", rec)
	}
}

func TestApplyPatchDoesNotAliasSlices(t *testing.T) {
	tasks := []Task{{ID: "t1", Description: "call bank"}}
	out := DailyRecord{}.Apply(DailyRecordPatch{Tasks: Set(tasks)})
	tasks[0].Completed = true
	if out.Tasks[0].Completed {
		t.Fatalf("patched record shares the caller's slice")
	}
}

func TestEmptyPatch(t *testing.T) {
	if !(DailyRecordPatch{}).IsEmpty() {
		t.Fatalf("zero patch should be empty")
	}
	if (DailyRecordPatch{Notes: Set("")}).IsEmpty() {
		t.Fatalf("patch setting notes should not be empty")
	}
}

func TestTaskCarriedOver(t *testing.T) {
	task := Task{ID: "t1", CreatedDate: NewDate(2024, 1, 1)}
	if !task.CarriedOver(NewDate(2024, 1, 2)) {
		t.Fatalf("task from a previous day should be flagged")
	}
	if task.CarriedOver(NewDate(2024, 1, 1)) {
		t.Fatalf("task created today should not be flagged")
	}
}

func TestDailyRecordJSON(t *testing.T) {
	borrowed := Cents(1500)
	rec := DailyRecord{
		Date:     NewDate(2024, 1, 2),
		Borrowed: &borrowed,
		Tasks:    []Task{{ID: "t1", Description: "x", CreatedDate: NewDate(2024, 1, 1)}},
	}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back DailyRecord
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Date.String() != "2024-01-02" || back.Borrowed == nil || back.Borrowed.Cents != 1500 {
		t.Fatalf("unexpected round trip: %s", b)
	}
	if back.Due != nil || back.Notes != nil {
		t.Fatalf("absent fields should stay absent: %s", b)
	}
	if back.Tasks[0].CreatedDate.String() != "2024-01-01" {
		t.Fatalf("task created date lost: %s", b)
	}
}

func TestPatchThen(t *testing.T) {
	first := DailyRecordPatch{Tasks: Set([]Task{{ID: "a-carried"}}), Notes: Set("x")}
	second := DailyRecordPatch{Tasks: Set([]Task{{ID: "a-carried"}, {ID: "b"}}), Due: Clear[Money]()}

	got := DailyRecord{Due: &[]Money{Cents(5)}[0]}.Apply(first.Then(second))
	if len(got.Tasks) != 2 || got.Notes == nil || *got.Notes != "x" || got.Due != nil {
		t.Fatalf("unexpected merge result: %+v", got)
	}
}
