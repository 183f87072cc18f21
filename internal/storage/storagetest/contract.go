// Package storagetest holds the behaviour every storage.Store must share.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/storage"
)

var at = time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

func money(c int64) core.Money { return core.Cents(c) }

// Run exercises a fresh store returned by newStore for every subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("missing documents", func(t *testing.T) { testMissing(t, newStore(t)) })
	t.Run("setup keeps savings", func(t *testing.T) { testSetupKeepsSavings(t, newStore(t)) })
	t.Run("save summary replaces", func(t *testing.T) { testSaveSummary(t, newStore(t)) })
	t.Run("apply daily patch", func(t *testing.T) { testApplyDaily(t, newStore(t)) })
	t.Run("savings delta", func(t *testing.T) { testSavingsDelta(t, newStore(t)) })
	t.Run("decision sees stored state", func(t *testing.T) { testDecision(t, newStore(t)) })
	t.Run("concurrent decisions", func(t *testing.T) { testConcurrentDecisions(t, newStore(t)) })
	t.Run("list month range", func(t *testing.T) { testListDaily(t, newStore(t)) })
	t.Run("list users", func(t *testing.T) { testListUsers(t, newStore(t)) })
}

func setup(t *testing.T, s storage.Store, user string) core.FinanceSummary {
	t.Helper()
	sum, err := s.SetupMonth(context.Background(), storage.MonthlySetup{
		UserID:        user,
		Month:         core.NewMonth(2024, 1),
		MonthlyCredit: money(300000),
		DailyTarget:   money(10000),
		At:            at,
	})
	if err != nil {
		t.Fatalf("SetupMonth: %v", err)
	}
	return sum
}

func testMissing(t *testing.T, s storage.Store) {
	ctx := context.Background()
	sum, err := s.GetSummary(ctx, "nobody")
	if err != nil || sum != nil {
		t.Fatalf("GetSummary(missing) = %v, %v", sum, err)
	}
	rec, err := s.GetDaily(ctx, "nobody", core.NewDate(2024, 1, 1))
	if err != nil || rec != nil {
		t.Fatalf("GetDaily(missing) = %v, %v", rec, err)
	}
	from, to := core.NewMonth(2024, 1).Range()
	recs, err := s.ListDaily(ctx, "nobody", from, to)
	if err != nil || len(recs) != 0 {
		t.Fatalf("ListDaily(missing) = %v, %v", recs, err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func testSetupKeepsSavings(t *testing.T, s storage.Store) {
	ctx := context.Background()
	sum := setup(t, s, "u1")
	if sum.TotalSavings != (core.Money{}) || sum.CurrentMonth.String() != "2024-01" {
		t.Fatalf("unexpected first setup: %+v", sum)
	}

	if _, err := s.ApplyDaily(ctx, storage.DailyCommand{
		UserID:       "u1",
		Date:         core.NewDate(2024, 1, 5),
		Patch:        core.DailyRecordPatch{SavingsTransferred: core.Set(money(2500))},
		SavingsDelta: money(2500),
		At:           at,
	}); err != nil {
		t.Fatalf("ApplyDaily: %v", err)
	}

	sum, err := s.SetupMonth(ctx, storage.MonthlySetup{
		UserID:        "u1",
		Month:         core.NewMonth(2024, 2),
		MonthlyCredit: money(250000),
		DailyTarget:   money(8000),
		At:            at.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("SetupMonth: %v", err)
	}
	if sum.TotalSavings != money(2500) {
		t.Fatalf("savings not kept across setup: %v", sum.TotalSavings)
	}
	if sum.MonthlyCredit != money(250000) || sum.DailyTarget != money(8000) || sum.CurrentMonth.String() != "2024-02" {
		t.Fatalf("setup fields not replaced: %+v", sum)
	}
	if !sum.CreatedAt.Equal(at) {
		t.Fatalf("createdAt changed: %v", sum.CreatedAt)
	}

	if _, err := s.SetupMonth(ctx, storage.MonthlySetup{UserID: "u1", Month: core.NewMonth(2024, 3), MonthlyCredit: money(-1)}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func testSaveSummary(t *testing.T, s storage.Store) {
	ctx := context.Background()
	setup(t, s, "u1")
	saved, err := s.SaveSummary(ctx, core.FinanceSummary{
		UserID:        "u1",
		MonthlyCredit: money(100000),
		DailyTarget:   money(3000),
		TotalSavings:  money(-4200),
		CurrentMonth:  core.NewMonth(2024, 1),
		UpdatedAt:     at.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}
	got, err := s.GetSummary(ctx, "u1")
	if err != nil || got == nil {
		t.Fatalf("GetSummary: %v, %v", got, err)
	}
	if got.TotalSavings != money(-4200) || got.MonthlyCredit != money(100000) {
		t.Fatalf("summary not replaced: %+v", got)
	}
	if !saved.CreatedAt.Equal(at) || !got.UpdatedAt.Equal(at.Add(time.Hour)) {
		t.Fatalf("timestamps: created %v updated %v", saved.CreatedAt, got.UpdatedAt)
	}
}

func testApplyDaily(t *testing.T, s storage.Store) {
	ctx := context.Background()
	date := core.NewDate(2024, 1, 2)
	entry := core.SpendingEntry{ID: "e1", Description: "coffee", Amount: money(350), Timestamp: at}

	rec, err := s.ApplyDaily(ctx, storage.DailyCommand{
		UserID: "u1",
		Date:   date,
		Patch: core.DailyRecordPatch{
			Spending: core.Set([]core.SpendingEntry{entry}),
			Notes:    core.Set("first"),
			Due:      core.Set(money(1000)),
		},
		At: at,
	})
	if err != nil {
		t.Fatalf("ApplyDaily: %v", err)
	}
	if rec.TotalSpent() != money(350) || rec.Due == nil {
		t.Fatalf("unexpected record: %+v", rec)
	}

	_, err = s.ApplyDaily(ctx, storage.DailyCommand{
		UserID: "u1",
		Date:   date,
		Patch: core.DailyRecordPatch{
			Tasks: core.Set([]core.Task{{ID: "t1", Description: "call bank", CreatedDate: date}}),
			Due:   core.Clear[core.Money](),
		},
		At: at.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("ApplyDaily: %v", err)
	}

	got, err := s.GetDaily(ctx, "u1", date)
	if err != nil || got == nil {
		t.Fatalf("GetDaily: %v, %v", got, err)
	}
	if len(got.Spending) != 1 || got.Spending[0].ID != "e1" || got.Spending[0].Amount != money(350) {
		t.Fatalf("spending lost: %+v", got.Spending)
	}
	if !got.Spending[0].Timestamp.Equal(at) {
		t.Fatalf("timestamp = %v", got.Spending[0].Timestamp)
	}
	if got.Notes == nil || *got.Notes != "first" {
		t.Fatalf("notes lost: %v", got.Notes)
	}
	if got.Due != nil {
		t.Fatalf("due should be cleared, got %v", *got.Due)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].CreatedDate.String() != "2024-01-02" {
		t.Fatalf("tasks: %+v", got.Tasks)
	}
	if !got.CreatedAt.Equal(at) || !got.UpdatedAt.Equal(at.Add(time.Minute)) {
		t.Fatalf("timestamps: %v %v", got.CreatedAt, got.UpdatedAt)
	}
}

func testSavingsDelta(t *testing.T, s storage.Store) {
	ctx := context.Background()
	date := core.NewDate(2024, 1, 3)

	_, err := s.ApplyDaily(ctx, storage.DailyCommand{
		UserID:       "u1",
		Date:         date,
		Patch:        core.DailyRecordPatch{Borrowed: core.Set(money(500))},
		SavingsDelta: money(-500),
		At:           at,
	})
	if !errors.Is(err, core.ErrNoSummary) {
		t.Fatalf("expected ErrNoSummary without setup, got %v", err)
	}
	if rec, _ := s.GetDaily(ctx, "u1", date); rec != nil {
		t.Fatalf("failed command must not leave a record behind: %+v", rec)
	}

	setup(t, s, "u1")
	for _, delta := range []int64{-20000, 5000, 15000} {
		if _, err := s.ApplyDaily(ctx, storage.DailyCommand{UserID: "u1", Date: date, SavingsDelta: money(delta), At: at}); err != nil {
			t.Fatalf("ApplyDaily(%d): %v", delta, err)
		}
	}
	sum, _ := s.GetSummary(ctx, "u1")
	if sum.TotalSavings != (core.Money{}) {
		t.Fatalf("savings = %v, want 0", sum.TotalSavings)
	}
}

// borrow is a decision that adds amount to the day's borrowed total and
// takes it out of savings.
func borrow(amount int64) storage.DailyDecision {
	return func(current *core.DailyRecord, _ *core.FinanceSummary) (core.DailyRecordPatch, core.Money, error) {
		var old core.Money
		if current != nil && current.Borrowed != nil {
			old = *current.Borrowed
		}
		return core.DailyRecordPatch{Borrowed: core.Set(old.Add(money(amount)))}, money(-amount), nil
	}
}

func testDecision(t *testing.T, s storage.Store) {
	ctx := context.Background()
	date := core.NewDate(2024, 1, 4)

	var sawRecord, sawSummary bool
	rec, err := s.ApplyDaily(ctx, storage.DailyCommand{
		UserID: "u1",
		Date:   date,
		At:     at,
		Decide: func(current *core.DailyRecord, sum *core.FinanceSummary) (core.DailyRecordPatch, core.Money, error) {
			sawRecord, sawSummary = current != nil, sum != nil
			return core.DailyRecordPatch{}, core.Money{}, nil
		},
	})
	if err != nil {
		t.Fatalf("no-op decision: %v", err)
	}
	if sawRecord || sawSummary {
		t.Fatalf("fresh store: saw record %v, summary %v", sawRecord, sawSummary)
	}
	if !rec.Date.Equal(date.Time) || rec.UserID != "u1" {
		t.Fatalf("no-op result = %+v", rec)
	}
	if stored, _ := s.GetDaily(ctx, "u1", date); stored != nil {
		t.Fatalf("no-op decision stored a record: %+v", stored)
	}

	setup(t, s, "u1")
	if _, err := s.ApplyDaily(ctx, storage.DailyCommand{UserID: "u1", Date: date, At: at, Decide: borrow(300)}); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	rec, err = s.ApplyDaily(ctx, storage.DailyCommand{UserID: "u1", Date: date, At: at, Decide: borrow(200)})
	if err != nil {
		t.Fatalf("borrow again: %v", err)
	}
	if rec.Borrowed == nil || rec.Borrowed.Cents != 500 {
		t.Fatalf("borrowed = %v, want 500", rec.Borrowed)
	}

	rejected := errors.New("rejected")
	_, err = s.ApplyDaily(ctx, storage.DailyCommand{
		UserID: "u1",
		Date:   date,
		At:     at,
		Decide: func(*core.DailyRecord, *core.FinanceSummary) (core.DailyRecordPatch, core.Money, error) {
			return core.DailyRecordPatch{}, core.Money{}, rejected
		},
	})
	if !errors.Is(err, rejected) {
		t.Fatalf("decision error = %v, want %v", err, rejected)
	}

	sum, _ := s.GetSummary(ctx, "u1")
	if sum.TotalSavings.Cents != -500 {
		t.Fatalf("savings = %v, want -5.00", sum.TotalSavings)
	}
}

func testConcurrentDecisions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	date := core.NewDate(2024, 1, 5)
	setup(t, s, "u1")

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ApplyDaily(ctx, storage.DailyCommand{UserID: "u1", Date: date, At: at, Decide: borrow(100)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("ApplyDaily: %v", err)
		}
	}

	rec, _ := s.GetDaily(ctx, "u1", date)
	sum, _ := s.GetSummary(ctx, "u1")
	if rec == nil || rec.Borrowed == nil || rec.Borrowed.Cents != writers*100 {
		t.Fatalf("record = %+v, want borrowed %d", rec, writers*100)
	}
	if sum.TotalSavings.Cents != -writers*100 {
		t.Fatalf("savings = %v, want %d cents", sum.TotalSavings, -writers*100)
	}
}

func testListDaily(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for _, d := range []core.Date{
		core.NewDate(2024, 2, 1),
		core.NewDate(2024, 1, 31),
		core.NewDate(2024, 1, 1),
		core.NewDate(2023, 12, 31),
		core.NewDate(2024, 1, 15),
	} {
		if _, err := s.ApplyDaily(ctx, storage.DailyCommand{UserID: "u1", Date: d, Patch: core.DailyRecordPatch{Notes: core.Set(d.String())}, At: at}); err != nil {
			t.Fatalf("ApplyDaily: %v", err)
		}
	}
	if _, err := s.ApplyDaily(ctx, storage.DailyCommand{UserID: "u2", Date: core.NewDate(2024, 1, 10), At: at}); err != nil {
		t.Fatalf("ApplyDaily: %v", err)
	}

	from, to := core.NewMonth(2024, 1).Range()
	recs, err := s.ListDaily(ctx, "u1", from, to)
	if err != nil {
		t.Fatalf("ListDaily: %v", err)
	}
	var got []string
	for _, r := range recs {
		got = append(got, r.Date.String())
	}
	want := []string{"2024-01-01", "2024-01-15", "2024-01-31"}
	if len(got) != len(want) {
		t.Fatalf("ListDaily = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ListDaily = %v, want %v", got, want)
		}
	}
}

func testListUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	setup(t, s, "bob")
	if _, err := s.ApplyDaily(ctx, storage.DailyCommand{UserID: "alice", Date: core.NewDate(2024, 1, 1), At: at}); err != nil {
		t.Fatalf("ApplyDaily: %v", err)
	}
	if _, err := s.ApplyDaily(ctx, storage.DailyCommand{UserID: "bob", Date: core.NewDate(2024, 1, 1), At: at}); err != nil {
		t.Fatalf("ApplyDaily: %v", err)
	}
	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 || users[0] != "alice" || users[1] != "bob" {
		t.Fatalf("ListUsers = %v", users)
	}
}
