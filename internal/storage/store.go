package storage

import (
	"context"
	"time"

	"financeflow/internal/core"
)

// DailyCommand is one committed lifecycle action: a patch to the record of
// (UserID, Date) and a delta to add to the user's savings pool. Both are
// applied atomically.
type DailyCommand struct {
	UserID       string
	Date         core.Date
	Patch        core.DailyRecordPatch
	SavingsDelta core.Money
	At           time.Time

	// Decide, when set, replaces Patch and SavingsDelta with a change
	// computed from the stored state.
	Decide DailyDecision
}

// DailyDecision computes the change to commit from the stored record (nil
// when the day does not exist yet) and the user's summary (nil without a
// setup). It runs inside the store's transaction or lock, so it must not
// call back into the store. An empty patch with a zero delta writes
// nothing; an error aborts the command and is returned unchanged.
type DailyDecision func(current *core.DailyRecord, summary *core.FinanceSummary) (core.DailyRecordPatch, core.Money, error)

// MonthlySetup starts a new budgeting month. The savings pool is kept.
type MonthlySetup struct {
	UserID        string
	Month         core.Month
	MonthlyCredit core.Money
	DailyTarget   core.Money
	At            time.Time
}

// Store is the persistence contract for finance summaries and daily
// records. Lookups of missing documents return nil without error.
type Store interface {
	GetSummary(ctx context.Context, userID string) (*core.FinanceSummary, error)
	// SaveSummary replaces every field of the user's summary.
	SaveSummary(ctx context.Context, s core.FinanceSummary) (core.FinanceSummary, error)
	SetupMonth(ctx context.Context, cmd MonthlySetup) (core.FinanceSummary, error)

	GetDaily(ctx context.Context, userID string, date core.Date) (*core.DailyRecord, error)
	// ListDaily returns the records with from <= date < to, ordered by date.
	ListDaily(ctx context.Context, userID string, from, to core.Date) ([]core.DailyRecord, error)
	// ApplyDaily creates the record if needed, merges the patch and adjusts
	// the savings pool in one step. A non-zero delta requires a summary.
	// Commands on the same store are serialized.
	ApplyDaily(ctx context.Context, cmd DailyCommand) (core.DailyRecord, error)

	// ListUsers returns every user id with a summary or a daily record.
	ListUsers(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}
