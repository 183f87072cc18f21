package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ClearingDueDescription labels the synthetic spending entry created when a due is cleared.
	ClearingDueDescription = "Clearing due"

	// CarriedSuffix is appended to a task id when the task is carried to the next day.
	CarriedSuffix = "-carried"

	maxDescriptionLength = 200
)

type (
	// FinanceSummary is the per-user budget header for the active month.
	FinanceSummary struct {
		UserID        string    `json:"-"`
		MonthlyCredit Money     `json:"monthlyCredit"`
		DailyTarget   Money     `json:"dailyTarget"`
		TotalSavings  Money     `json:"totalSavings"` // may go negative through borrowing
		CurrentMonth  Month     `json:"currentMonth"`
		CreatedAt     time.Time `json:"createdAt"`
		UpdatedAt     time.Time `json:"updatedAt"`
	}

	SpendingEntry struct {
		ID          string    `json:"id"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		Timestamp   time.Time `json:"timestamp"`
	}

	Task struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Completed   bool   `json:"completed"`
		CreatedDate Date   `json:"createdDate"` // preserved across carry-over
	}

	// DailyRecord holds everything logged for one user on one calendar date.
	// Nil pointers mean the field was never written.
	DailyRecord struct {
		UserID               string          `json:"-"`
		Date                 Date            `json:"date"`
		Spending             []SpendingEntry `json:"spending,omitempty"`
		Tasks                []Task          `json:"tasks,omitempty"`
		Notes                *string         `json:"notes,omitempty"`
		Due                  *Money          `json:"due,omitempty"`
		SavingsTransferred   *Money          `json:"savingsTransferred,omitempty"`
		Borrowed             *Money          `json:"borrowed,omitempty"`
		ExcessSpending       *Money          `json:"excessSpending,omitempty"`
		ExcessSpendingReason *string         `json:"excessSpendingReason,omitempty"`
		CreatedAt            time.Time       `json:"createdAt"`
		UpdatedAt            time.Time       `json:"updatedAt"`
	}

	// DailyRecordPatch lists the fields a write replaces. Fields left at their
	// zero value are not touched.
	DailyRecordPatch struct {
		Spending             Optional[[]SpendingEntry]
		Tasks                Optional[[]Task]
		Notes                Optional[string]
		Due                  Optional[Money]
		SavingsTransferred   Optional[Money]
		Borrowed             Optional[Money]
		ExcessSpending       Optional[Money]
		ExcessSpendingReason Optional[string]
	}
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrDescriptionLong  = errors.New("description too long")
	ErrEmptyReason      = errors.New("empty reason")
	ErrEntryNotFound    = errors.New("spending entry not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrNoSummary        = errors.New("finance summary not found")
)

// Validate checks the summary fields a monthly setup or a full save may write.
func (s FinanceSummary) Validate() error {
	if s.MonthlyCredit.IsNegative() {
		return fmt.Errorf("monthly credit: %w", ErrInvalidAmount)
	}
	if s.DailyTarget.IsNegative() {
		return fmt.Errorf("daily target: %w", ErrInvalidAmount)
	}
	if err := s.CurrentMonth.Validate(); err != nil {
		return err
	}
	return nil
}

func (e SpendingEntry) Validate() error {
	if err := ValidateDescription(e.Description); err != nil {
		return err
	}
	return e.Amount.Validate()
}

// CarriedOver reports whether the task was created before the given record date.
func (t Task) CarriedOver(recordDate Date) bool {
	return !t.CreatedDate.IsZero() && t.CreatedDate.String() != recordDate.String()
}

// ValidateDescription rejects blank or overly long free text.
func ValidateDescription(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyDescription
	}
	if len(s) > maxDescriptionLength {
		return fmt.Errorf("%w (max %d characters)", ErrDescriptionLong, maxDescriptionLength)
	}
	return nil
}

// TotalSpent sums the itemized spending of the record.
func (r DailyRecord) TotalSpent() Money {
	var total Money
	for _, e := range r.Spending {
		total = total.Add(e.Amount)
	}
	return total
}

func (r DailyRecord) FindSpending(id string) (int, bool) {
	for i, e := range r.Spending {
		if e.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (r DailyRecord) FindTask(id string) (int, bool) {
	for i, t := range r.Tasks {
		if t.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Clone returns a deep copy so patches never alias the caller's slices.
func (r DailyRecord) Clone() DailyRecord {
	out := r
	if r.Spending != nil {
		out.Spending = append([]SpendingEntry(nil), r.Spending...)
	}
	if r.Tasks != nil {
		out.Tasks = append([]Task(nil), r.Tasks...)
	}
	out.Notes = clonePtr(r.Notes)
	out.Due = clonePtr(r.Due)
	out.SavingsTransferred = clonePtr(r.SavingsTransferred)
	out.Borrowed = clonePtr(r.Borrowed)
	out.ExcessSpending = clonePtr(r.ExcessSpending)
	out.ExcessSpendingReason = clonePtr(r.ExcessSpendingReason)
	return out
}

// Apply merges the patch into a copy of the record.
func (r DailyRecord) Apply(p DailyRecordPatch) DailyRecord {
	out := r.Clone()
	if v, ok := p.Spending.Get(); ok {
		out.Spending = append([]SpendingEntry(nil), v...)
	} else if p.Spending.IsCleared() {
		out.Spending = nil
	}
	if v, ok := p.Tasks.Get(); ok {
		out.Tasks = append([]Task(nil), v...)
	} else if p.Tasks.IsCleared() {
		out.Tasks = nil
	}
	p.Notes.ApplyTo(&out.Notes)
	p.Due.ApplyTo(&out.Due)
	p.SavingsTransferred.ApplyTo(&out.SavingsTransferred)
	p.Borrowed.ApplyTo(&out.Borrowed)
	p.ExcessSpending.ApplyTo(&out.ExcessSpending)
	p.ExcessSpendingReason.ApplyTo(&out.ExcessSpendingReason)
	return out
}

// IsEmpty reports whether the patch would leave every field untouched.
func (p DailyRecordPatch) IsEmpty() bool {
	return !p.Spending.IsSet() && !p.Tasks.IsSet() && !p.Notes.IsSet() &&
		!p.Due.IsSet() && !p.SavingsTransferred.IsSet() && !p.Borrowed.IsSet() &&
		!p.ExcessSpending.IsSet() && !p.ExcessSpendingReason.IsSet()
}

// Then combines two patches applied in sequence: fields set in next win.
func (p DailyRecordPatch) Then(next DailyRecordPatch) DailyRecordPatch {
	out := p
	if next.Spending.IsSet() {
		out.Spending = next.Spending
	}
	if next.Tasks.IsSet() {
		out.Tasks = next.Tasks
	}
	if next.Notes.IsSet() {
		out.Notes = next.Notes
	}
	if next.Due.IsSet() {
		out.Due = next.Due
	}
	if next.SavingsTransferred.IsSet() {
		out.SavingsTransferred = next.SavingsTransferred
	}
	if next.Borrowed.IsSet() {
		out.Borrowed = next.Borrowed
	}
	if next.ExcessSpending.IsSet() {
		out.ExcessSpending = next.ExcessSpending
	}
	if next.ExcessSpendingReason.IsSet() {
		out.ExcessSpendingReason = next.ExcessSpendingReason
	}
	return out
}

// MoneyOrZero dereferences an optional amount.
func MoneyOrZero(m *Money) Money {
	if m == nil {
		return Money{}
	}
	return *m
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
