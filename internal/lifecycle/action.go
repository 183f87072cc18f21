package lifecycle

import (
	"errors"
	"fmt"

	"financeflow/internal/core"
	"financeflow/internal/ledger"
)

// Kind names an action.
type Kind string

const (
	KindAddSpending    Kind = "add_spending"
	KindDeleteSpending Kind = "delete_spending"
	KindAddTask        Kind = "add_task"
	KindToggleTask     Kind = "toggle_task"
	KindDeleteTask     Kind = "delete_task"
	KindTransfer       Kind = "transfer_to_savings"
	KindBorrow         Kind = "borrow"
	KindEditBorrowed   Kind = "edit_borrowed"
	KindDeleteBorrowed Kind = "delete_borrowed"
	KindExcessSpending Kind = "excess_spending"
	KindClearDue       Kind = "clear_due"
	KindSetDue         Kind = "set_due"
	KindSetNotes       Kind = "set_notes"
)

var ErrUnknownAction = errors.New("unknown action")

// Action is a single user action in transport-neutral form. Which fields
// are read depends on Kind.
type Action struct {
	Kind        Kind       `json:"kind"`
	ID          string     `json:"id,omitempty"`
	Description string     `json:"description,omitempty"`
	Amount      core.Money `json:"amount"`
	Text        string     `json:"text,omitempty"`
}

// State is everything an action may read: the record it targets, the
// user's summary and the other records of the same month.
type State struct {
	Record       core.DailyRecord
	Summary      core.FinanceSummary
	MonthRecords []core.DailyRecord
}

// Apply dispatches an action.
func (m *Manager) Apply(st State, a Action) (Outcome, error) {
	rec := st.Record
	switch a.Kind {
	case KindAddSpending:
		return m.AddSpending(rec, a.Description, a.Amount)
	case KindDeleteSpending:
		return m.DeleteSpending(rec, a.ID)
	case KindAddTask:
		return m.AddTask(rec, a.Description)
	case KindToggleTask:
		return m.ToggleTask(rec, a.ID)
	case KindDeleteTask:
		return m.DeleteTask(rec, a.ID)
	case KindTransfer:
		return m.TransferToSavings(rec, st.Summary, a.Amount)
	case KindBorrow:
		return m.Borrow(rec, st.Summary, a.Amount)
	case KindEditBorrowed:
		return m.EditBorrowed(rec, a.Amount)
	case KindDeleteBorrowed:
		return m.DeleteBorrowed(rec)
	case KindExcessSpending:
		return m.RecordExcessSpending(rec, a.Amount, a.Text, ledger.AvailableForExcessSpending(st.Summary, st.MonthRecords))
	case KindClearDue:
		return m.ClearDue(rec, st.Summary)
	case KindSetDue:
		return m.SetDue(rec, a.Amount)
	case KindSetNotes:
		return m.SetNotes(rec, a.Text)
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
}

// Valid reports whether k names a known action.
func (k Kind) Valid() bool {
	switch k {
	case KindAddSpending, KindDeleteSpending, KindAddTask, KindToggleTask, KindDeleteTask,
		KindTransfer, KindBorrow, KindEditBorrowed, KindDeleteBorrowed,
		KindExcessSpending, KindClearDue, KindSetDue, KindSetNotes:
		return true
	}
	return false
}
