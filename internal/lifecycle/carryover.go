package lifecycle

import "financeflow/internal/core"

// CarryOver copies the incomplete tasks of the previous day into today when
// today has no tasks yet. Carried tasks get the "-carried" id suffix and
// keep their original creation date; a task without one is dated today.
// previous may be nil.
func CarryOver(today core.DailyRecord, previous *core.DailyRecord) Outcome {
	if len(today.Tasks) > 0 || previous == nil {
		return unchanged(today)
	}
	var carried []core.Task
	for _, t := range previous.Tasks {
		if t.Completed {
			continue
		}
		created := t.CreatedDate
		if created.IsZero() {
			created = today.Date
		}
		carried = append(carried, core.Task{
			ID:          t.ID + core.CarriedSuffix,
			Description: t.Description,
			CreatedDate: created,
		})
	}
	if len(carried) == 0 {
		return unchanged(today)
	}
	return outcome(today, core.DailyRecordPatch{Tasks: core.Set(carried)}, core.Money{})
}
