package memory

import (
	"context"
	"testing"

	"financeflow/internal/core"
	"financeflow/internal/storage"
	"financeflow/internal/storage/storagetest"
)

func TestMemoryStoreContract(t *testing.T) {
	storagetest.Run(t, func(*testing.T) storage.Store { return New() })
}

func TestGetDailyReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	date := core.NewDate(2024, 1, 1)
	if _, err := s.ApplyDaily(ctx, storage.DailyCommand{
		UserID: "u1",
		Date:   date,
		Patch:  core.DailyRecordPatch{Tasks: core.Set([]core.Task{{ID: "t1", Description: "x"}})},
	}); err != nil {
		t.Fatalf("ApplyDaily: %v", err)
	}

	rec, _ := s.GetDaily(ctx, "u1", date)
	rec.Tasks[0].Completed = true

	again, _ := s.GetDaily(ctx, "u1", date)
	if again.Tasks[0].Completed {
		t.Fatalf("caller mutation leaked into the store")
	}
}
