package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"financeflow/internal/auth"
	"financeflow/internal/services"
	"financeflow/internal/storage"
	"financeflow/internal/storage/memory"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type harness struct {
	t       *testing.T
	store   *memory.Store
	config  string
	environ map[string]string
	opened  []string
}

func newHarness(t *testing.T) *harness {
	return &harness{
		t:       t,
		store:   memory.New(),
		config:  filepath.Join(t.TempDir(), "config.toml"),
		environ: map[string]string{"USER": "alice"},
	}
}

// run executes one financectl invocation against the shared memory store.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	e := &env{
		out: &out,
		openStore: func(path string) (storage.Store, error) {
			h.opened = append(h.opened, path)
			return h.store, nil
		},
		now:    func() time.Time { return fixedNow },
		getenv: func(k string) string { return h.environ[k] },
	}
	root := newRootCmd(e)
	root.SetArgs(append(args, "--config", h.config))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("financectl %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func decodeResult(t *testing.T, out string) services.ActionResult {
	t.Helper()
	var res services.ActionResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return res
}

func TestSpendAndShowDay(t *testing.T) {
	h := newHarness(t)
	h.mustRun("setup", "3000", "50")

	res := decodeResult(t, h.mustRun("spend", "12,50", "coffee", "and", "cake", "--json"))
	if len(res.Record.Spending) != 1 || res.Record.Spending[0].Description != "coffee and cake" {
		t.Fatalf("record = %+v", res.Record)
	}
	if res.Record.Spending[0].Amount.Cents != 1250 {
		t.Fatalf("amount = %v", res.Record.Spending[0].Amount)
	}

	out := h.mustRun("day")
	if !strings.Contains(out, "coffee and cake") || !strings.Contains(out, "Left:      37.50") {
		t.Fatalf("day output:\n%s", out)
	}

	out = h.mustRun("overview", "--month", "2024-03")
	if !strings.Contains(out, "Remaining credit: 2987.50") {
		t.Fatalf("overview output:\n%s", out)
	}
}

func TestUserAndDateFlags(t *testing.T) {
	h := newHarness(t)
	h.mustRun("setup", "1000", "20", "--user", "bob", "--db", "/tmp/other.db")
	h.mustRun("spend", "5", "bus", "--user", "bob", "--date", "2024-03-10")

	sum, err := h.store.GetSummary(context.Background(), "bob")
	if err != nil || sum == nil {
		t.Fatalf("summary for bob = %v, %v", sum, err)
	}
	if sum, _ := h.store.GetSummary(context.Background(), "alice"); sum != nil {
		t.Fatal("alice should have no summary")
	}
	if h.opened[0] != "/tmp/other.db" {
		t.Fatalf("opened %v", h.opened)
	}

	days, err := h.store.ListUsers(context.Background())
	if err != nil || len(days) != 1 || days[0] != "bob" {
		t.Fatalf("users = %v, %v", days, err)
	}

	if _, err := h.run("day", "--date", "10/03/2024"); err == nil {
		t.Fatal("bad --date should fail")
	}
}

func TestBorrowLifecycleRestoresSavings(t *testing.T) {
	h := newHarness(t)
	h.mustRun("setup", "3000", "50")

	res := decodeResult(t, h.mustRun("borrow", "40", "--json"))
	if res.TotalSavings == nil || res.TotalSavings.Cents != -4000 || len(res.Warnings) != 1 {
		t.Fatalf("after borrow = %+v", res)
	}
	res = decodeResult(t, h.mustRun("borrow", "edit", "25", "--json"))
	if res.TotalSavings.Cents != -2500 {
		t.Fatalf("after edit savings = %v", res.TotalSavings)
	}
	res = decodeResult(t, h.mustRun("borrow", "delete", "--json"))
	if res.TotalSavings.Cents != 0 || (res.Record.Borrowed != nil && !res.Record.Borrowed.IsZero()) {
		t.Fatalf("after delete = %+v", res)
	}
}

func TestTasks(t *testing.T) {
	h := newHarness(t)

	res := decodeResult(t, h.mustRun("task", "add", "call", "bank", "--json"))
	if len(res.Record.Tasks) != 1 {
		t.Fatalf("tasks = %+v", res.Record.Tasks)
	}
	id := res.Record.Tasks[0].ID

	res = decodeResult(t, h.mustRun("task", "toggle", id, "--json"))
	if !res.Record.Tasks[0].Completed {
		t.Fatal("task should be completed")
	}
	res = decodeResult(t, h.mustRun("task", "delete", id, "--json"))
	if len(res.Record.Tasks) != 0 {
		t.Fatalf("tasks = %+v", res.Record.Tasks)
	}

	if _, err := h.run("task", "toggle", "missing"); err == nil {
		t.Fatal("unknown task should fail")
	}
}

func TestDueAndNotes(t *testing.T) {
	h := newHarness(t)
	h.mustRun("setup", "3000", "50")

	res := decodeResult(t, h.mustRun("due", "set", "15", "--json"))
	if res.Record.Due == nil || res.Record.Due.Cents != 1500 {
		t.Fatalf("due = %v", res.Record.Due)
	}
	res = decodeResult(t, h.mustRun("notes", "paid", "rent", "--json"))
	if res.Record.Notes == nil || *res.Record.Notes != "paid rent" {
		t.Fatalf("notes = %v", res.Record.Notes)
	}
}

func TestToken(t *testing.T) {
	h := newHarness(t)

	if _, err := h.run("token"); err == nil {
		t.Fatal("token without a secret should fail")
	}

	secret := "0123456789abcdef0123"
	h.environ["JWT_SECRET"] = secret
	out := h.mustRun("token", "--user", "carol")
	user, err := auth.NewTokenService(secret, time.Hour).ParseToken(strings.TrimSpace(out))
	if err != nil || user != "carol" {
		t.Fatalf("ParseToken = %q, %v", user, err)
	}
}

func TestConfigSave(t *testing.T) {
	h := newHarness(t)
	h.mustRun("config", "save", "--user", "dave", "--db", "/data/ff.db")

	out := h.mustRun("config")
	if !strings.Contains(out, "User:        dave") || !strings.Contains(out, "Database:    /data/ff.db") {
		t.Fatalf("config output:\n%s", out)
	}

	h.mustRun("setup", "100", "5")
	if h.opened[len(h.opened)-1] != "/data/ff.db" {
		t.Fatalf("opened %v", h.opened)
	}
	if sum, _ := h.store.GetSummary(context.Background(), "dave"); sum == nil {
		t.Fatal("saved user should be the default")
	}
}
