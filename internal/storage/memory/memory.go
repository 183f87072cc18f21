// Package memory is an in-process Store used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/storage"
)

type dayKey struct {
	user string
	date string
}

type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	summaries map[string]core.FinanceSummary
	days      map[dayKey]core.DailyRecord
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:       time.Now,
		summaries: map[string]core.FinanceSummary{},
		days:      map[dayKey]core.DailyRecord{},
	}
}

func (s *Store) GetSummary(_ context.Context, userID string) (*core.FinanceSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[userID]
	if !ok {
		return nil, nil
	}
	return &sum, nil
}

func (s *Store) SaveSummary(_ context.Context, sum core.FinanceSummary) (core.FinanceSummary, error) {
	if err := sum.Validate(); err != nil {
		return core.FinanceSummary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sum.UpdatedAt.IsZero() {
		sum.UpdatedAt = s.now()
	}
	if prev, ok := s.summaries[sum.UserID]; ok {
		sum.CreatedAt = prev.CreatedAt
	} else if sum.CreatedAt.IsZero() {
		sum.CreatedAt = sum.UpdatedAt
	}
	s.summaries[sum.UserID] = sum
	return sum, nil
}

func (s *Store) SetupMonth(_ context.Context, cmd storage.MonthlySetup) (core.FinanceSummary, error) {
	sum := core.FinanceSummary{
		UserID:        cmd.UserID,
		MonthlyCredit: cmd.MonthlyCredit,
		DailyTarget:   cmd.DailyTarget,
		CurrentMonth:  cmd.Month,
		CreatedAt:     cmd.At,
		UpdatedAt:     cmd.At,
	}
	if err := sum.Validate(); err != nil {
		return core.FinanceSummary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.summaries[cmd.UserID]; ok {
		sum.TotalSavings = prev.TotalSavings
		sum.CreatedAt = prev.CreatedAt
	}
	s.summaries[cmd.UserID] = sum
	return sum, nil
}

func (s *Store) GetDaily(_ context.Context, userID string, date core.Date) (*core.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.days[dayKey{userID, date.String()}]
	if !ok {
		return nil, nil
	}
	rec = rec.Clone()
	return &rec, nil
}

func (s *Store) ListDaily(_ context.Context, userID string, from, to core.Date) ([]core.DailyRecord, error) {
	lo, hi := from.String(), to.String()
	s.mu.Lock()
	var out []core.DailyRecord
	for k, rec := range s.days {
		if k.user == userID && k.date >= lo && k.date < hi {
			out = append(out, rec.Clone())
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

// ApplyDaily runs the decision, merges the patch and adjusts savings under
// one lock.
func (s *Store) ApplyDaily(_ context.Context, cmd storage.DailyCommand) (core.DailyRecord, error) {
	if err := cmd.Date.Validate(); err != nil {
		return core.DailyRecord{}, err
	}
	at := cmd.At
	if at.IsZero() {
		at = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey{cmd.UserID, cmd.Date.String()}
	rec, exists := s.days[key]
	if !exists {
		rec = core.DailyRecord{UserID: cmd.UserID, Date: cmd.Date, CreatedAt: at}
	}
	sum, hasSummary := s.summaries[cmd.UserID]

	if cmd.Decide != nil {
		var current *core.DailyRecord
		if exists {
			c := rec.Clone()
			current = &c
		}
		var summary *core.FinanceSummary
		if hasSummary {
			cp := sum
			summary = &cp
		}
		var err error
		cmd.Patch, cmd.SavingsDelta, err = cmd.Decide(current, summary)
		if err != nil {
			return core.DailyRecord{}, err
		}
		if cmd.Patch.IsEmpty() && cmd.SavingsDelta.IsZero() {
			return rec.Clone(), nil
		}
	}

	if !cmd.SavingsDelta.IsZero() && !hasSummary {
		return core.DailyRecord{}, fmt.Errorf("adjust savings: %w", core.ErrNoSummary)
	}

	rec = rec.Apply(cmd.Patch)
	rec.UpdatedAt = at
	s.days[key] = rec

	if !cmd.SavingsDelta.IsZero() {
		sum.TotalSavings = sum.TotalSavings.Add(cmd.SavingsDelta)
		sum.UpdatedAt = at
		s.summaries[cmd.UserID] = sum
	}
	return rec.Clone(), nil
}

func (s *Store) ListUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	seen := map[string]struct{}{}
	for id := range s.summaries {
		seen[id] = struct{}{}
	}
	for k := range s.days {
		seen[k.user] = struct{}{}
	}
	s.mu.Unlock()

	users := make([]string, 0, len(seen))
	for id := range seen {
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
