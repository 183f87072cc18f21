package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"financeflow/internal/amqp"
	"financeflow/internal/cache"
	"financeflow/internal/core"
	"financeflow/internal/ledger"
	"financeflow/internal/lifecycle"
	"financeflow/internal/log"
	"financeflow/internal/storage"
)

// Event actions published for summary-level changes. Daily actions use the
// lifecycle kind as their action name.
const (
	EventMonthlySetup = "monthly_setup"
	EventSummarySaved = "summary_saved"
	EventCarryOver    = "carry_over"
)

// EventPublisher is implemented by *amqp.Client.
type EventPublisher interface {
	PublishBudgetEvent(ctx context.Context, msg *amqp.BudgetEventMessage) error
}

// DayView is a materialized daily record with its standing against the
// daily target.
type DayView struct {
	Record core.DailyRecord `json:"record"`
	Status ledger.DueStatus `json:"status"`
}

// ActionResult is returned after a committed lifecycle action.
type ActionResult struct {
	Record       core.DailyRecord    `json:"record"`
	Status       ledger.DueStatus    `json:"status"`
	SavingsDelta core.Money          `json:"savingsDelta"`
	TotalSavings *core.Money         `json:"totalSavings,omitempty"`
	Warnings     []lifecycle.Warning `json:"warnings,omitempty"`
}

// BudgetService orchestrates reads and lifecycle actions over a Store.
// An empty user id means an anonymous caller: reads return empty results
// and writes fail with core.ErrUnauthenticated.
type BudgetService struct {
	store     storage.Store
	manager   *lifecycle.Manager
	publisher EventPublisher
	overviews *cache.LRUCache[ledger.Overview]
	now       func() time.Time
	logger    *log.Logger
}

type Option func(*BudgetService)

func WithPublisher(p EventPublisher) Option {
	return func(s *BudgetService) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *BudgetService) { s.now = now }
}

// WithOverviewCache replaces the overview cache. nil disables caching, which
// processes that do not see every write (the worker) need.
func WithOverviewCache(c *cache.LRUCache[ledger.Overview]) Option {
	return func(s *BudgetService) { s.overviews = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *BudgetService) { s.logger = l }
}

func NewBudgetService(store storage.Store, manager *lifecycle.Manager, opts ...Option) *BudgetService {
	s := &BudgetService{
		store:     store,
		manager:   manager,
		overviews: cache.NewLRUCache[ledger.Overview](256, 5*time.Minute),
		now:       time.Now,
		logger:    log.New(log.DefaultConfig()).WithComponent(log.ComponentBudget),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.manager == nil {
		s.manager = lifecycle.NewManager(lifecycle.WithClock(s.now))
	}
	return s
}

// Today is the service clock's calendar date.
func (s *BudgetService) Today() core.Date {
	return core.DateOf(s.now())
}

// Summary returns the user's summary, or nil if there is none yet.
func (s *BudgetService) Summary(ctx context.Context, userID string) (*core.FinanceSummary, error) {
	if userID == "" {
		return nil, nil
	}
	sum, err := s.store.GetSummary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}
	return sum, nil
}

// SaveSummary replaces every field of the user's summary.
func (s *BudgetService) SaveSummary(ctx context.Context, userID string, sum core.FinanceSummary) (core.FinanceSummary, error) {
	if userID == "" {
		return core.FinanceSummary{}, core.ErrUnauthenticated
	}
	sum.UserID = userID
	sum.UpdatedAt = s.now()
	saved, err := s.store.SaveSummary(ctx, sum)
	if err != nil {
		return core.FinanceSummary{}, fmt.Errorf("save summary: %w", err)
	}
	s.invalidate(userID)
	s.publish(ctx, amqp.NewBudgetEventMessage(userID, "", EventSummarySaved, 0))
	return saved, nil
}

// SetupMonth starts the current month with the given credit and target.
// The savings pool carries over from the previous month.
func (s *BudgetService) SetupMonth(ctx context.Context, userID string, monthlyCredit, dailyTarget core.Money) (core.FinanceSummary, error) {
	if userID == "" {
		return core.FinanceSummary{}, core.ErrUnauthenticated
	}
	now := s.now()
	sum, err := s.store.SetupMonth(ctx, storage.MonthlySetup{
		UserID:        userID,
		Month:         core.MonthOf(now),
		MonthlyCredit: monthlyCredit,
		DailyTarget:   dailyTarget,
		At:            now,
	})
	if err != nil {
		return core.FinanceSummary{}, fmt.Errorf("monthly setup: %w", err)
	}
	s.invalidate(userID)
	s.logger.InfoContext(ctx, "Monthly setup completed",
		log.FieldUserID, userID,
		log.FieldMonth, sum.CurrentMonth.String(),
		log.FieldAmountCents, monthlyCredit.Cents)
	s.publish(ctx, amqp.NewBudgetEventMessage(userID, "", EventMonthlySetup, 0))
	return sum, nil
}

// resolveMonth picks the month to show when the caller did not ask for one:
// the summary's month, else the current month.
func (s *BudgetService) resolveMonth(month core.Month, sum *core.FinanceSummary) core.Month {
	if !month.IsZero() {
		return month
	}
	if sum != nil && !sum.CurrentMonth.IsZero() {
		return sum.CurrentMonth
	}
	return core.MonthOf(s.now())
}

// load fetches the summary and a month of records concurrently. When month
// is zero the summary decides which month to load.
func (s *BudgetService) load(ctx context.Context, userID string, month core.Month) (*core.FinanceSummary, core.Month, []core.DailyRecord, error) {
	if month.IsZero() {
		sum, err := s.store.GetSummary(ctx, userID)
		if err != nil {
			return nil, month, nil, fmt.Errorf("load summary: %w", err)
		}
		month = s.resolveMonth(month, sum)
		from, to := month.Range()
		records, err := s.store.ListDaily(ctx, userID, from, to)
		if err != nil {
			return nil, month, nil, fmt.Errorf("load records: %w", err)
		}
		return sum, month, records, nil
	}

	var (
		sum     *core.FinanceSummary
		records []core.DailyRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if sum, err = s.store.GetSummary(gctx, userID); err != nil {
			return fmt.Errorf("load summary: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		from, to := month.Range()
		var err error
		if records, err = s.store.ListDaily(gctx, userID, from, to); err != nil {
			return fmt.Errorf("load records: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, month, nil, err
	}
	return sum, month, records, nil
}

// Overview reconciles a month. A zero month means the summary's month.
func (s *BudgetService) Overview(ctx context.Context, userID string, month core.Month) (ledger.Overview, error) {
	if userID == "" {
		return ledger.Reconcile(nil, s.resolveMonth(month, nil), nil, s.now()), nil
	}
	if !month.IsZero() && s.overviews != nil {
		if ov, ok := s.overviews.Get(overviewKey(userID, month)); ok {
			return ov, nil
		}
	}

	sum, month, records, err := s.load(ctx, userID, month)
	if err != nil {
		return ledger.Overview{}, err
	}
	ov := ledger.Reconcile(sum, month, records, s.now())
	if s.overviews != nil {
		s.overviews.Set(overviewKey(userID, month), ov)
	}
	return ov, nil
}

// MonthRecords returns the month's records keyed by date.
func (s *BudgetService) MonthRecords(ctx context.Context, userID string, month core.Month) (map[string]core.DailyRecord, error) {
	out := map[string]core.DailyRecord{}
	if userID == "" {
		return out, nil
	}
	_, _, records, err := s.load(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		out[r.Date.String()] = r
	}
	return out, nil
}

// Day returns the record for date, carrying over yesterday's open tasks
// first when date is not in the future.
func (s *BudgetService) Day(ctx context.Context, userID string, date core.Date) (DayView, error) {
	if err := date.Validate(); err != nil {
		return DayView{}, err
	}
	if userID == "" {
		return DayView{Record: core.DailyRecord{Date: date}}, nil
	}

	var (
		rec, prev *core.DailyRecord
		sum       *core.FinanceSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	s.loadDay(gctx, g, userID, date, &rec, &prev, &sum)
	if err := g.Wait(); err != nil {
		return DayView{}, fmt.Errorf("load day %s: %w", date, err)
	}

	current := core.DailyRecord{UserID: userID, Date: date}
	if rec != nil {
		current = *rec
	}

	if !date.After(s.Today().Time) && lifecycle.CarryOver(current, prev).Changed() {
		// Decided again on the stored record: a concurrent writer may have
		// added tasks since the read.
		carried := false
		committed, err := s.store.ApplyDaily(ctx, storage.DailyCommand{
			UserID: userID,
			Date:   date,
			At:     s.now(),
			Decide: func(stored *core.DailyRecord, _ *core.FinanceSummary) (core.DailyRecordPatch, core.Money, error) {
				base := core.DailyRecord{UserID: userID, Date: date}
				if stored != nil {
					base = *stored
				}
				out := lifecycle.CarryOver(base, prev)
				carried = out.Changed()
				return out.Patch, core.Money{}, nil
			},
		})
		if err != nil {
			return DayView{}, fmt.Errorf("save day %s: %w", date, err)
		}
		current = committed
		if carried {
			s.committed(ctx, userID, date, EventCarryOver, core.Money{}, nil)
			s.logger.InfoContext(ctx, "Tasks carried over",
				log.FieldUserID, userID,
				log.FieldDate, date.String(),
				"count", len(committed.Tasks))
		}
	}

	return DayView{Record: current, Status: ledger.DailyDue(current, targetOf(sum))}, nil
}

// Apply runs one lifecycle action against the record for date and commits
// the result. A day that does not exist yet receives carried tasks first.
// The action is evaluated inside the store command, against the record and
// savings pool it commits to.
func (s *BudgetService) Apply(ctx context.Context, userID string, date core.Date, action lifecycle.Action) (ActionResult, error) {
	if userID == "" {
		return ActionResult{}, core.ErrUnauthenticated
	}
	if err := date.Validate(); err != nil {
		return ActionResult{}, err
	}

	var (
		prev  *core.DailyRecord
		month []core.DailyRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prev, err = s.store.GetDaily(gctx, userID, date.Prev())
		return err
	})
	g.Go(func() error {
		from, to := date.Month().Range()
		var err error
		month, err = s.store.ListDaily(gctx, userID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return ActionResult{}, fmt.Errorf("load day %s: %w", date, err)
	}

	var (
		out      lifecycle.Outcome
		sum      *core.FinanceSummary
		changed  bool
		rejected bool
	)
	decide := func(stored *core.DailyRecord, summary *core.FinanceSummary) (core.DailyRecordPatch, core.Money, error) {
		sum = summary
		base := lifecycle.Outcome{Record: core.DailyRecord{UserID: userID, Date: date}}
		if stored != nil {
			base.Record = *stored
		} else if !date.After(s.Today().Time) {
			base = lifecycle.CarryOver(base.Record, prev)
		}

		st := lifecycle.State{Record: base.Record, MonthRecords: replaceDay(month, base.Record)}
		if summary != nil {
			st.Summary = *summary
		}
		var err error
		if out, err = s.manager.Apply(st, action); err != nil {
			rejected = true
			return core.DailyRecordPatch{}, core.Money{}, err
		}

		combined := lifecycle.Outcome{Patch: base.Patch.Then(out.Patch), SavingsDelta: out.SavingsDelta}
		changed = combined.Changed()
		return combined.Patch, combined.SavingsDelta, nil
	}

	rec, err := s.store.ApplyDaily(ctx, storage.DailyCommand{
		UserID: userID,
		Date:   date,
		At:     s.now(),
		Decide: decide,
	})
	if err != nil {
		if rejected {
			return ActionResult{}, err
		}
		return ActionResult{}, fmt.Errorf("save day %s: %w", date, err)
	}

	result := ActionResult{Record: rec, Warnings: out.Warnings}
	if changed {
		result.SavingsDelta = out.SavingsDelta
		s.committed(ctx, userID, date, string(action.Kind), out.SavingsDelta, warningCodes(out.Warnings))
	}
	if sum != nil {
		total := sum.TotalSavings.Add(result.SavingsDelta)
		result.TotalSavings = &total
	}
	result.Status = ledger.DailyDue(result.Record, targetOf(sum))

	s.logger.InfoContext(ctx, "Budget action applied",
		log.FieldUserID, userID,
		log.FieldDate, date.String(),
		log.FieldAction, string(action.Kind),
		log.FieldAmountCents, action.Amount.Cents,
		"warnings", len(out.Warnings))
	return result, nil
}

// Rollover materializes today's record for a user and reports whether the
// user's monthly setup is stale.
func (s *BudgetService) Rollover(ctx context.Context, userID string) (stale bool, err error) {
	if userID == "" {
		return false, core.ErrUnauthenticated
	}
	if _, err := s.Day(ctx, userID, s.Today()); err != nil {
		return false, err
	}
	sum, err := s.store.GetSummary(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load summary: %w", err)
	}
	return ledger.IsSetupStale(sum, s.now()), nil
}

// Users lists every known user id.
func (s *BudgetService) Users(ctx context.Context) ([]string, error) {
	return s.store.ListUsers(ctx)
}

// Ready reports whether the store is reachable.
func (s *BudgetService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// loadDay schedules the lookups of a day, the day before it and the summary.
func (s *BudgetService) loadDay(ctx context.Context, g *errgroup.Group, userID string, date core.Date,
	rec, prev **core.DailyRecord, sum **core.FinanceSummary) {
	g.Go(func() error {
		var err error
		*rec, err = s.store.GetDaily(ctx, userID, date)
		return err
	})
	g.Go(func() error {
		var err error
		*prev, err = s.store.GetDaily(ctx, userID, date.Prev())
		return err
	})
	g.Go(func() error {
		var err error
		*sum, err = s.store.GetSummary(ctx, userID)
		return err
	})
}

// committed runs the follow-ups of a stored daily change.
func (s *BudgetService) committed(ctx context.Context, userID string, date core.Date, action string, delta core.Money, warnings []string) {
	s.invalidate(userID)

	msg := amqp.NewBudgetEventMessage(userID, date.String(), action, delta.Cents)
	msg.Warnings = warnings
	s.publish(ctx, msg)
}

// invalidate drops every cached overview of the user. Savings changes
// affect all months.
func (s *BudgetService) invalidate(userID string) {
	if s.overviews == nil {
		return
	}
	s.overviews.DeletePrefix(userID + "|")
}

func (s *BudgetService) publish(ctx context.Context, msg *amqp.BudgetEventMessage) {
	if s.publisher == nil {
		return
	}
	// The write is already committed; a lost event only delays alerts.
	if err := s.publisher.PublishBudgetEvent(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish budget event",
			log.FieldUserID, msg.UserID,
			log.FieldAction, msg.Action,
			log.FieldError, err)
	}
}

func overviewKey(userID string, month core.Month) string {
	return userID + "|" + month.String()
}

// replaceDay returns records with the entry for rec's date swapped for rec,
// or rec appended when the month has no such day yet.
func replaceDay(records []core.DailyRecord, rec core.DailyRecord) []core.DailyRecord {
	out := make([]core.DailyRecord, 0, len(records)+1)
	found := false
	for _, r := range records {
		if r.Date.Equal(rec.Date.Time) {
			out = append(out, rec)
			found = true
			continue
		}
		out = append(out, r)
	}
	if !found {
		out = append(out, rec)
	}
	return out
}

func targetOf(sum *core.FinanceSummary) core.Money {
	if sum == nil {
		return core.Money{}
	}
	return sum.DailyTarget
}

func warningCodes(ws []lifecycle.Warning) []string {
	if len(ws) == 0 {
		return nil
	}
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}
