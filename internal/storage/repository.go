package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"financeflow/internal/core"

	_ "modernc.org/sqlite"
)

const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=synchronous(normal)"

type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers; sqlite allows only one anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const summaryColumns = `user_id, monthly_credit_cents, daily_target_cents, total_savings_cents, current_month, created_at, updated_at`

func (r *SQLiteRepository) GetSummary(ctx context.Context, userID string) (*core.FinanceSummary, error) {
	return getSummary(ctx, r.db, userID)
}

func getSummary(ctx context.Context, q querier, userID string) (*core.FinanceSummary, error) {
	row := q.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM finance_summaries WHERE user_id = ?`, userID)
	s, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return &s, nil
}

// SaveSummary implements Store. CreatedAt is kept when the summary exists.
func (r *SQLiteRepository) SaveSummary(ctx context.Context, s core.FinanceSummary) (core.FinanceSummary, error) {
	if err := s.Validate(); err != nil {
		return core.FinanceSummary{}, err
	}
	at := s.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = at
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO finance_summaries (`+summaryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			monthly_credit_cents = excluded.monthly_credit_cents,
			daily_target_cents   = excluded.daily_target_cents,
			total_savings_cents  = excluded.total_savings_cents,
			current_month        = excluded.current_month,
			updated_at           = excluded.updated_at`,
		s.UserID, s.MonthlyCredit.Cents, s.DailyTarget.Cents, s.TotalSavings.Cents,
		s.CurrentMonth.String(), formatTime(created), formatTime(at))
	if err != nil {
		return core.FinanceSummary{}, fmt.Errorf("save summary: %w", err)
	}

	slog.InfoContext(ctx, "Finance summary saved to SQLite",
		"user_id", s.UserID,
		"month", s.CurrentMonth.String(),
		"total_savings_cents", s.TotalSavings.Cents)

	return r.mustGetSummary(ctx, s.UserID)
}

// SetupMonth implements Store.
func (r *SQLiteRepository) SetupMonth(ctx context.Context, cmd MonthlySetup) (core.FinanceSummary, error) {
	probe := core.FinanceSummary{MonthlyCredit: cmd.MonthlyCredit, DailyTarget: cmd.DailyTarget, CurrentMonth: cmd.Month}
	if err := probe.Validate(); err != nil {
		return core.FinanceSummary{}, err
	}
	at := formatTime(cmd.At)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO finance_summaries (`+summaryColumns+`)
		VALUES (?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			monthly_credit_cents = excluded.monthly_credit_cents,
			daily_target_cents   = excluded.daily_target_cents,
			current_month        = excluded.current_month,
			updated_at           = excluded.updated_at`,
		cmd.UserID, cmd.MonthlyCredit.Cents, cmd.DailyTarget.Cents, cmd.Month.String(), at, at)
	if err != nil {
		return core.FinanceSummary{}, fmt.Errorf("setup month: %w", err)
	}

	slog.InfoContext(ctx, "Monthly setup saved to SQLite",
		"user_id", cmd.UserID,
		"month", cmd.Month.String(),
		"monthly_credit_cents", cmd.MonthlyCredit.Cents,
		"daily_target_cents", cmd.DailyTarget.Cents)

	return r.mustGetSummary(ctx, cmd.UserID)
}

func (r *SQLiteRepository) mustGetSummary(ctx context.Context, userID string) (core.FinanceSummary, error) {
	s, err := getSummary(ctx, r.db, userID)
	if err != nil {
		return core.FinanceSummary{}, err
	}
	if s == nil {
		return core.FinanceSummary{}, core.ErrNoSummary
	}
	return *s, nil
}

const dailyColumns = `user_id, date, spending, tasks, notes, due_cents, savings_transferred_cents,
	borrowed_cents, excess_spending_cents, excess_spending_reason, created_at, updated_at`

func (r *SQLiteRepository) GetDaily(ctx context.Context, userID string, date core.Date) (*core.DailyRecord, error) {
	return getDaily(ctx, r.db, userID, date)
}

func getDaily(ctx context.Context, q querier, userID string, date core.Date) (*core.DailyRecord, error) {
	row := q.QueryRowContext(ctx, `SELECT `+dailyColumns+` FROM daily_records WHERE user_id = ? AND date = ?`,
		userID, date.String())
	rec, err := scanDaily(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily record %s: %w", date, err)
	}
	return &rec, nil
}

// ListDaily implements Store.
func (r *SQLiteRepository) ListDaily(ctx context.Context, userID string, from, to core.Date) ([]core.DailyRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+dailyColumns+` FROM daily_records WHERE user_id = ? AND date >= ? AND date < ? ORDER BY date`,
		userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list daily records: %w", err)
	}
	defer rows.Close()

	var out []core.DailyRecord
	for rows.Next() {
		rec, err := scanDaily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily records: %w", err)
	}
	return out, nil
}

// ApplyDaily implements Store. The decision, the record upsert and the
// savings update share one transaction; the single connection keeps other
// commands out until it ends.
func (r *SQLiteRepository) ApplyDaily(ctx context.Context, cmd DailyCommand) (core.DailyRecord, error) {
	if err := cmd.Date.Validate(); err != nil {
		return core.DailyRecord{}, err
	}
	at := cmd.At
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.DailyRecord{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getDaily(ctx, tx, cmd.UserID, cmd.Date)
	if err != nil {
		return core.DailyRecord{}, err
	}
	rec := core.DailyRecord{UserID: cmd.UserID, Date: cmd.Date, CreatedAt: at}
	if current != nil {
		rec = *current
	}

	if cmd.Decide != nil {
		sum, err := getSummary(ctx, tx, cmd.UserID)
		if err != nil {
			return core.DailyRecord{}, err
		}
		cmd.Patch, cmd.SavingsDelta, err = cmd.Decide(current, sum)
		if err != nil {
			return core.DailyRecord{}, err
		}
		if cmd.Patch.IsEmpty() && cmd.SavingsDelta.IsZero() {
			return rec, nil
		}
	}

	rec = rec.Apply(cmd.Patch)
	rec.UpdatedAt = at

	if err := upsertDaily(ctx, tx, rec); err != nil {
		return core.DailyRecord{}, err
	}

	if !cmd.SavingsDelta.IsZero() {
		res, err := tx.ExecContext(ctx,
			`UPDATE finance_summaries SET total_savings_cents = total_savings_cents + ?, updated_at = ? WHERE user_id = ?`,
			cmd.SavingsDelta.Cents, formatTime(at), cmd.UserID)
		if err != nil {
			return core.DailyRecord{}, fmt.Errorf("adjust savings: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return core.DailyRecord{}, fmt.Errorf("adjust savings: %w", core.ErrNoSummary)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.DailyRecord{}, fmt.Errorf("commit daily record: %w", err)
	}

	slog.DebugContext(ctx, "Daily record saved to SQLite",
		"user_id", cmd.UserID,
		"date", cmd.Date.String(),
		"savings_delta_cents", cmd.SavingsDelta.Cents)

	return rec, nil
}

func upsertDaily(ctx context.Context, q querier, rec core.DailyRecord) error {
	spending, err := encodeList(rec.Spending)
	if err != nil {
		return fmt.Errorf("encode spending: %w", err)
	}
	tasks, err := encodeList(rec.Tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO daily_records (`+dailyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			spending                  = excluded.spending,
			tasks                     = excluded.tasks,
			notes                     = excluded.notes,
			due_cents                 = excluded.due_cents,
			savings_transferred_cents = excluded.savings_transferred_cents,
			borrowed_cents            = excluded.borrowed_cents,
			excess_spending_cents     = excluded.excess_spending_cents,
			excess_spending_reason    = excluded.excess_spending_reason,
			updated_at                = excluded.updated_at`,
		rec.UserID, rec.Date.String(), spending, tasks,
		nullString(rec.Notes), nullMoney(rec.Due), nullMoney(rec.SavingsTransferred),
		nullMoney(rec.Borrowed), nullMoney(rec.ExcessSpending), nullString(rec.ExcessSpendingReason),
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert daily record %s: %w", rec.Date, err)
	}
	return nil
}

// ListUsers implements Store.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM finance_summaries UNION SELECT user_id FROM daily_records ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func scanSummary(row rowScanner) (core.FinanceSummary, error) {
	var (
		s                       core.FinanceSummary
		credit, target, savings int64
		month, created, updated string
	)
	if err := row.Scan(&s.UserID, &credit, &target, &savings, &month, &created, &updated); err != nil {
		return s, err
	}
	m, err := core.ParseMonth(month)
	if err != nil {
		return s, err
	}
	s.MonthlyCredit = core.Cents(credit)
	s.DailyTarget = core.Cents(target)
	s.TotalSavings = core.Cents(savings)
	s.CurrentMonth = m
	if s.CreatedAt, err = parseTime(created); err != nil {
		return s, err
	}
	if s.UpdatedAt, err = parseTime(updated); err != nil {
		return s, err
	}
	return s, nil
}

func scanDaily(row rowScanner) (core.DailyRecord, error) {
	var (
		rec                            core.DailyRecord
		date, spending, tasks          string
		notes, reason                  sql.NullString
		due, transferred, borrowed, ex sql.NullInt64
		created, updated               string
	)
	err := row.Scan(&rec.UserID, &date, &spending, &tasks, &notes, &due, &transferred,
		&borrowed, &ex, &reason, &created, &updated)
	if err != nil {
		return rec, err
	}
	if rec.Date, err = core.ParseDate(date); err != nil {
		return rec, err
	}
	if err := decodeList(spending, &rec.Spending); err != nil {
		return rec, fmt.Errorf("decode spending: %w", err)
	}
	if err := decodeList(tasks, &rec.Tasks); err != nil {
		return rec, fmt.Errorf("decode tasks: %w", err)
	}
	rec.Notes = stringPtr(notes)
	rec.ExcessSpendingReason = stringPtr(reason)
	rec.Due = moneyPtr(due)
	rec.SavingsTransferred = moneyPtr(transferred)
	rec.Borrowed = moneyPtr(borrowed)
	rec.ExcessSpending = moneyPtr(ex)
	if rec.CreatedAt, err = parseTime(created); err != nil {
		return rec, err
	}
	if rec.UpdatedAt, err = parseTime(updated); err != nil {
		return rec, err
	}
	return rec, nil
}

func encodeList[T any](items []T) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	return string(b), err
}

func decodeList[T any](s string, dst *[]T) error {
	var items []T
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return err
	}
	if len(items) == 0 {
		items = nil
	}
	*dst = items
	return nil
}

func nullMoney(m *core.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Cents, Valid: true}
}

func moneyPtr(n sql.NullInt64) *core.Money {
	if !n.Valid {
		return nil
	}
	m := core.Cents(n.Int64)
	return &m
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
