package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finsight/internal/core"

	_ "modernc.org/sqlite"
)

// dateLayout is the storage format for transaction dates.
const dateLayout = "2006-01-02"

// MetricSnapshot is a persisted computation result awaiting export.
type MetricSnapshot struct {
	ID        string
	Kind      string
	Period    string
	Payload   string // JSON
	Exported  bool
	CreatedAt time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
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

// Ping checks database connectivity, used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateTransaction inserts a transaction and returns its ID.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (tx_date, kind, description, amount_cents, category)
		 VALUES (?, ?, ?, ?, ?)`,
		t.Date.Format(dateLayout), string(t.Kind), t.Description, t.Amount.Cents, t.Category)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"kind", t.Kind,
		"amount_cents", t.Amount.Cents,
		"category", t.Category)

	return id, nil
}

// ListTransactions returns all transactions in a month, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, period string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tx_date, kind, description, amount_cents, category
		 FROM transactions
		 WHERE substr(tx_date, 1, 7) = ?
		 ORDER BY tx_date DESC, id DESC`, period)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t       core.Transaction
			rawDate string
			kind    string
		)
		if err := rows.Scan(&t.ID, &rawDate, &kind, &t.Description, &t.Amount.Cents, &t.Category); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		parsed, err := time.Parse(dateLayout, rawDate)
		if err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", rawDate, err)
		}
		t.Date = core.Date{Time: parsed}
		t.Kind = core.TransactionKind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// MonthlySeries aggregates income and expense totals per calendar month
// over the most recent months, ordered ascending by period.
func (r *SQLiteRepository) MonthlySeries(ctx context.Context, months int) ([]core.TimeSeriesPoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT substr(tx_date, 1, 7) AS period,
		        COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount_cents ELSE 0 END), 0)
		 FROM transactions
		 GROUP BY period
		 ORDER BY period DESC
		 LIMIT ?`, months)
	if err != nil {
		return nil, fmt.Errorf("monthly series: %w", err)
	}
	defer rows.Close()

	var desc []core.TimeSeriesPoint
	for rows.Next() {
		var p core.TimeSeriesPoint
		if err := rows.Scan(&p.Period, &p.Income.Cents, &p.Expenses.Cents); err != nil {
			return nil, fmt.Errorf("scan series point: %w", err)
		}
		desc = append(desc, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into ascending order for the projection engine.
	out := make([]core.TimeSeriesPoint, len(desc))
	for i, p := range desc {
		out[len(desc)-1-i] = p
	}
	return out, nil
}

// IncomeBySource sums income amounts per category for one month. The
// category of an income transaction names its source.
func (r *SQLiteRepository) IncomeBySource(ctx context.Context, period string) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, COALESCE(SUM(amount_cents), 0)
		 FROM transactions
		 WHERE kind = 'income' AND substr(tx_date, 1, 7) = ?
		 GROUP BY category
		 ORDER BY SUM(amount_cents) DESC`, period)
	if err != nil {
		return nil, fmt.Errorf("income by source: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var c core.CategoryAmount
		if err := rows.Scan(&c.Name, &c.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateRecurringIncome(ctx context.Context, ri core.RecurringIncome) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_incomes (source, amount_cents, frequency) VALUES (?, ?, ?)`,
		ri.Source, ri.Amount.Cents, string(ri.Frequency))
	if err != nil {
		return 0, fmt.Errorf("create recurring income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recurring income id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListRecurringIncomes(ctx context.Context) ([]core.RecurringIncome, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source, amount_cents, frequency FROM recurring_incomes ORDER BY amount_cents DESC`)
	if err != nil {
		return nil, fmt.Errorf("list recurring incomes: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringIncome
	for rows.Next() {
		var (
			ri   core.RecurringIncome
			freq string
		)
		if err := rows.Scan(&ri.ID, &ri.Source, &ri.Amount.Cents, &freq); err != nil {
			return nil, fmt.Errorf("scan recurring income: %w", err)
		}
		ri.Frequency = core.Frequency(freq)
		out = append(out, ri)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteRecurringIncome(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recurring_incomes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete recurring income: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateDebt(ctx context.Context, d core.Debt) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO debts (name, balance_cents, annual_rate, min_payment_cents) VALUES (?, ?, ?, ?)`,
		d.Name, d.Balance.Cents, d.AnnualRate, d.MinPayment.Cents)
	if err != nil {
		return 0, fmt.Errorf("create debt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("debt id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListDebts(ctx context.Context) ([]core.Debt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, balance_cents, annual_rate, min_payment_cents FROM debts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	var out []core.Debt
	for rows.Next() {
		var d core.Debt
		if err := rows.Scan(&d.ID, &d.Name, &d.Balance.Cents, &d.AnnualRate, &d.MinPayment.Cents); err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteDebt(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM debts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateSubscription(ctx context.Context, s core.Subscription) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (name, cost_cents, frequency, usage_score, value_score)
		 VALUES (?, ?, ?, ?, ?)`,
		s.Name, s.Cost.Cents, string(s.Frequency), s.UsageScore, s.ValueScore)
	if err != nil {
		return 0, fmt.Errorf("create subscription: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("subscription id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, cost_cents, frequency, usage_score, value_score FROM subscriptions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []core.Subscription
	for rows.Next() {
		var (
			s     core.Subscription
			freq  string
			usage sql.NullInt64
			value sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Cost.Cents, &freq, &usage, &value); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		s.Frequency = core.Frequency(freq)
		if usage.Valid {
			v := int(usage.Int64)
			s.UsageScore = &v
		}
		if value.Valid {
			v := int(value.Int64)
			s.ValueScore = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteSubscription(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// SaveSnapshot persists a computed metric result for later export.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s MetricSnapshot) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO metric_snapshots (id, kind, period, payload) VALUES (?, ?, ?, ?)`,
		s.ID, s.Kind, s.Period, s.Payload)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Metric snapshot saved",
		"snapshot_id", s.ID,
		"kind", s.Kind,
		"period", s.Period)

	return nil
}

// ListUnexportedSnapshots returns snapshots pending export, oldest first.
func (r *SQLiteRepository) ListUnexportedSnapshots(ctx context.Context, limit int) ([]MetricSnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, period, payload, exported, created_at
		 FROM metric_snapshots
		 WHERE exported = 0
		 ORDER BY created_at
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported snapshots: %w", err)
	}
	defer rows.Close()

	var out []MetricSnapshot
	for rows.Next() {
		var s MetricSnapshot
		if err := rows.Scan(&s.ID, &s.Kind, &s.Period, &s.Payload, &s.Exported, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkSnapshotExported(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE metric_snapshots SET exported = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark snapshot exported: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot of a kind, or
// core.ErrNotFound when none has been computed yet.
func (r *SQLiteRepository) LatestSnapshot(ctx context.Context, kind string) (MetricSnapshot, error) {
	var s MetricSnapshot
	err := r.db.QueryRowContext(ctx,
		`SELECT id, kind, period, payload, exported, created_at
		 FROM metric_snapshots
		 WHERE kind = ?
		 ORDER BY created_at DESC
		 LIMIT 1`, kind).Scan(&s.ID, &s.Kind, &s.Period, &s.Payload, &s.Exported, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return MetricSnapshot{}, core.ErrNotFound
	}
	if err != nil {
		return MetricSnapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	return s, nil
}
