/*
Package sqlite provides a SQLite-backed implementation of estimate.TxStore.

PURPOSE:
  Persists estimates, their payments and the schedule computed from them.
  In production the same patterns apply to PostgreSQL with minor SQL dialect
  differences.

INTERFACES IMPLEMENTED:
  estimate.Store:   Estimate, payment and schedule persistence
  estimate.TxStore: WithTx for atomic "write, recalculate, persist"

KEY TABLES:
  estimates:          One row per taxpayer and financial year, plus the
                      interest snapshot of the last recalculation
  payments:           Advance tax payments (quarter 0 = detect by date)
  schedules:          Four rows per estimate, replaced on every recalculation
  recalculation_runs: Audit trail of scheduler passes

MONEY AND DATES:
  Decimals are stored as TEXT so nothing is lost to float conversion.
  Calendar dates are TEXT "YYYY-MM-DD"; timestamps are RFC3339.

CONSTRAINTS:
  - UNIQUE(taxpayer_id, financial_year) -> advancetax.ErrDuplicateEstimate
  - payments/schedules reference estimates ON DELETE CASCADE; a payment for a
    missing estimate -> advancetax.ErrEstimateNotFound

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/advtax.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := estimate.NewService(store, engine, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - estimate/store.go: Interface definitions
  - estimate/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/advance-tax/advancetax"
	"github.com/warp/advance-tax/estimate"
)

// Store implements estimate.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS estimates (
		id TEXT PRIMARY KEY,
		taxpayer_id TEXT NOT NULL,
		financial_year TEXT NOT NULL,
		net_tax_liability TEXT NOT NULL,
		assessment_date TEXT,
		advance_tax_required INTEGER NOT NULL DEFAULT 0,
		total_paid TEXT NOT NULL DEFAULT '0',
		default_interest TEXT NOT NULL DEFAULT '0',
		deferment_interest TEXT NOT NULL DEFAULT '0',
		total_interest TEXT NOT NULL DEFAULT '0',
		calculated_as_of TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (taxpayer_id, financial_year)
	);

	CREATE INDEX IF NOT EXISTS idx_estimates_fy
		ON estimates(financial_year);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		estimate_id TEXT NOT NULL REFERENCES estimates(id) ON DELETE CASCADE,
		quarter INTEGER NOT NULL DEFAULT 0,
		amount TEXT NOT NULL,
		paid_on TEXT NOT NULL,
		reference TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: every recalculation loads all payments of one estimate
	CREATE INDEX IF NOT EXISTS idx_payments_estimate_date
		ON payments(estimate_id, paid_on);

	CREATE TABLE IF NOT EXISTS schedules (
		estimate_id TEXT NOT NULL REFERENCES estimates(id) ON DELETE CASCADE,
		quarter INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		cumulative_percent INTEGER NOT NULL,
		cumulative_amount_due TEXT NOT NULL,
		quarter_amount_due TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		cumulative_paid TEXT NOT NULL,
		shortfall TEXT NOT NULL,
		status TEXT NOT NULL,
		deferred_interest TEXT NOT NULL,
		PRIMARY KEY (estimate_id, quarter)
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_status
		ON schedules(status);

	CREATE TABLE IF NOT EXISTS recalculation_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		status_changes INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		interest_before TEXT NOT NULL DEFAULT '0',
		interest_after TEXT NOT NULL DEFAULT '0',
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_recalculation_runs_started
		ON recalculation_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// QUERIES - shared by Store and txStore
// =============================================================================

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements estimate.Store against a querier without locking.
type queries struct {
	q querier
}

const estimateColumns = `id, taxpayer_id, financial_year, net_tax_liability, assessment_date,
	advance_tax_required, total_paid, default_interest, deferment_interest, total_interest,
	calculated_as_of, created_at, updated_at`

func (qs queries) SaveEstimate(ctx context.Context, e estimate.Estimate) error {
	query := `
		INSERT INTO estimates (` + estimateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			taxpayer_id = excluded.taxpayer_id,
			financial_year = excluded.financial_year,
			net_tax_liability = excluded.net_tax_liability,
			assessment_date = excluded.assessment_date,
			advance_tax_required = excluded.advance_tax_required,
			total_paid = excluded.total_paid,
			default_interest = excluded.default_interest,
			deferment_interest = excluded.deferment_interest,
			total_interest = excluded.total_interest,
			calculated_as_of = excluded.calculated_as_of,
			updated_at = excluded.updated_at
	`

	_, err := qs.q.ExecContext(ctx, query,
		e.ID,
		e.TaxpayerID,
		string(e.FinancialYear),
		e.NetTaxLiability.String(),
		nullDate(e.AssessmentDate),
		e.AdvanceTaxRequired,
		e.TotalPaid.String(),
		e.DefaultInterest.String(),
		e.DefermentInterest.String(),
		e.TotalInterest.String(),
		nullString(dateString(e.CalculatedAsOf)),
		e.CreatedAt.UTC().Format(time.RFC3339),
		e.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintError(err, sqlite3.ErrConstraintUnique) {
			return fmt.Errorf("%s %s: %w", e.TaxpayerID, e.FinancialYear, advancetax.ErrDuplicateEstimate)
		}
		return fmt.Errorf("failed to save estimate: %w", err)
	}
	return nil
}

func (qs queries) GetEstimate(ctx context.Context, id string) (*estimate.Estimate, error) {
	row := qs.q.QueryRowContext(ctx, "SELECT "+estimateColumns+" FROM estimates WHERE id = ?", id)
	e, err := scanEstimate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("estimate %s: %w", id, advancetax.ErrEstimateNotFound)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (qs queries) FindEstimate(ctx context.Context, taxpayerID string, fy advancetax.FinancialYear) (*estimate.Estimate, error) {
	row := qs.q.QueryRowContext(ctx,
		"SELECT "+estimateColumns+" FROM estimates WHERE taxpayer_id = ? AND financial_year = ?",
		taxpayerID, string(fy),
	)
	e, err := scanEstimate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (qs queries) ListEstimates(ctx context.Context) ([]estimate.Estimate, error) {
	rows, err := qs.q.QueryContext(ctx,
		"SELECT "+estimateColumns+" FROM estimates ORDER BY financial_year, taxpayer_id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []estimate.Estimate
	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (qs queries) DeleteEstimate(ctx context.Context, id string) error {
	res, err := qs.q.ExecContext(ctx, "DELETE FROM estimates WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("estimate %s: %w", id, advancetax.ErrEstimateNotFound)
	}
	return nil
}

const paymentColumns = `id, estimate_id, quarter, amount, paid_on, reference, created_at`

func (qs queries) SavePayment(ctx context.Context, p estimate.PaymentRecord) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			quarter = excluded.quarter,
			amount = excluded.amount,
			paid_on = excluded.paid_on,
			reference = excluded.reference
	`

	_, err := qs.q.ExecContext(ctx, query,
		p.ID,
		p.EstimateID,
		int(p.Quarter),
		p.Amount.String(),
		p.PaidOn.String(),
		nullString(p.Reference),
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isConstraintError(err, sqlite3.ErrConstraintForeignKey) {
			return fmt.Errorf("estimate %s: %w", p.EstimateID, advancetax.ErrEstimateNotFound)
		}
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

func (qs queries) GetPayment(ctx context.Context, id string) (*estimate.PaymentRecord, error) {
	row := qs.q.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = ?", id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", id, advancetax.ErrPaymentNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (qs queries) ListPayments(ctx context.Context, estimateID string) ([]estimate.PaymentRecord, error) {
	rows, err := qs.q.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE estimate_id = ? ORDER BY paid_on, created_at, id",
		estimateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []estimate.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (qs queries) DeletePayment(ctx context.Context, id string) error {
	res, err := qs.q.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("payment %s: %w", id, advancetax.ErrPaymentNotFound)
	}
	return nil
}

func (qs queries) SaveSchedule(ctx context.Context, estimateID string, rows []estimate.ScheduleRecord) error {
	if _, err := qs.q.ExecContext(ctx, "DELETE FROM schedules WHERE estimate_id = ?", estimateID); err != nil {
		return err
	}

	query := `
		INSERT INTO schedules (estimate_id, quarter, due_date, cumulative_percent,
			cumulative_amount_due, quarter_amount_due, amount_paid, cumulative_paid,
			shortfall, status, deferred_interest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, r := range rows {
		_, err := qs.q.ExecContext(ctx, query,
			estimateID,
			int(r.Quarter),
			r.DueDate.String(),
			r.CumulativePercent,
			r.CumulativeAmountDue.String(),
			r.QuarterAmountDue.String(),
			r.AmountPaid.String(),
			r.CumulativePaid.String(),
			r.Shortfall.String(),
			string(r.Status),
			r.DeferredInterest.String(),
		)
		if err != nil {
			if isConstraintError(err, sqlite3.ErrConstraintForeignKey) {
				return fmt.Errorf("estimate %s: %w", estimateID, advancetax.ErrEstimateNotFound)
			}
			return fmt.Errorf("failed to save schedule: %w", err)
		}
	}
	return nil
}

func (qs queries) GetSchedule(ctx context.Context, estimateID string) ([]estimate.ScheduleRecord, error) {
	rows, err := qs.q.QueryContext(ctx, `
		SELECT estimate_id, quarter, due_date, cumulative_percent, cumulative_amount_due,
			quarter_amount_due, amount_paid, cumulative_paid, shortfall, status, deferred_interest
		FROM schedules
		WHERE estimate_id = ?
		ORDER BY quarter
	`, estimateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []estimate.ScheduleRecord
	for rows.Next() {
		var r estimate.ScheduleRecord
		var quarter int
		var dueDate, cumDue, qDue, paid, cumPaid, shortfall, status, deferred string
		if err := rows.Scan(
			&r.EstimateID, &quarter, &dueDate, &r.CumulativePercent, &cumDue,
			&qDue, &paid, &cumPaid, &shortfall, &status, &deferred,
		); err != nil {
			return nil, err
		}
		r.Quarter = advancetax.Quarter(quarter)
		r.DueDate = parseDate(dueDate)
		r.CumulativeAmountDue = parseDecimal(cumDue)
		r.QuarterAmountDue = parseDecimal(qDue)
		r.AmountPaid = parseDecimal(paid)
		r.CumulativePaid = parseDecimal(cumPaid)
		r.Shortfall = parseDecimal(shortfall)
		r.Status = advancetax.Status(status)
		r.DeferredInterest = parseDecimal(deferred)
		result = append(result, r)
	}
	return result, rows.Err()
}

// =============================================================================
// ESTIMATE STORE (estimate.Store interface)
// =============================================================================

func (s *Store) SaveEstimate(ctx context.Context, e estimate.Estimate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.SaveEstimate(ctx, e)
}

// GetEstimate retrieves an estimate by ID.
func (s *Store) GetEstimate(ctx context.Context, id string) (*estimate.Estimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.GetEstimate(ctx, id)
}

func (s *Store) FindEstimate(ctx context.Context, taxpayerID string, fy advancetax.FinancialYear) (*estimate.Estimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.FindEstimate(ctx, taxpayerID, fy)
}

// ListEstimates returns all estimates.
func (s *Store) ListEstimates(ctx context.Context) ([]estimate.Estimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.ListEstimates(ctx)
}

func (s *Store) DeleteEstimate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.DeleteEstimate(ctx, id)
}

func (s *Store) SavePayment(ctx context.Context, p estimate.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.SavePayment(ctx, p)
}

func (s *Store) GetPayment(ctx context.Context, id string) (*estimate.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.GetPayment(ctx, id)
}

func (s *Store) ListPayments(ctx context.Context, estimateID string) ([]estimate.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.ListPayments(ctx, estimateID)
}

func (s *Store) DeletePayment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.DeletePayment(ctx, id)
}

// SaveSchedule replaces the schedule atomically.
func (s *Store) SaveSchedule(ctx context.Context, estimateID string, rows []estimate.ScheduleRecord) error {
	return s.WithTx(ctx, func(tx estimate.Store) error {
		return tx.SaveSchedule(ctx, estimateID, rows)
	})
}

func (s *Store) GetSchedule(ctx context.Context, estimateID string) ([]estimate.ScheduleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.GetSchedule(ctx, estimateID)
}

// =============================================================================
// TRANSACTIONAL STORE (estimate.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store estimate.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(queries{sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// =============================================================================
// RECALCULATION RUNS
// =============================================================================

// RecalculationRun records one scheduler pass over all estimates.
type RecalculationRun struct {
	ID             string
	Status         string // running, completed, failed
	Processed      int
	StatusChanges  int
	Failed         int
	InterestBefore decimal.Decimal
	InterestAfter  decimal.Decimal
	Error          string
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// SaveRecalculationRun inserts or updates a run.
func (s *Store) SaveRecalculationRun(ctx context.Context, r RecalculationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO recalculation_runs (id, status, processed, status_changes, failed,
			interest_before, interest_after, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			processed = excluded.processed,
			status_changes = excluded.status_changes,
			failed = excluded.failed,
			interest_before = excluded.interest_before,
			interest_after = excluded.interest_after,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	var completedAt *string
	if r.CompletedAt != nil {
		s := r.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &s
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Status, r.Processed, r.StatusChanges, r.Failed,
		r.InterestBefore.String(), r.InterestAfter.String(),
		nullString(r.Error),
		r.StartedAt.UTC().Format(time.RFC3339), completedAt,
	)
	return err
}

// ListRecalculationRuns returns the most recent runs first.
func (s *Store) ListRecalculationRuns(ctx context.Context, limit int) ([]RecalculationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, processed, status_changes, failed, interest_before,
			interest_after, error, started_at, completed_at
		FROM recalculation_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RecalculationRun
	for rows.Next() {
		var r RecalculationRun
		var before, after, startedAt string
		var errText, completedAt sql.NullString
		if err := rows.Scan(
			&r.ID, &r.Status, &r.Processed, &r.StatusChanges, &r.Failed,
			&before, &after, &errText, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}
		r.InterestBefore = parseDecimal(before)
		r.InterestAfter = parseDecimal(after)
		r.Error = errText.String
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"schedules", "payments", "estimates", "recalculation_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEstimate(row scanner) (*estimate.Estimate, error) {
	var e estimate.Estimate
	var fy, liability, totalPaid, defaultInterest, defermentInterest, totalInterest string
	var createdAt, updatedAt string
	var assessment, calculatedAsOf sql.NullString

	err := row.Scan(
		&e.ID, &e.TaxpayerID, &fy, &liability, &assessment,
		&e.AdvanceTaxRequired, &totalPaid, &defaultInterest, &defermentInterest, &totalInterest,
		&calculatedAsOf, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.FinancialYear = advancetax.FinancialYear(fy)
	e.NetTaxLiability = parseDecimal(liability)
	if assessment.Valid {
		d := parseDate(assessment.String)
		e.AssessmentDate = &d
	}
	e.TotalPaid = parseDecimal(totalPaid)
	e.DefaultInterest = parseDecimal(defaultInterest)
	e.DefermentInterest = parseDecimal(defermentInterest)
	e.TotalInterest = parseDecimal(totalInterest)
	if calculatedAsOf.Valid {
		e.CalculatedAsOf = parseDate(calculatedAsOf.String)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &e, nil
}

func scanPayment(row scanner) (*estimate.PaymentRecord, error) {
	var p estimate.PaymentRecord
	var quarter int
	var amount, paidOn, createdAt string
	var reference sql.NullString

	if err := row.Scan(&p.ID, &p.EstimateID, &quarter, &amount, &paidOn, &reference, &createdAt); err != nil {
		return nil, err
	}

	p.Quarter = advancetax.Quarter(quarter)
	p.Amount = parseDecimal(amount)
	p.PaidOn = parseDate(paidOn)
	p.Reference = reference.String
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &p, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *advancetax.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return nullString(dateString(*d))
}

func dateString(d advancetax.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseDate(s string) advancetax.Date {
	d, _ := advancetax.ParseDate(s)
	return d
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isConstraintError(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == code
}

// Compile-time checks
var (
	_ estimate.TxStore = (*Store)(nil)
	_ estimate.Store   = queries{}
)
