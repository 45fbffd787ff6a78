/*
store.go - Persistence interface for estimates, payments and schedules

PURPOSE:
  Defines the boundary between the estimate service and the database.
  Unlike an append-only ledger, payments here can be corrected or removed;
  what stays immutable is the rule that schedules and interest are never
  written except as the output of a full recalculation.

KEY INTERFACES:
  Store:   CRUD for estimates and payments, replace-all for schedules
  TxStore: Store + WithTx for atomic "write payment, recalculate, persist"

NOT FOUND:
  Get* methods return advancetax.ErrEstimateNotFound / ErrPaymentNotFound
  (wrapped) rather than nil records.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - estimate/store/memory.go: In-memory for testing

SEE ALSO:
  - service.go: The only writer of schedules
*/
package estimate

import (
	"context"

	"github.com/warp/advance-tax/advancetax"
)

// Store handles persistence of estimate records.
type Store interface {
	// SaveEstimate inserts or replaces an estimate. Returns
	// advancetax.ErrDuplicateEstimate if another estimate already covers the
	// same taxpayer and financial year.
	SaveEstimate(ctx context.Context, e Estimate) error

	GetEstimate(ctx context.Context, id string) (*Estimate, error)

	// FindEstimate looks up by taxpayer and year. Returns (nil, nil) if absent.
	FindEstimate(ctx context.Context, taxpayerID string, fy advancetax.FinancialYear) (*Estimate, error)

	ListEstimates(ctx context.Context) ([]Estimate, error)

	// DeleteEstimate removes the estimate with its payments and schedule.
	DeleteEstimate(ctx context.Context, id string) error

	SavePayment(ctx context.Context, p PaymentRecord) error
	GetPayment(ctx context.Context, id string) (*PaymentRecord, error)

	// ListPayments returns payments ordered by PaidOn, then creation.
	ListPayments(ctx context.Context, estimateID string) ([]PaymentRecord, error)
	DeletePayment(ctx context.Context, id string) error

	// SaveSchedule replaces every schedule row of the estimate.
	SaveSchedule(ctx context.Context, estimateID string, rows []ScheduleRecord) error

	// GetSchedule returns rows in quarter order (empty before first recalculation).
	GetSchedule(ctx context.Context, estimateID string) ([]ScheduleRecord, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
