package estimate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/advance-tax/advancetax"
	"github.com/warp/advance-tax/estimate"
	"github.com/warp/advance-tax/estimate/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(y int, m time.Month, d int) advancetax.Date {
	return advancetax.NewDate(y, m, d)
}

func units(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// settableClock lets a test move "today" between calls.
type settableClock struct {
	mu    sync.Mutex
	today advancetax.Date
}

func (c *settableClock) Now() advancetax.Date {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.today
}

func (c *settableClock) Set(d advancetax.Date) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.today = d
}

func newTestService(t *testing.T, today advancetax.Date) (*estimate.Service, *settableClock, *store.TxMemory) {
	t.Helper()
	clock := &settableClock{today: today}
	mem := store.NewTxMemory()
	svc := estimate.NewService(mem, advancetax.NewEngine(clock.Now), zerolog.Nop())
	return svc, clock, mem
}

func createEstimate(t *testing.T, svc *estimate.Service, liability int64) *estimate.Estimate {
	t.Helper()
	e, err := svc.CreateEstimate(context.Background(), estimate.NewEstimate{
		TaxpayerID:      "ABCDE1234F",
		FinancialYear:   "2024-25",
		NetTaxLiability: units(liability),
	})
	require.NoError(t, err)
	return e
}

func statuses(rows []estimate.ScheduleRecord) []advancetax.Status {
	out := make([]advancetax.Status, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Status)
	}
	return out
}

// =============================================================================
// ESTIMATES
// =============================================================================

func TestCreateEstimate_PersistsScheduleAndInterest(t *testing.T) {
	// GIVEN: Today is 2024-10-01, no payments yet
	svc, _, _ := newTestService(t, day(2024, time.October, 1))
	ctx := context.Background()

	// WHEN: Creating an estimate with liability 100000
	e := createEstimate(t, svc, 100000)

	// THEN: Q1 and Q2 are overdue, Q3 and Q4 pending, deferred interest accrues
	assert.NotEmpty(t, e.ID)
	assert.True(t, e.AdvanceTaxRequired)
	assert.Equal(t, "2024-10-01", e.CalculatedAsOf.String())

	rows, err := svc.Schedule(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []advancetax.Status{
		advancetax.StatusOverdue, advancetax.StatusOverdue,
		advancetax.StatusPending, advancetax.StatusPending,
	}, statuses(rows))

	// Deferment: 15000*3% + 45000*3% + 75000*3% + 100000*1% = 450+1350+2250+1000
	assert.Equal(t, "5050", e.DefermentInterest.String())
	// Default: unpaid, assessed 2024-10-01 -> 183 days -> 7 months -> 7000
	assert.Equal(t, "7000", e.DefaultInterest.String())
	assert.Equal(t, "12050", e.TotalInterest.String())
}

func TestCreateEstimate_Validation(t *testing.T) {
	svc, _, _ := newTestService(t, day(2024, time.October, 1))
	ctx := context.Background()

	tests := []struct {
		name   string
		in     estimate.NewEstimate
		target error
	}{
		{"bad financial year", estimate.NewEstimate{TaxpayerID: "T1", FinancialYear: "2024-26", NetTaxLiability: units(1)}, advancetax.ErrInvalidFinancialYear},
		{"negative liability", estimate.NewEstimate{TaxpayerID: "T1", FinancialYear: "2024-25", NetTaxLiability: units(-1)}, advancetax.ErrInvalidAmount},
		{"missing taxpayer", estimate.NewEstimate{TaxpayerID: "  ", FinancialYear: "2024-25", NetTaxLiability: units(1)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEstimate(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, advancetax.IsClientError(err))
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}

	list, err := svc.ListEstimates(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateEstimate_DuplicateYear(t *testing.T) {
	// GIVEN: An estimate for ABCDE1234F in 2024-25
	svc, _, _ := newTestService(t, day(2024, time.October, 1))
	createEstimate(t, svc, 100000)

	// WHEN: Creating another for the same taxpayer and year
	_, err := svc.CreateEstimate(context.Background(), estimate.NewEstimate{
		TaxpayerID:      "ABCDE1234F",
		FinancialYear:   "2024-25",
		NetTaxLiability: units(50000),
	})

	// THEN: Conflict, and the first estimate is untouched
	require.Error(t, err)
	assert.True(t, advancetax.IsConflict(err))

	list, err := svc.ListEstimates(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "100000", list[0].NetTaxLiability.String())
}

func TestUpdateLiability_Recalculates(t *testing.T) {
	// GIVEN: Liability 100000 with 15000 paid on time for Q1, today 2024-10-01
	svc, _, _ := newTestService(t, day(2024, time.October, 1))
	ctx := context.Background()
	e := createEstimate(t, svc, 100000)
	_, err := svc.AddPayment(ctx, e.ID, estimate.NewPayment{Amount: units(15000), PaidOn: day(2024, time.June, 10)})
	require.NoError(t, err)

	// WHEN: Liability drops to 20000
	updated, err := svc.UpdateLiability(ctx, e.ID, units(20000))
	require.NoError(t, err)

	// THEN: Q1 and Q2 are both covered by the 15000 payment (due 3000 and 9000)
	rows, err := svc.Schedule(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, advancetax.StatusPaid, rows[0].Status)
	assert.Equal(t, advancetax.StatusPaid, rows[1].Status)
	assert.Equal(t, "20000", updated.NetTaxLiability.String())
	assert.Equal(t, "15000", updated.TotalPaid.String())
}

func TestUpdateEstimate_AssessmentDate(t *testing.T) {
	svc, _, _ := newTestService(t, day(2024, time.October, 1))
	ctx := context.Background()
	e := createEstimate(t, svc, 100000)

	// WHEN: Assessment pinned to 2024-05-15 (44 days -> 2 months)
	assessed := day(2024, time.May, 15)
	updated, err := svc.UpdateEstimate(ctx, e.ID, estimate.EstimateUpdate{AssessmentDate: &assessed})
	require.NoError(t, err)
	assert.Equal(t, "2000", updated.DefaultInterest.String())

	// WHEN: Cleared again, today (7 months) is used
	cleared, err := svc.UpdateEstimate(ctx, e.ID, estimate.EstimateUpdate{ClearAssessmentDate: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.AssessmentDate)
	assert.Equal(t, "7000", cleared.DefaultInterest.String())
}

func TestUpdateEstimate_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t, day(2024, time.October, 1))
	_, err := svc.UpdateLiability(context.Background(), "missing", units(1))
	assert.True(t, advancetax.IsNotFound(err))
}

func TestDeleteEstimate_RemovesPayments(t *testing.T) {
	svc, _, mem := newTestService(t, day(2024, time.October, 1))
	ctx := context.Background()
	e := createEstimate(t, svc, 100000)
	p, err := svc.AddPayment(ctx, e.ID, estimate.NewPayment{Amount: units(15000), PaidOn: day(2024, time.June, 10)})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEstimate(ctx, e.ID))

	_, err = svc.GetEstimate(ctx, e.ID)
	assert.ErrorIs(t, err, advancetax.ErrEstimateNotFound)
	_, err = mem.GetPayment(ctx, p.ID)
	assert.ErrorIs(t, err, advancetax.ErrPaymentNotFound)

	err = svc.DeleteEstimate(ctx, e.ID)
	assert.True(t, advancetax.IsNotFound(err))
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestAddPayment_MovesStatuses(t *testing.T) {
	// GIVEN: Liability 100000, today 2024-10-01
	svc, _, _ := newTestService(t, day(2024, time.October, 1))
	ctx := context.Background()
	e := createEstimate(t, svc, 100000)

	// WHEN: 15000 for Q1 and 20000 for Q2
	_, err := svc.AddPayment(ctx, e.ID, estimate.NewPayment{Quarter: advancetax.Q1, Amount: units(15000), PaidOn: day(2024, time.June, 10), Reference: " CHL-1 "})
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, e.ID, estimate.NewPayment{Amount: units(20000), PaidOn: day(2024, time.September, 10)})
	require.NoError(t, err)

	// THEN: Q1 PAID, Q2 PARTIAL with 10000 shortfall and 300 deferred interest
	rows, err := svc.Schedule(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, advancetax.StatusPaid, rows[0].Status)
	assert.Equal(t, advancetax.StatusPartial, rows[1].Status)
	assert.Equal(t, "10000", rows[1].Shortfall.String())
	assert.Equal(t, "300", rows[1].DeferredInterest.String())

	payments, err := svc.ListPayments(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "CHL-1", payments[0].Reference)
	assert.Equal(t, advancetax.Quarter(0), payments[1].Quarter)
}

func TestAddPayment_Validation(t *testing.T) {
	svc, _, _ := newTestService(t, day(2024, time.October, 1))
	ctx := context.Background()
	e := createEstimate(t, svc, 100000)

	tests := []struct {
		name   string
		in     estimate.NewPayment
		target error
	}{
		{"zero amount", estimate.NewPayment{Amount: units(0), PaidOn: day(2024, time.June, 1)}, advancetax.ErrInvalidAmount},
		{"negative amount", estimate.NewPayment{Amount: units(-5), PaidOn: day(2024, time.June, 1)}, advancetax.ErrInvalidAmount},
		{"quarter 5", estimate.NewPayment{Quarter: 5, Amount: units(5), PaidOn: day(2024, time.June, 1)}, advancetax.ErrInvalidQuarter},
		{"missing date", estimate.NewPayment{Amount: units(5)}, advancetax.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddPayment(ctx, e.ID, tt.in)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, advancetax.IsClientError(err))
		})
	}
}

func TestAddPayment_UnknownEstimate(t *testing.T) {
	svc, _, _ := newTestService(t, day(2024, time.October, 1))
	_, err := svc.AddPayment(context.Background(), "nope", estimate.NewPayment{Amount: units(1), PaidOn: day(2024, time.June, 1)})
	assert.ErrorIs(t, err, advancetax.ErrEstimateNotFound)
}

func TestUpdateAndDeletePayment_Recalculate(t *testing.T) {
	// GIVEN: One 15000 payment covering Q1
	svc, _, _ := newTestService(t, day(2024, time.October, 1))
	ctx := context.Background()
	e := createEstimate(t, svc, 100000)
	p, err := svc.AddPayment(ctx, e.ID, estimate.NewPayment{Amount: units(15000), PaidOn: day(2024, time.June, 10)})
	require.NoError(t, err)

	// WHEN: The payment is corrected to 10000
	_, err = svc.UpdatePayment(ctx, p.ID, estimate.NewPayment{Amount: units(10000), PaidOn: day(2024, time.June, 10)})
	require.NoError(t, err)

	// THEN: Q1 becomes PARTIAL
	rows, err := svc.Schedule(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, advancetax.StatusPartial, rows[0].Status)
	assert.Equal(t, "150", rows[0].DeferredInterest.String())

	// WHEN: The payment is deleted
	require.NoError(t, svc.DeletePayment(ctx, p.ID))

	// THEN: Q1 is OVERDUE again and nothing is paid
	rows, err = svc.Schedule(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, advancetax.StatusOverdue, rows[0].Status)

	got, err := svc.GetEstimate(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalPaid.IsZero())

	err = svc.DeletePayment(ctx, p.ID)
	assert.ErrorIs(t, err, advancetax.ErrPaymentNotFound)
}

// =============================================================================
// RECALCULATION
// =============================================================================

func TestAnalysis_DoesNotPersist(t *testing.T) {
	svc, clock, _ := newTestService(t, day(2024, time.June, 1))
	ctx := context.Background()
	e := createEstimate(t, svc, 100000)

	// WHEN: Time moves past Q1 and an analysis is requested
	clock.Set(day(2024, time.July, 1))
	result, err := svc.Analysis(ctx, e.ID)
	require.NoError(t, err)

	// THEN: The analysis sees Q1 overdue, the stored schedule does not
	assert.Equal(t, advancetax.StatusOverdue, result.Entry(advancetax.Q1).Status)
	rows, err := svc.Schedule(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, advancetax.StatusPending, rows[0].Status)
}

func TestRecalculateAll_AdvancesStatuses(t *testing.T) {
	// GIVEN: Two estimates created on 2024-06-01, nothing overdue yet
	svc, clock, _ := newTestService(t, day(2024, time.June, 1))
	ctx := context.Background()
	createEstimate(t, svc, 100000)
	_, err := svc.CreateEstimate(ctx, estimate.NewEstimate{
		TaxpayerID: "ZZZZZ9999Z", FinancialYear: "2024-25", NetTaxLiability: units(40000),
	})
	require.NoError(t, err)

	// WHEN: The clock reaches 2024-09-20 and every estimate is recalculated
	clock.Set(day(2024, time.September, 20))
	summary, err := svc.RecalculateAll(ctx)
	require.NoError(t, err)

	// THEN: Q1 and Q2 flip to OVERDUE for both estimates
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 4, summary.StatusChanges)
	assert.True(t, summary.InterestAfter.GreaterThan(summary.InterestBefore))

	// WHEN: Run again on the same day
	summary, err = svc.RecalculateAll(ctx)
	require.NoError(t, err)

	// THEN: Nothing moves
	assert.Equal(t, 0, summary.StatusChanges)
	assert.True(t, summary.InterestAfter.Equal(summary.InterestBefore))
}

func TestRecalculateAll_CancelledContext(t *testing.T) {
	svc, _, _ := newTestService(t, day(2024, time.June, 1))
	createEstimate(t, svc, 100000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RecalculateAll(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRecalculate_UsesCurrentDay(t *testing.T) {
	svc, clock, _ := newTestService(t, day(2024, time.June, 1))
	ctx := context.Background()
	e := createEstimate(t, svc, 100000)

	clock.Set(day(2025, time.April, 1))
	updated, err := svc.Recalculate(ctx, e.ID)
	require.NoError(t, err)

	assert.Equal(t, "2025-04-01", updated.CalculatedAsOf.String())
	rows, err := svc.Schedule(ctx, e.ID)
	require.NoError(t, err)
	for _, r := range rows {
		assert.Equal(t, advancetax.StatusOverdue, r.Status, "quarter %s", r.Quarter)
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestTxMemory_RollsBackOnError(t *testing.T) {
	mem := store.NewTxMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	err := mem.WithTx(ctx, func(tx estimate.Store) error {
		require.NoError(t, tx.SaveEstimate(ctx, estimate.Estimate{ID: "e1", TaxpayerID: "T", FinancialYear: "2024-25"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = mem.GetEstimate(ctx, "e1")
	assert.ErrorIs(t, err, advancetax.ErrEstimateNotFound)
}
