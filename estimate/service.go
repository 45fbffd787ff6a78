/*
service.go - Estimate lifecycle and recalculation

PURPOSE:
  Coordinates the store and the engine. Every write follows the same shape:

    WithTx:
      1. validate input
      2. write the estimate or payment
      3. reload payments, run the engine as of Today
      4. persist the schedule rows and interest snapshot

  The schedule is never patched. Changing one payment can move statuses and
  interest in every later quarter, so the whole year is recomputed.

STALENESS:
  Statuses depend on "today". A stored schedule is correct as of
  Estimate.CalculatedAsOf; RecalculateAll moves every estimate forward and is
  driven by the API's RecalculationScheduler.

SEE ALSO:
  - advancetax/analysis.go: Engine.Analyze
  - store.go: Store/TxStore
*/
package estimate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/advance-tax/advancetax"
)

// Service owns estimate and payment writes.
type Service struct {
	store  TxStore
	engine *advancetax.Engine
	log    zerolog.Logger
	newID  func() string
	now    func() time.Time
}

// NewService creates a service. A nil engine uses the system clock.
func NewService(store TxStore, engine *advancetax.Engine, log zerolog.Logger) *Service {
	if engine == nil {
		engine = advancetax.NewEngine(advancetax.SystemClock)
	}
	return &Service{
		store:  store,
		engine: engine,
		log:    log.With().Str("component", "estimate").Logger(),
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Engine exposes the engine the service analyses with.
func (s *Service) Engine() *advancetax.Engine { return s.engine }

// =============================================================================
// ESTIMATES
// =============================================================================

// CreateEstimate validates and stores a new estimate, then computes its schedule.
func (s *Service) CreateEstimate(ctx context.Context, in NewEstimate) (*Estimate, error) {
	taxpayer := strings.TrimSpace(in.TaxpayerID)
	if taxpayer == "" {
		return nil, &advancetax.ValidationError{
			Field:  "taxpayer_id",
			Reason: "is required",
		}
	}
	fy, err := advancetax.ParseFinancialYear(in.FinancialYear)
	if err != nil {
		return nil, err
	}
	if err := validateLiability(in.NetTaxLiability); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	e := Estimate{
		ID:              s.newID(),
		TaxpayerID:      taxpayer,
		FinancialYear:   fy,
		NetTaxLiability: in.NetTaxLiability,
		AssessmentDate:  in.AssessmentDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var created *Estimate
	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SaveEstimate(ctx, e); err != nil {
			return fmt.Errorf("save estimate: %w", err)
		}
		updated, _, err := s.recalculate(ctx, tx, e.ID)
		created = updated
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("estimate_id", created.ID).
		Str("taxpayer_id", created.TaxpayerID).
		Str("fy", string(created.FinancialYear)).
		Str("liability", created.NetTaxLiability.String()).
		Msg("estimate created")
	return created, nil
}

// UpdateEstimate changes the liability or assessment date and recalculates.
func (s *Service) UpdateEstimate(ctx context.Context, id string, upd EstimateUpdate) (*Estimate, error) {
	if upd.NetTaxLiability != nil {
		if err := validateLiability(*upd.NetTaxLiability); err != nil {
			return nil, err
		}
	}

	var result *Estimate
	err := s.store.WithTx(ctx, func(tx Store) error {
		e, err := tx.GetEstimate(ctx, id)
		if err != nil {
			return err
		}
		if upd.NetTaxLiability != nil {
			e.NetTaxLiability = *upd.NetTaxLiability
		}
		switch {
		case upd.ClearAssessmentDate:
			e.AssessmentDate = nil
		case upd.AssessmentDate != nil:
			d := *upd.AssessmentDate
			e.AssessmentDate = &d
		}
		e.UpdatedAt = s.now().UTC()
		if err := tx.SaveEstimate(ctx, *e); err != nil {
			return fmt.Errorf("save estimate: %w", err)
		}
		result, _, err = s.recalculate(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateLiability is UpdateEstimate for the common case.
func (s *Service) UpdateLiability(ctx context.Context, id string, liability decimal.Decimal) (*Estimate, error) {
	return s.UpdateEstimate(ctx, id, EstimateUpdate{NetTaxLiability: &liability})
}

func (s *Service) GetEstimate(ctx context.Context, id string) (*Estimate, error) {
	return s.store.GetEstimate(ctx, id)
}

func (s *Service) ListEstimates(ctx context.Context) ([]Estimate, error) {
	return s.store.ListEstimates(ctx)
}

func (s *Service) DeleteEstimate(ctx context.Context, id string) error {
	if err := s.store.DeleteEstimate(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("estimate_id", id).Msg("estimate deleted")
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// AddPayment records a payment against an estimate and recalculates it.
func (s *Service) AddPayment(ctx context.Context, estimateID string, in NewPayment) (*PaymentRecord, error) {
	if err := validatePayment(in); err != nil {
		return nil, err
	}

	p := PaymentRecord{
		ID:         s.newID(),
		EstimateID: estimateID,
		Quarter:    in.Quarter,
		Amount:     in.Amount,
		PaidOn:     in.PaidOn,
		Reference:  strings.TrimSpace(in.Reference),
		CreatedAt:  s.now().UTC(),
	}

	err := s.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.GetEstimate(ctx, estimateID); err != nil {
			return err
		}
		if err := tx.SavePayment(ctx, p); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}
		_, _, err := s.recalculate(ctx, tx, estimateID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("estimate_id", estimateID).
		Str("payment_id", p.ID).
		Str("amount", p.Amount.String()).
		Str("paid_on", p.PaidOn.String()).
		Msg("payment recorded")
	return &p, nil
}

// UpdatePayment replaces a payment's quarter, amount, date and reference.
func (s *Service) UpdatePayment(ctx context.Context, paymentID string, in NewPayment) (*PaymentRecord, error) {
	if err := validatePayment(in); err != nil {
		return nil, err
	}

	var updated PaymentRecord
	err := s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		updated = *existing
		updated.Quarter = in.Quarter
		updated.Amount = in.Amount
		updated.PaidOn = in.PaidOn
		updated.Reference = strings.TrimSpace(in.Reference)
		if err := tx.SavePayment(ctx, updated); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}
		_, _, err = s.recalculate(ctx, tx, updated.EstimateID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeletePayment removes a payment and recalculates its estimate.
func (s *Service) DeletePayment(ctx context.Context, paymentID string) error {
	return s.store.WithTx(ctx, func(tx Store) error {
		p, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := tx.DeletePayment(ctx, paymentID); err != nil {
			return err
		}
		_, _, err = s.recalculate(ctx, tx, p.EstimateID)
		return err
	})
}

func (s *Service) ListPayments(ctx context.Context, estimateID string) ([]PaymentRecord, error) {
	if _, err := s.store.GetEstimate(ctx, estimateID); err != nil {
		return nil, err
	}
	return s.store.ListPayments(ctx, estimateID)
}

// =============================================================================
// SCHEDULE & ANALYSIS
// =============================================================================

// Schedule returns the stored schedule rows from the last recalculation.
func (s *Service) Schedule(ctx context.Context, estimateID string) ([]ScheduleRecord, error) {
	if _, err := s.store.GetEstimate(ctx, estimateID); err != nil {
		return nil, err
	}
	return s.store.GetSchedule(ctx, estimateID)
}

// Analysis runs the engine as of Today without persisting anything.
func (s *Service) Analysis(ctx context.Context, estimateID string) (*advancetax.AnalysisResult, error) {
	e, err := s.store.GetEstimate(ctx, estimateID)
	if err != nil {
		return nil, err
	}
	payments, err := s.store.ListPayments(ctx, estimateID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	result := s.engine.Analyze(e.NetTaxLiability, e.FinancialYear, toPayments(payments), e.AssessmentDate)
	return &result, nil
}

// Recalculate recomputes and persists one estimate as of Today.
func (s *Service) Recalculate(ctx context.Context, estimateID string) (*Estimate, error) {
	var result *Estimate
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		result, _, err = s.recalculate(ctx, tx, estimateID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecalculateAll recomputes every estimate. One failing estimate does not stop
// the pass; it is counted and logged.
func (s *Service) RecalculateAll(ctx context.Context) (RecalculationSummary, error) {
	summary := RecalculationSummary{
		InterestBefore: decimal.Zero,
		InterestAfter:  decimal.Zero,
	}

	estimates, err := s.store.ListEstimates(ctx)
	if err != nil {
		return summary, fmt.Errorf("list estimates: %w", err)
	}

	for _, e := range estimates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		var changes int
		var after *Estimate
		err := s.store.WithTx(ctx, func(tx Store) error {
			var err error
			after, changes, err = s.recalculate(ctx, tx, e.ID)
			return err
		})
		if err != nil {
			summary.Failed++
			s.log.Error().Err(err).Str("estimate_id", e.ID).Msg("recalculation failed")
			continue
		}

		summary.Processed++
		summary.StatusChanges += changes
		summary.InterestBefore = summary.InterestBefore.Add(e.TotalInterest)
		summary.InterestAfter = summary.InterestAfter.Add(after.TotalInterest)
	}

	s.log.Info().
		Int("processed", summary.Processed).
		Int("status_changes", summary.StatusChanges).
		Int("failed", summary.Failed).
		Str("interest_after", summary.InterestAfter.String()).
		Msg("recalculation pass complete")
	return summary, nil
}

// recalculate runs the engine for one estimate inside tx and stores the
// results. Returns the number of schedule rows whose status changed.
func (s *Service) recalculate(ctx context.Context, tx Store, estimateID string) (*Estimate, int, error) {
	e, err := tx.GetEstimate(ctx, estimateID)
	if err != nil {
		return nil, 0, err
	}
	payments, err := tx.ListPayments(ctx, estimateID)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	previous, err := tx.GetSchedule(ctx, estimateID)
	if err != nil {
		return nil, 0, fmt.Errorf("get schedule: %w", err)
	}

	result := s.engine.Analyze(e.NetTaxLiability, e.FinancialYear, toPayments(payments), e.AssessmentDate)
	rows := ScheduleRecordsFrom(estimateID, result)

	if err := tx.SaveSchedule(ctx, estimateID, rows); err != nil {
		return nil, 0, fmt.Errorf("save schedule: %w", err)
	}

	e.AdvanceTaxRequired = result.AdvanceTaxRequired
	e.TotalPaid = result.TotalPaid
	e.DefaultInterest = result.DefaultPenalty.InterestAmount
	e.DefermentInterest = result.DefermentPenalty.TotalInterestAmount
	e.TotalInterest = result.TotalInterest
	e.CalculatedAsOf = result.AsOf
	if err := tx.SaveEstimate(ctx, *e); err != nil {
		return nil, 0, fmt.Errorf("save estimate: %w", err)
	}

	return e, statusChanges(previous, rows), nil
}

func statusChanges(before, after []ScheduleRecord) int {
	prev := make(map[advancetax.Quarter]advancetax.Status, len(before))
	for _, r := range before {
		prev[r.Quarter] = r.Status
	}
	changes := 0
	for _, r := range after {
		if old, ok := prev[r.Quarter]; ok && old != r.Status {
			changes++
		}
	}
	return changes
}

func toPayments(records []PaymentRecord) []advancetax.Payment {
	payments := make([]advancetax.Payment, 0, len(records))
	for _, r := range records {
		payments = append(payments, r.ToPayment())
	}
	return payments
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateLiability(d decimal.Decimal) error {
	if d.IsNegative() {
		return &advancetax.ValidationError{
			Field:  "net_tax_liability",
			Value:  d.String(),
			Reason: "must not be negative",
			Err:    advancetax.ErrInvalidAmount,
		}
	}
	return nil
}

func validatePayment(in NewPayment) error {
	if !in.Amount.IsPositive() {
		return &advancetax.ValidationError{
			Field:  "amount",
			Value:  in.Amount.String(),
			Reason: "must be greater than zero",
			Err:    advancetax.ErrInvalidAmount,
		}
	}
	if in.Quarter != 0 && !in.Quarter.Valid() {
		return &advancetax.ValidationError{
			Field:  "quarter",
			Value:  fmt.Sprintf("%d", int(in.Quarter)),
			Reason: "must be 1-4, or 0 to detect from the payment date",
			Err:    advancetax.ErrInvalidQuarter,
		}
	}
	if in.PaidOn.IsZero() {
		return &advancetax.ValidationError{
			Field:  "paid_on",
			Reason: "is required",
			Err:    advancetax.ErrInvalidDate,
		}
	}
	return nil
}
