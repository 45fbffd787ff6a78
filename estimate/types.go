// Package estimate persists advance tax estimates and their payments and keeps
// the stored schedule in step with the engine. Every change to a payment or a
// liability triggers a full recalculation; nothing derived is edited in place.
package estimate

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/advance-tax/advancetax"
)

// =============================================================================
// RECORDS
// =============================================================================

// Estimate is a taxpayer's advance tax position for one financial year. The
// interest and status fields are snapshots of the last recalculation.
type Estimate struct {
	ID              string
	TaxpayerID      string
	FinancialYear   advancetax.FinancialYear
	NetTaxLiability decimal.Decimal
	AssessmentDate  *advancetax.Date // nil = assess as of the recalculation day

	// Derived by the engine, overwritten on every recalculation
	AdvanceTaxRequired bool
	TotalPaid          decimal.Decimal
	DefaultInterest    decimal.Decimal
	DefermentInterest  decimal.Decimal
	TotalInterest      decimal.Decimal
	CalculatedAsOf     advancetax.Date

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentRecord is a stored advance tax payment. Quarter 0 means the engine
// places it by date.
type PaymentRecord struct {
	ID         string
	EstimateID string
	Quarter    advancetax.Quarter
	Amount     decimal.Decimal
	PaidOn     advancetax.Date
	Reference  string // challan or bank reference, free text
	CreatedAt  time.Time
}

// ToPayment converts the record into engine input.
func (p PaymentRecord) ToPayment() advancetax.Payment {
	return advancetax.Payment{Quarter: p.Quarter, Amount: p.Amount, Date: p.PaidOn}
}

// ScheduleRecord is the persisted form of one advancetax.ScheduleEntry.
type ScheduleRecord struct {
	EstimateID          string
	Quarter             advancetax.Quarter
	DueDate             advancetax.Date
	CumulativePercent   int64
	CumulativeAmountDue decimal.Decimal
	QuarterAmountDue    decimal.Decimal
	AmountPaid          decimal.Decimal
	CumulativePaid      decimal.Decimal
	Shortfall           decimal.Decimal
	Status              advancetax.Status
	DeferredInterest    decimal.Decimal
}

// ScheduleRecordsFrom flattens an analysis into storable rows.
func ScheduleRecordsFrom(estimateID string, result advancetax.AnalysisResult) []ScheduleRecord {
	rows := make([]ScheduleRecord, 0, len(result.Schedule))
	for _, e := range result.Schedule {
		rows = append(rows, ScheduleRecord{
			EstimateID:          estimateID,
			Quarter:             e.Quarter,
			DueDate:             e.DueDate,
			CumulativePercent:   e.CumulativePercent,
			CumulativeAmountDue: e.CumulativeAmountDue,
			QuarterAmountDue:    e.QuarterAmountDue,
			AmountPaid:          e.AmountPaid,
			CumulativePaid:      e.CumulativePaid,
			Shortfall:           e.Shortfall,
			Status:              e.Status,
			DeferredInterest:    e.DeferredInterest,
		})
	}
	return rows
}

// =============================================================================
// COMMANDS
// =============================================================================

// NewEstimate is the input for CreateEstimate.
type NewEstimate struct {
	TaxpayerID      string
	FinancialYear   string
	NetTaxLiability decimal.Decimal
	AssessmentDate  *advancetax.Date
}

// EstimateUpdate changes the inputs of an existing estimate. Nil fields are
// left alone.
type EstimateUpdate struct {
	NetTaxLiability     *decimal.Decimal
	AssessmentDate      *advancetax.Date
	ClearAssessmentDate bool
}

// NewPayment is the input for AddPayment and UpdatePayment.
type NewPayment struct {
	Quarter   advancetax.Quarter
	Amount    decimal.Decimal
	PaidOn    advancetax.Date
	Reference string
}

// RecalculationSummary reports a RecalculateAll pass.
type RecalculationSummary struct {
	Processed      int
	StatusChanges  int // schedule rows whose status moved
	Failed         int
	InterestBefore decimal.Decimal
	InterestAfter  decimal.Decimal
}
