/*
Package advancetax computes advance tax installment schedules and the interest
owed when installments are missed or underpaid.

PURPOSE:
  A taxpayer whose annual liability exceeds a statutory threshold pays it in
  four cumulative installments during the financial year. This package
  derives the due-date calendar, reconciles actual payments against it,
  classifies each quarter's compliance and computes the two interest
  penalties (year-level default, per-quarter deferment).

KEY CONCEPTS IN THIS FILE (types.go):
  - Quarter: Installment slot 1-4 with a fixed rule table
  - Status: Compliance classification of a quarter
  - Payment: Money actually paid, optionally tagged with a quarter
  - ScheduleEntry / AnalysisResult: Value objects returned by the engine

DESIGN PRINCIPLES:
  1. Purity: No I/O, no clock reads. "Today" is always a parameter.
  2. Precision: decimal.Decimal, rounded half-up to whole units where computed
  3. Recomputable: Every output is derived from (liability, year, payments, dates)
  4. Fixed tables: Per-quarter constants live in one array indexed by quarter

USAGE:
  result := advancetax.Analyze(advancetax.AnalysisInput{
      NetTaxLiability: decimal.NewFromInt(100000),
      FinancialYear:   "2024-25",
      Payments:        payments,
      AsOf:            advancetax.NewDate(2025, time.May, 15),
  })

SEE ALSO:
  - calendar.go: Due dates and thresholds
  - allocator.go: Payment to quarter allocation
  - schedule.go: Per-quarter schedule
  - interest.go: Default and deferment interest
  - analysis.go: Composition of the above
*/
package advancetax

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// QUARTER - Installment slot with fixed statutory rules
// =============================================================================

// Quarter identifies an installment, 1 through 4. The zero value means
// "not specified" on a Payment.
type Quarter int

const (
	Q1 Quarter = iota + 1
	Q2
	Q3
	Q4
)

// Quarters lists the installments in due-date order.
var Quarters = [4]Quarter{Q1, Q2, Q3, Q4}

func (q Quarter) Valid() bool { return q >= Q1 && q <= Q4 }

// Index returns the zero-based slot for array lookups. Only valid quarters.
func (q Quarter) Index() int { return int(q) - 1 }

func (q Quarter) String() string { return fmt.Sprintf("Q%d", int(q)) }

// quarterRule holds the statutory constants of one installment.
type quarterRule struct {
	Month             time.Month
	Day               int
	YearOffset        int // added to the FY start year
	CumulativePercent int64
	DefermentMonths   int64
	Label             string
}

// quarterRules is indexed by Quarter.Index().
var quarterRules = [4]quarterRule{
	{Month: time.June, Day: 15, YearOffset: 0, CumulativePercent: 15, DefermentMonths: 3, Label: "15% by 15th June"},
	{Month: time.September, Day: 15, YearOffset: 0, CumulativePercent: 45, DefermentMonths: 3, Label: "45% by 15th September"},
	{Month: time.December, Day: 15, YearOffset: 0, CumulativePercent: 75, DefermentMonths: 3, Label: "75% by 15th December"},
	{Month: time.March, Day: 15, YearOffset: 1, CumulativePercent: 100, DefermentMonths: 1, Label: "100% by 15th March"},
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPaid    Status = "PAID"    // cumulative paid covers cumulative due
	StatusPending Status = "PENDING" // due date not reached, not yet covered
	StatusPartial Status = "PARTIAL" // due date passed, something paid
	StatusOverdue Status = "OVERDUE" // due date passed, nothing paid
)

// =============================================================================
// INPUTS
// =============================================================================

// Payment is one advance tax payment. Quarter 0 asks the allocator to infer
// the quarter from Date.
type Payment struct {
	Quarter Quarter
	Amount  decimal.Decimal
	Date    Date
}

// DueDate is one installment deadline of a financial year.
type DueDate struct {
	Quarter           Quarter
	Date              Date
	CumulativePercent int64
	Label             string
}

// =============================================================================
// OUTPUTS - Value objects, never mutated after construction
// =============================================================================

// ScheduleEntry is the reconciled state of one installment.
type ScheduleEntry struct {
	Quarter             Quarter
	DueDate             Date
	CumulativePercent   int64
	CumulativeAmountDue decimal.Decimal
	QuarterAmountDue    decimal.Decimal
	AmountPaid          decimal.Decimal // allocated to this quarter only
	CumulativePaid      decimal.Decimal // running total through this quarter
	Shortfall           decimal.Decimal
	Status              Status
	DeferredInterest    decimal.Decimal
}

// DefaultPenalty is the year-level interest for paying under 90% in advance.
type DefaultPenalty struct {
	Applicable        bool
	TotalTaxLiability decimal.Decimal
	TotalPaid         decimal.Decimal
	Shortfall         decimal.Decimal
	MonthsOfDefault   int64
	InterestAmount    decimal.Decimal
	Reason            string
}

// QuarterInterest is one line of the deferment breakdown.
type QuarterInterest struct {
	Quarter        Quarter
	Shortfall      decimal.Decimal
	Months         int64
	InterestAmount decimal.Decimal
}

// DefermentPenalty is the per-quarter interest for installments short of
// their cumulative threshold. Breakdown always has all four quarters.
type DefermentPenalty struct {
	Breakdown           [4]QuarterInterest
	TotalInterestAmount decimal.Decimal
}

// AnalysisResult is the complete output of one analysis.
type AnalysisResult struct {
	NetTaxLiability    decimal.Decimal
	FinancialYear      FinancialYear
	AdvanceTaxRequired bool
	TotalPaid          decimal.Decimal
	Schedule           [4]ScheduleEntry
	DefaultPenalty     DefaultPenalty
	DefermentPenalty   DefermentPenalty
	TotalInterest      decimal.Decimal
	AsOf               Date
	AssessmentDate     Date
}

// Entry returns the schedule entry for q.
func (r AnalysisResult) Entry(q Quarter) ScheduleEntry {
	return r.Schedule[q.Index()]
}

// =============================================================================
// ROUNDING
// =============================================================================

// roundUnits rounds to whole currency units, half away from zero. Inputs are
// non-negative by contract, so this is round-half-up.
func roundUnits(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

var hundred = decimal.NewFromInt(100)
