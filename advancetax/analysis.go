package advancetax

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ANALYSIS - Schedule + both penalties in one value
// =============================================================================

// AdvanceTaxThreshold is the liability above which advance tax is due.
var AdvanceTaxThreshold = decimal.NewFromInt(10000)

// IsAdvanceTaxRequired reports whether the liability exceeds the threshold.
func IsAdvanceTaxRequired(netTaxLiability decimal.Decimal) bool {
	return netTaxLiability.GreaterThan(AdvanceTaxThreshold)
}

// AnalysisInput carries everything an analysis depends on.
type AnalysisInput struct {
	NetTaxLiability decimal.Decimal
	FinancialYear   FinancialYear
	Payments        []Payment

	// AsOf is "today" for status classification.
	AsOf Date

	// AssessmentDate drives the default penalty. Nil means AsOf.
	AssessmentDate *Date
}

// Analyze runs the schedule builder and both interest calculations.
//
// A liability at or below the threshold still produces a full schedule and
// penalties; AdvanceTaxRequired reports that the obligation does not apply so
// callers can explain the numbers instead of hiding them.
func Analyze(in AnalysisInput) AnalysisResult {
	assessment := in.AsOf
	if in.AssessmentDate != nil {
		assessment = *in.AssessmentDate
	}

	schedule := BuildSchedule(in.NetTaxLiability, in.FinancialYear, in.Payments, in.AsOf)
	totalPaid := Allocate(in.Payments, in.FinancialYear).Total()

	defaultPenalty := CalculateDefaultPenalty(in.NetTaxLiability, totalPaid, assessment)
	deferment := CalculateDefermentPenalty(schedule)

	return AnalysisResult{
		NetTaxLiability:    in.NetTaxLiability,
		FinancialYear:      in.FinancialYear,
		AdvanceTaxRequired: IsAdvanceTaxRequired(in.NetTaxLiability),
		TotalPaid:          totalPaid,
		Schedule:           schedule,
		DefaultPenalty:     defaultPenalty,
		DefermentPenalty:   deferment,
		TotalInterest:      defaultPenalty.InterestAmount.Add(deferment.TotalInterestAmount),
		AsOf:               in.AsOf,
		AssessmentDate:     assessment,
	}
}

// =============================================================================
// ENGINE - Analyze with an injectable clock
// =============================================================================

// Clock returns the current calendar day.
type Clock func() Date

// SystemClock reads the wall clock in UTC.
func SystemClock() Date { return DateOf(time.Now().UTC()) }

// FixedClock always returns d.
func FixedClock(d Date) Clock { return func() Date { return d } }

// Engine binds Analyze to a clock so service code never reads time directly.
// The zero value uses SystemClock.
type Engine struct {
	Clock Clock
}

func NewEngine(clock Clock) *Engine {
	return &Engine{Clock: clock}
}

// Today returns the engine's notion of the current day.
func (e *Engine) Today() Date {
	if e == nil || e.Clock == nil {
		return SystemClock()
	}
	return e.Clock()
}

// Analyze runs an analysis as of Today.
func (e *Engine) Analyze(netTaxLiability decimal.Decimal, fy FinancialYear, payments []Payment, assessmentDate *Date) AnalysisResult {
	return Analyze(AnalysisInput{
		NetTaxLiability: netTaxLiability,
		FinancialYear:   fy,
		Payments:        payments,
		AsOf:            e.Today(),
		AssessmentDate:  assessmentDate,
	})
}
