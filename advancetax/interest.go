package advancetax

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INTEREST CALCULATOR - Simple interest at a fixed monthly rate
// =============================================================================

var (
	// MonthlyInterestRate is charged per month on every shortfall.
	MonthlyInterestRate = decimal.NewFromFloat(0.01)

	// DefaultPenaltyThreshold is the share of the liability that must be paid
	// in advance to avoid the default penalty.
	DefaultPenaltyThreshold = decimal.NewFromFloat(0.90)
)

// daysPerMonth approximates a month when counting months of default.
const daysPerMonth = 30

// QuarterInterestFor applies the single-quarter deferment formula:
// round(shortfall × rate × months), with 3 months for quarters 1-3 and 1
// month for quarter 4.
func QuarterInterestFor(q Quarter, shortfall decimal.Decimal) decimal.Decimal {
	months := decimal.NewFromInt(quarterRules[q.Index()].DefermentMonths)
	return roundUnits(shortfall.Mul(MonthlyInterestRate).Mul(months))
}

// DefermentMonths returns the fixed interest window of q.
func DefermentMonths(q Quarter) int64 {
	return quarterRules[q.Index()].DefermentMonths
}

// MonthsOfDefault counts 30-day months from April 1 of the assessment date's
// own calendar year, rounded up, never less than one.
func MonthsOfDefault(assessmentDate Date) int64 {
	april1 := NewDate(assessmentDate.Year(), time.April, 1)
	days := DaysBetween(april1, assessmentDate)
	if days <= 0 {
		return 1
	}
	months := int64((days + daysPerMonth - 1) / daysPerMonth)
	if months < 1 {
		return 1
	}
	return months
}

// CalculateDefaultPenalty computes the year-level interest owed when less
// than 90% of the liability was paid in advance.
func CalculateDefaultPenalty(totalTaxLiability, totalPaid decimal.Decimal, assessmentDate Date) DefaultPenalty {
	shortfall := roundUnits(totalTaxLiability.Sub(totalPaid))
	if shortfall.IsNegative() {
		shortfall = decimal.Zero
	}

	required := totalTaxLiability.Mul(DefaultPenaltyThreshold)
	if totalPaid.GreaterThanOrEqual(required) {
		return DefaultPenalty{
			Applicable:        false,
			TotalTaxLiability: totalTaxLiability,
			TotalPaid:         totalPaid,
			Shortfall:         shortfall,
			InterestAmount:    decimal.Zero,
			Reason: fmt.Sprintf("advance tax paid %s is at least 90%% of liability %s",
				totalPaid.StringFixed(0), totalTaxLiability.StringFixed(0)),
		}
	}

	months := MonthsOfDefault(assessmentDate)
	interest := roundUnits(shortfall.Mul(MonthlyInterestRate).Mul(decimal.NewFromInt(months)))

	return DefaultPenalty{
		Applicable:        true,
		TotalTaxLiability: totalTaxLiability,
		TotalPaid:         totalPaid,
		Shortfall:         shortfall,
		MonthsOfDefault:   months,
		InterestAmount:    interest,
		Reason: fmt.Sprintf("advance tax paid %s is below 90%% of liability %s; 1%% per month for %d month(s) on %s",
			totalPaid.StringFixed(0), totalTaxLiability.StringFixed(0), months, shortfall.StringFixed(0)),
	}
}

// CalculateDefermentPenalty sums the per-quarter deferment interest over the
// schedule's shortfalls. Every quarter appears in the breakdown, including
// those that contribute nothing.
func CalculateDefermentPenalty(schedule [4]ScheduleEntry) DefermentPenalty {
	var out DefermentPenalty
	total := decimal.Zero

	for i, entry := range schedule {
		q := Quarters[i]
		line := QuarterInterest{
			Quarter:        q,
			Shortfall:      entry.Shortfall,
			Months:         DefermentMonths(q),
			InterestAmount: decimal.Zero,
		}
		if entry.Shortfall.IsPositive() {
			line.InterestAmount = QuarterInterestFor(q, entry.Shortfall)
		}
		out.Breakdown[q.Index()] = line
		total = total.Add(line.InterestAmount)
	}

	out.TotalInterestAmount = total
	return out
}
