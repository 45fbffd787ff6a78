package advancetax

import "github.com/shopspring/decimal"

// =============================================================================
// SCHEDULE BUILDER
// =============================================================================

// BuildSchedule reconciles payments against the installment calendar of fy.
//
// For each quarter, in order:
//
//	cumulativeDue  = round(liability × threshold / 100)
//	quarterDue     = cumulativeDue - previous cumulativeDue
//	cumulativePaid += payments allocated to the quarter
//	shortfall      = max(0, cumulativeDue - cumulativePaid)
//
// Status and deferred interest depend on whether asOf is past the due date.
func BuildSchedule(netTaxLiability decimal.Decimal, fy FinancialYear, payments []Payment, asOf Date) [4]ScheduleEntry {
	dueDates := DueDates(fy)
	alloc := Allocate(payments, fy)

	var (
		schedule       [4]ScheduleEntry
		previousDue    = decimal.Zero
		cumulativePaid = decimal.Zero
	)

	for _, due := range dueDates {
		q := due.Quarter
		cumulativeDue := roundUnits(netTaxLiability.Mul(decimal.NewFromInt(due.CumulativePercent)).Div(hundred))
		paid := alloc.For(q)
		cumulativePaid = cumulativePaid.Add(paid)

		shortfall := cumulativeDue.Sub(cumulativePaid)
		if shortfall.IsNegative() {
			shortfall = decimal.Zero
		}

		pastDue := asOf.After(due.Date)

		deferred := decimal.Zero
		if pastDue && shortfall.IsPositive() {
			deferred = QuarterInterestFor(q, shortfall)
		}

		schedule[q.Index()] = ScheduleEntry{
			Quarter:             q,
			DueDate:             due.Date,
			CumulativePercent:   due.CumulativePercent,
			CumulativeAmountDue: cumulativeDue,
			QuarterAmountDue:    cumulativeDue.Sub(previousDue),
			AmountPaid:          paid,
			CumulativePaid:      cumulativePaid,
			Shortfall:           shortfall,
			Status:              classify(cumulativePaid, cumulativeDue, pastDue),
			DeferredInterest:    deferred,
		}
		previousDue = cumulativeDue
	}

	return schedule
}

// classify maps cumulative payment progress to a Status.
func classify(cumulativePaid, cumulativeDue decimal.Decimal, pastDue bool) Status {
	if cumulativePaid.GreaterThanOrEqual(cumulativeDue) {
		return StatusPaid
	}
	if !pastDue {
		return StatusPending
	}
	if cumulativePaid.IsPositive() {
		return StatusPartial
	}
	return StatusOverdue
}
