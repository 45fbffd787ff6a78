package advancetax

import "github.com/shopspring/decimal"

// Allocation holds the amount paid against each quarter, indexed by
// Quarter.Index(). Quarters without payments hold zero.
type Allocation [4]decimal.Decimal

// For returns the amount allocated to q.
func (a Allocation) For(q Quarter) decimal.Decimal {
	return a[q.Index()]
}

// Cumulative returns the amount allocated to quarters 1 through q.
func (a Allocation) Cumulative(q Quarter) decimal.Decimal {
	total := decimal.Zero
	for i := 0; i <= q.Index(); i++ {
		total = total.Add(a[i])
	}
	return total
}

// Total returns the amount allocated across all quarters.
func (a Allocation) Total() decimal.Decimal {
	return a.Cumulative(Q4)
}

// DetectQuarter assigns a payment date to the first quarter whose due date is
// on or after it. A payment made on the due date belongs to that quarter; a
// payment after the last due date is credited to quarter 4.
func DetectQuarter(fy FinancialYear, paid Date) Quarter {
	for _, due := range DueDates(fy) {
		if due.Date.AfterOrEqual(paid) {
			return due.Quarter
		}
	}
	return Q4
}

// Allocate groups payments by quarter and sums them. An explicit quarter on
// the payment wins over the date.
func Allocate(payments []Payment, fy FinancialYear) Allocation {
	alloc := Allocation{decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero}
	for _, p := range payments {
		q := p.Quarter
		if !q.Valid() {
			q = DetectQuarter(fy, p.Date)
		}
		alloc[q.Index()] = alloc[q.Index()].Add(p.Amount)
	}
	return alloc
}
