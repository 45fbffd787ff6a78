package advancetax

// DueDates returns the four installment deadlines of fy in quarter order.
// Quarters 1-3 fall in the start year; quarter 4 falls in March of the
// following year. Nothing is cached: each call derives the dates afresh.
func DueDates(fy FinancialYear) [4]DueDate {
	start := fy.StartYear()
	var out [4]DueDate
	for _, q := range Quarters {
		rule := quarterRules[q.Index()]
		out[q.Index()] = DueDate{
			Quarter:           q,
			Date:              NewDate(start+rule.YearOffset, rule.Month, rule.Day),
			CumulativePercent: rule.CumulativePercent,
			Label:             rule.Label,
		}
	}
	return out
}

// DueDateFor returns the deadline of a single quarter.
func DueDateFor(fy FinancialYear, q Quarter) DueDate {
	return DueDates(fy)[q.Index()]
}
