package advancetax_test

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/advance-tax/advancetax"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const fy2425 = advancetax.FinancialYear("2024-25")

func units(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func day(year int, month time.Month, d int) advancetax.Date {
	return advancetax.NewDate(year, month, d)
}

func assertUnits(t *testing.T, expected int64, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, units(expected).String(), actual.String(), msgAndArgs...)
}

// =============================================================================
// DUE DATE CALENDAR
// =============================================================================

func TestDueDates_FY2024_25(t *testing.T) {
	dates := advancetax.DueDates(fy2425)

	expected := []struct {
		q       advancetax.Quarter
		date    advancetax.Date
		percent int64
	}{
		{advancetax.Q1, day(2024, time.June, 15), 15},
		{advancetax.Q2, day(2024, time.September, 15), 45},
		{advancetax.Q3, day(2024, time.December, 15), 75},
		{advancetax.Q4, day(2025, time.March, 15), 100},
	}

	for i, e := range expected {
		assert.Equal(t, e.q, dates[i].Quarter)
		assert.True(t, e.date.Equal(dates[i].Date), "Q%d due %s, got %s", i+1, e.date, dates[i].Date)
		assert.Equal(t, e.percent, dates[i].CumulativePercent)
		assert.NotEmpty(t, dates[i].Label)
	}
}

func TestDueDates_QuarterFourFallsInFollowingYear(t *testing.T) {
	for _, fy := range []advancetax.FinancialYear{"1999-00", "2023-24", "2030-31"} {
		dates := advancetax.DueDates(fy)
		assert.Equal(t, fy.StartYear(), dates[2].Date.Year())
		assert.Equal(t, fy.StartYear()+1, dates[3].Date.Year())
	}
}

// =============================================================================
// PAYMENT ALLOCATOR
// =============================================================================

func TestDetectQuarter(t *testing.T) {
	tests := []struct {
		name string
		paid advancetax.Date
		want advancetax.Quarter
	}{
		{"start of year", day(2024, time.April, 10), advancetax.Q1},
		{"on Q1 due date", day(2024, time.June, 15), advancetax.Q1},
		{"day after Q1 due date", day(2024, time.June, 16), advancetax.Q2},
		{"August", day(2024, time.August, 1), advancetax.Q2},
		{"November", day(2024, time.November, 30), advancetax.Q3},
		{"on Q4 due date", day(2025, time.March, 15), advancetax.Q4},
		{"after every due date", day(2025, time.March, 20), advancetax.Q4},
		{"after year end", day(2025, time.July, 1), advancetax.Q4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, advancetax.DetectQuarter(fy2425, tt.paid))
		})
	}
}

func TestAllocate_SumsSameQuarterAndDefaultsToZero(t *testing.T) {
	payments := []advancetax.Payment{
		{Quarter: advancetax.Q1, Amount: units(5000), Date: day(2024, time.May, 1)},
		{Amount: units(7000), Date: day(2024, time.June, 1)},  // auto Q1
		{Amount: units(3000), Date: day(2024, time.August, 1)}, // auto Q2
		{Quarter: advancetax.Q4, Amount: units(1000), Date: day(2024, time.May, 1)},
	}

	alloc := advancetax.Allocate(payments, fy2425)

	assertUnits(t, 12000, alloc.For(advancetax.Q1))
	assertUnits(t, 3000, alloc.For(advancetax.Q2))
	assertUnits(t, 0, alloc.For(advancetax.Q3))
	assertUnits(t, 1000, alloc.For(advancetax.Q4))
	assertUnits(t, 15000, alloc.Cumulative(advancetax.Q3))
	assertUnits(t, 16000, alloc.Total())
}

func TestAllocate_ExplicitAndDetectedQuarterAgree(t *testing.T) {
	dates := []advancetax.Date{
		day(2024, time.April, 1), day(2024, time.June, 15), day(2024, time.August, 1),
		day(2024, time.December, 15), day(2025, time.January, 2), day(2025, time.March, 31),
	}

	for _, d := range dates {
		detected := advancetax.Allocate([]advancetax.Payment{{Amount: units(100), Date: d}}, fy2425)
		q := advancetax.DetectQuarter(fy2425, d)
		explicit := advancetax.Allocate([]advancetax.Payment{{Quarter: q, Amount: units(100), Date: d}}, fy2425)
		assert.Equal(t, explicit, detected, "payment on %s", d)
	}
}

// =============================================================================
// SCHEDULE BUILDER
// =============================================================================

func TestBuildSchedule_NoPayments(t *testing.T) {
	// GIVEN: 100000 liability, nothing paid, before the first due date
	schedule := advancetax.BuildSchedule(units(100000), fy2425, nil, day(2024, time.April, 1))

	cumulative := []int64{15000, 45000, 75000, 100000}
	quarterly := []int64{15000, 30000, 30000, 25000}

	for i, entry := range schedule {
		assertUnits(t, cumulative[i], entry.CumulativeAmountDue, "Q%d cumulative", i+1)
		assertUnits(t, quarterly[i], entry.QuarterAmountDue, "Q%d quarterly", i+1)
		assertUnits(t, cumulative[i], entry.Shortfall, "Q%d shortfall", i+1)
		assertUnits(t, 0, entry.AmountPaid)
		assert.Equal(t, advancetax.StatusPending, entry.Status)
		assertUnits(t, 0, entry.DeferredInterest, "nothing is past due yet")
	}
}

func TestBuildSchedule_FirstInstallmentPaid(t *testing.T) {
	payments := []advancetax.Payment{
		{Quarter: advancetax.Q1, Amount: units(15000), Date: day(2024, time.June, 10)},
	}

	schedule := advancetax.BuildSchedule(units(100000), fy2425, payments, day(2024, time.October, 1))

	q1, q2, q3 := schedule[0], schedule[1], schedule[2]
	assertUnits(t, 0, q1.Shortfall)
	assert.Equal(t, advancetax.StatusPaid, q1.Status)

	assertUnits(t, 15000, q2.CumulativePaid)
	assertUnits(t, 30000, q2.Shortfall)
	assert.Equal(t, advancetax.StatusPartial, q2.Status)
	assertUnits(t, 900, q2.DeferredInterest, "30000 at 1 percent for 3 months")

	assert.Equal(t, advancetax.StatusPending, q3.Status)
	assertUnits(t, 0, q3.DeferredInterest)
}

func TestBuildSchedule_OverdueWhenNothingPaid(t *testing.T) {
	schedule := advancetax.BuildSchedule(units(100000), fy2425, nil, day(2024, time.July, 1))

	assert.Equal(t, advancetax.StatusOverdue, schedule[0].Status)
	assertUnits(t, 450, schedule[0].DeferredInterest)
	assert.Equal(t, advancetax.StatusPending, schedule[1].Status)
}

func TestBuildSchedule_DueDateItselfIsNotPastDue(t *testing.T) {
	schedule := advancetax.BuildSchedule(units(100000), fy2425, nil, day(2024, time.June, 15))

	assert.Equal(t, advancetax.StatusPending, schedule[0].Status)
	assertUnits(t, 0, schedule[0].DeferredInterest)
}

func TestBuildSchedule_OverpaymentCarriesForward(t *testing.T) {
	// GIVEN: Entire liability paid in the first quarter
	payments := []advancetax.Payment{{Amount: units(100000), Date: day(2024, time.May, 1)}}

	schedule := advancetax.BuildSchedule(units(100000), fy2425, payments, day(2025, time.April, 30))

	for _, entry := range schedule {
		assert.Equal(t, advancetax.StatusPaid, entry.Status)
		assertUnits(t, 0, entry.Shortfall)
	}
	assertUnits(t, 0, schedule[1].AmountPaid, "no payment allocated to Q2 itself")
}

func TestBuildSchedule_RoundsHalfUp(t *testing.T) {
	// 10 × 15% = 1.5, × 45% = 4.5, × 75% = 7.5
	schedule := advancetax.BuildSchedule(units(10), fy2425, nil, day(2024, time.April, 1))

	cumulative := []int64{2, 5, 8, 10}
	quarterly := []int64{2, 3, 3, 2}
	for i := range schedule {
		assertUnits(t, cumulative[i], schedule[i].CumulativeAmountDue)
		assertUnits(t, quarterly[i], schedule[i].QuarterAmountDue)
	}
}

func TestBuildSchedule_CumulativeDueIsMonotonicAndSumsToLiability(t *testing.T) {
	for _, liability := range []int64{0, 1, 7, 99, 1001, 33333, 123457, 9999999} {
		schedule := advancetax.BuildSchedule(units(liability), fy2425, nil, day(2024, time.April, 1))

		sum := decimal.Zero
		for i, entry := range schedule {
			if i > 0 {
				assert.True(t, entry.CumulativeAmountDue.GreaterThanOrEqual(schedule[i-1].CumulativeAmountDue),
					"liability %d: Q%d cumulative decreased", liability, i+1)
			}
			sum = sum.Add(entry.QuarterAmountDue)
		}
		assertUnits(t, liability, schedule[3].CumulativeAmountDue, "liability %d", liability)
		assert.True(t, sum.Equal(schedule[3].CumulativeAmountDue), "liability %d: quarter dues sum to %s", liability, sum)
	}
}

// =============================================================================
// INTEREST CALCULATOR
// =============================================================================

func TestDefaultPenalty_NotApplicableAtNinetyPercent(t *testing.T) {
	for _, assessed := range []advancetax.Date{day(2025, time.May, 15), day(2026, time.January, 1), day(2025, time.February, 1)} {
		p := advancetax.CalculateDefaultPenalty(units(100000), units(90000), assessed)

		assert.False(t, p.Applicable)
		assertUnits(t, 0, p.InterestAmount)
		assert.NotEmpty(t, p.Reason)
	}
}

func TestDefaultPenalty_ApplicableBelowNinetyPercent(t *testing.T) {
	// 2025-04-01 → 2025-05-15 is 44 days → 2 months
	p := advancetax.CalculateDefaultPenalty(units(100000), units(50000), day(2025, time.May, 15))

	require.True(t, p.Applicable)
	assertUnits(t, 50000, p.Shortfall)
	assert.Equal(t, int64(2), p.MonthsOfDefault)
	assertUnits(t, 1000, p.InterestAmount)
	assert.True(t, p.InterestAmount.IsPositive())
}

func TestDefaultPenalty_JustBelowThreshold(t *testing.T) {
	p := advancetax.CalculateDefaultPenalty(units(100000), units(89999), day(2025, time.April, 1))

	require.True(t, p.Applicable)
	assertUnits(t, 10001, p.Shortfall)
	assert.Equal(t, int64(1), p.MonthsOfDefault)
	assertUnits(t, 100, p.InterestAmount, "10001 at 1 percent rounds to 100")
}

func TestMonthsOfDefault(t *testing.T) {
	tests := []struct {
		assessed advancetax.Date
		want     int64
	}{
		{day(2025, time.April, 1), 1},
		{day(2025, time.April, 30), 1},
		{day(2025, time.May, 1), 1},
		{day(2025, time.May, 2), 2},
		{day(2025, time.May, 15), 2},
		{day(2025, time.December, 31), 10},
		// Before April 1 of its own year: floor of one month
		{day(2025, time.February, 10), 1},
	}

	for _, tt := range tests {
		t.Run(tt.assessed.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, advancetax.MonthsOfDefault(tt.assessed))
		})
	}
}

func TestDefermentPenalty_AllQuartersShort(t *testing.T) {
	schedule := advancetax.BuildSchedule(units(100000), fy2425, nil, day(2025, time.April, 1))

	p := advancetax.CalculateDefermentPenalty(schedule)

	expected := []int64{450, 1350, 2250, 1000}
	months := []int64{3, 3, 3, 1}
	for i, line := range p.Breakdown {
		assert.Equal(t, advancetax.Quarters[i], line.Quarter)
		assert.Equal(t, months[i], line.Months)
		assertUnits(t, expected[i], line.InterestAmount, "Q%d", i+1)
	}
	assertUnits(t, 5050, p.TotalInterestAmount)
}

func TestDefermentPenalty_ZeroWhenFullyPaidKeepsAllQuarters(t *testing.T) {
	payments := []advancetax.Payment{
		{Quarter: advancetax.Q1, Amount: units(15000), Date: day(2024, time.June, 1)},
		{Quarter: advancetax.Q2, Amount: units(30000), Date: day(2024, time.September, 1)},
		{Quarter: advancetax.Q3, Amount: units(30000), Date: day(2024, time.December, 1)},
		{Quarter: advancetax.Q4, Amount: units(25000), Date: day(2025, time.March, 1)},
	}
	schedule := advancetax.BuildSchedule(units(100000), fy2425, payments, day(2025, time.April, 1))

	p := advancetax.CalculateDefermentPenalty(schedule)

	assertUnits(t, 0, p.TotalInterestAmount)
	for i, line := range p.Breakdown {
		assert.Equal(t, advancetax.Quarters[i], line.Quarter, "quarter %d must be present", i+1)
		assertUnits(t, 0, line.InterestAmount)
	}
}

// =============================================================================
// ANALYSIS
// =============================================================================

func TestAnalyze_ComposesScheduleAndPenalties(t *testing.T) {
	assessed := day(2025, time.May, 15)
	result := advancetax.Analyze(advancetax.AnalysisInput{
		NetTaxLiability: units(100000),
		FinancialYear:   fy2425,
		Payments: []advancetax.Payment{
			{Quarter: advancetax.Q1, Amount: units(15000), Date: day(2024, time.June, 10)},
			{Amount: units(35000), Date: day(2024, time.December, 1)},
		},
		AsOf:           day(2025, time.April, 30),
		AssessmentDate: &assessed,
	})

	assert.True(t, result.AdvanceTaxRequired)
	assertUnits(t, 50000, result.TotalPaid)

	// Q2 short 30000, Q3 short 25000, Q4 short 50000
	assertUnits(t, 30000, result.Entry(advancetax.Q2).Shortfall)
	assertUnits(t, 25000, result.Entry(advancetax.Q3).Shortfall)
	assertUnits(t, 50000, result.Entry(advancetax.Q4).Shortfall)

	assertUnits(t, 1000, result.DefaultPenalty.InterestAmount)
	assertUnits(t, 900+750+500, result.DefermentPenalty.TotalInterestAmount)
	assertUnits(t, 1000+2150, result.TotalInterest)
	assert.True(t, assessed.Equal(result.AssessmentDate))
}

func TestAnalyze_AssessmentDefaultsToAsOf(t *testing.T) {
	asOf := day(2025, time.June, 1)
	result := advancetax.Analyze(advancetax.AnalysisInput{
		NetTaxLiability: units(100000),
		FinancialYear:   fy2425,
		AsOf:            asOf,
	})

	assert.True(t, asOf.Equal(result.AssessmentDate))
	assert.Equal(t, int64(3), result.DefaultPenalty.MonthsOfDefault)
}

func TestAnalyze_BelowThresholdStillComputesSchedule(t *testing.T) {
	result := advancetax.Analyze(advancetax.AnalysisInput{
		NetTaxLiability: units(5000),
		FinancialYear:   fy2425,
		AsOf:            day(2024, time.April, 1),
	})

	assert.False(t, result.AdvanceTaxRequired)
	for _, entry := range result.Schedule {
		assert.True(t, entry.CumulativeAmountDue.LessThanOrEqual(units(5000)))
		assert.True(t, entry.CumulativeAmountDue.IsPositive())
	}
	assertUnits(t, 5000, result.Entry(advancetax.Q4).CumulativeAmountDue)
}

func TestIsAdvanceTaxRequired_Boundary(t *testing.T) {
	assert.False(t, advancetax.IsAdvanceTaxRequired(units(10000)))
	assert.True(t, advancetax.IsAdvanceTaxRequired(units(10001)))
}

func TestAnalyze_IsReferentiallyTransparent(t *testing.T) {
	in := advancetax.AnalysisInput{
		NetTaxLiability: units(250000),
		FinancialYear:   fy2425,
		Payments: []advancetax.Payment{
			{Amount: units(20000), Date: day(2024, time.June, 1)},
			{Amount: units(60000), Date: day(2024, time.October, 1)},
		},
		AsOf: day(2025, time.January, 10),
	}

	first := advancetax.Analyze(in)
	second := advancetax.Analyze(in)
	assert.Equal(t, first, second)
}

func TestAnalyze_ConcurrentCallersSeeSameResult(t *testing.T) {
	in := advancetax.AnalysisInput{
		NetTaxLiability: units(180000),
		FinancialYear:   fy2425,
		Payments:        []advancetax.Payment{{Amount: units(27000), Date: day(2024, time.June, 14)}},
		AsOf:            day(2024, time.November, 1),
	}
	want := advancetax.Analyze(in)

	var wg sync.WaitGroup
	results := make([]advancetax.AnalysisResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = advancetax.Analyze(in)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestEngine_UsesInjectedClock(t *testing.T) {
	engine := advancetax.NewEngine(advancetax.FixedClock(day(2024, time.July, 1)))

	result := engine.Analyze(units(100000), fy2425, nil, nil)

	assert.True(t, day(2024, time.July, 1).Equal(result.AsOf))
	assert.Equal(t, advancetax.StatusOverdue, result.Entry(advancetax.Q1).Status)
	assert.Equal(t, advancetax.StatusPending, result.Entry(advancetax.Q2).Status)
}
