package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
	"github.com/warp/advance-tax/advancetax"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle }).
		Headers(headers...)
}

func units(d decimal.Decimal) string {
	return d.StringFixed(0)
}

func renderAnalysis(r advancetax.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintln(&b, titleStyle.Render(fmt.Sprintf("Advance tax FY %s (as of %s)", r.FinancialYear, r.AsOf)))
	fmt.Fprintf(&b, "Net tax liability:    %s\n", units(r.NetTaxLiability))
	fmt.Fprintf(&b, "Advance tax required: %t\n", r.AdvanceTaxRequired)
	fmt.Fprintf(&b, "Total paid:           %s\n\n", units(r.TotalPaid))

	schedule := newTable("Quarter", "Due date", "Cum %", "Cum due", "Quarter due", "Paid", "Cum paid", "Shortfall", "Status", "Interest")
	for _, e := range r.Schedule {
		schedule.Row(
			e.Quarter.String(),
			e.DueDate.String(),
			fmt.Sprintf("%d%%", e.CumulativePercent),
			units(e.CumulativeAmountDue),
			units(e.QuarterAmountDue),
			units(e.AmountPaid),
			units(e.CumulativePaid),
			units(e.Shortfall),
			string(e.Status),
			units(e.DeferredInterest),
		)
	}
	fmt.Fprintln(&b, schedule.Render())
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, titleStyle.Render("Deferment interest"))
	breakdown := newTable("Quarter", "Shortfall", "Months", "Interest")
	for _, q := range r.DefermentPenalty.Breakdown {
		breakdown.Row(q.Quarter.String(), units(q.Shortfall), fmt.Sprint(q.Months), units(q.InterestAmount))
	}
	breakdown.Row("Total", "", "", units(r.DefermentPenalty.TotalInterestAmount))
	fmt.Fprintln(&b, breakdown.Render())
	fmt.Fprintln(&b)

	dp := r.DefaultPenalty
	fmt.Fprintln(&b, titleStyle.Render("Default interest"))
	fmt.Fprintf(&b, "Assessment date: %s\n", r.AssessmentDate)
	fmt.Fprintf(&b, "Applicable:      %t\n", dp.Applicable)
	if dp.Applicable {
		fmt.Fprintf(&b, "Shortfall:       %s over %d month(s)\n", units(dp.Shortfall), dp.MonthsOfDefault)
	}
	fmt.Fprintf(&b, "Interest:        %s\n", units(dp.InterestAmount))
	fmt.Fprintf(&b, "Reason:          %s\n\n", dp.Reason)

	fmt.Fprintln(&b, titleStyle.Render(fmt.Sprintf("Total interest: %s", units(r.TotalInterest))))
	return b.String()
}

func renderDueDates(fy advancetax.FinancialYear, dates [4]advancetax.DueDate) string {
	var b strings.Builder

	fmt.Fprintln(&b, titleStyle.Render(fmt.Sprintf("Installments FY %s (%s)", fy, fy.Period())))
	t := newTable("Quarter", "Due date", "Cumulative %", "Installment")
	for _, d := range dates {
		t.Row(d.Quarter.String(), d.Date.String(), fmt.Sprintf("%d%%", d.CumulativePercent), d.Label)
	}
	fmt.Fprintln(&b, t.Render())
	return b.String()
}
