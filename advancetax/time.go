package advancetax

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date
// =============================================================================

// DateLayout is the wire format for every date the engine accepts or emits.
const DateLayout = "2006-01-02"

// Date is a calendar day. The engine never looks at hours, so every Date is
// normalized to UTC midnight on construction.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a wall-clock time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Value: s, Reason: "use YYYY-MM-DD", Err: ErrInvalidDate}
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date  { return DateOf(d.Time.AddDate(0, 0, n)) }
func (d Date) AddYears(n int) Date { return DateOf(d.Time.AddDate(n, 0, 0)) }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }
func (d Date) String() string    { return d.Time.Format(DateLayout) }

// DaysBetween returns to - from in whole days (negative when to precedes from).
func DaysBetween(from, to Date) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}

// =============================================================================
// FINANCIAL YEAR - "YYYY-YY", April 1 to March 31
// =============================================================================

// FinancialYear is a label such as "2024-25". The engine treats it as an
// already-validated precondition; use ParseFinancialYear at the input boundary.
type FinancialYear string

var financialYearRe = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// FinancialYearStartMonth is the month the financial year opens in.
const FinancialYearStartMonth = time.April

// StartYear returns the integer before the dash. Malformed labels yield 0.
func (fy FinancialYear) StartYear() int {
	s := string(fy)
	if len(s) < 4 {
		return 0
	}
	y, _ := strconv.Atoi(s[:4])
	return y
}

// Period returns April 1 of the start year through March 31 of the next.
func (fy FinancialYear) Period() Period {
	start := NewDate(fy.StartYear(), FinancialYearStartMonth, 1)
	return Period{Start: start, End: start.AddYears(1).AddDays(-1)}
}

func (fy FinancialYear) String() string { return string(fy) }

// NewFinancialYear builds the label for the FY that opens in startYear.
func NewFinancialYear(startYear int) FinancialYear {
	return FinancialYear(fmt.Sprintf("%04d-%02d", startYear, (startYear+1)%100))
}

// FinancialYearFor returns the financial year that contains the given date.
// Dates before April 1 belong to the year that opened the previous April.
func FinancialYearFor(d Date) FinancialYear {
	year := d.Year()
	if d.Before(NewDate(year, FinancialYearStartMonth, 1)) {
		year--
	}
	return NewFinancialYear(year)
}

// ParseFinancialYear validates the "YYYY-YY" pattern and the suffix rule
// (suffix == (start+1) mod 100).
func ParseFinancialYear(s string) (FinancialYear, error) {
	m := financialYearRe.FindStringSubmatch(s)
	if m == nil {
		return "", &ValidationError{Field: "financial_year", Value: s, Reason: "use YYYY-YY", Err: ErrInvalidFinancialYear}
	}
	start, _ := strconv.Atoi(m[1])
	suffix, _ := strconv.Atoi(m[2])
	if suffix != (start+1)%100 {
		return "", &ValidationError{
			Field:  "financial_year",
			Value:  s,
			Reason: fmt.Sprintf("suffix must be %02d", (start+1)%100),
			Err:    ErrInvalidFinancialYear,
		}
	}
	return FinancialYear(s), nil
}

// =============================================================================
// PERIOD
// =============================================================================

// Period is an inclusive [Start, End] range of days.
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
