package advancetax_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/advance-tax/advancetax"
)

func TestParseFinancialYear(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"2024-25", true},
		{"1999-00", true},
		{"2099-00", true},
		{"2024-26", false},
		{"24-25", false},
		{"2024/25", false},
		{"2024-2025", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			fy, err := advancetax.ParseFinancialYear(tt.in)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, advancetax.FinancialYear(tt.in), fy)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, advancetax.ErrInvalidFinancialYear))
			assert.True(t, advancetax.IsClientError(err))
		})
	}
}

func TestFinancialYear_Period(t *testing.T) {
	p := advancetax.FinancialYear("2024-25").Period()

	assert.Equal(t, "2024-04-01", p.Start.String())
	assert.Equal(t, "2025-03-31", p.End.String())
	assert.True(t, p.Contains(advancetax.NewDate(2025, time.March, 15)))
	assert.False(t, p.Contains(advancetax.NewDate(2025, time.April, 1)))
}

func TestFinancialYearFor(t *testing.T) {
	assert.Equal(t, advancetax.FinancialYear("2024-25"), advancetax.FinancialYearFor(advancetax.NewDate(2025, time.March, 31)))
	assert.Equal(t, advancetax.FinancialYear("2025-26"), advancetax.FinancialYearFor(advancetax.NewDate(2025, time.April, 1)))
	assert.Equal(t, advancetax.FinancialYear("1999-00"), advancetax.FinancialYearFor(advancetax.NewDate(1999, time.December, 1)))
}

func TestParseDate(t *testing.T) {
	d, err := advancetax.ParseDate("2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.June, d.Month())

	_, err = advancetax.ParseDate("15/06/2024")
	assert.ErrorIs(t, err, advancetax.ErrInvalidDate)
}

func TestDaysBetween(t *testing.T) {
	from := advancetax.NewDate(2025, time.April, 1)
	assert.Equal(t, 44, advancetax.DaysBetween(from, advancetax.NewDate(2025, time.May, 15)))
	assert.Equal(t, -59, advancetax.DaysBetween(from, advancetax.NewDate(2025, time.February, 1)))
}
