package eligibility

import (
	"testing"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clinic = time.FixedZone("IST", 5*3600+1800)

func calcAt(y int, m time.Month, d int) *Calculator {
	return NewCalculator(calendar.FixedClock{At: time.Date(y, m, d, 14, 30, 0, 0, clinic)})
}

func TestDaysUntilEligible_SixWeeksFromToday(t *testing.T) {
	calc := calcAt(2025, 6, 10)
	birth := time.Date(2025, 6, 10, 0, 0, 0, 0, clinic)

	days, err := calc.DaysUntilEligible(birth, "6 weeks")
	require.NoError(t, err)
	assert.Equal(t, 42, days)
}

func TestDaysUntilEligible_CalendarMonths(t *testing.T) {
	// 2024-01-31 + 1 год 3 месяца = 2025-04-30
	calc := calcAt(2025, 4, 20)
	birth := time.Date(2024, 1, 31, 0, 0, 0, 0, clinic)

	days, err := calc.DaysUntilEligible(birth, "1 year and 3 months")
	require.NoError(t, err)
	assert.Equal(t, 10, days)
	assert.Equal(t, time.Date(2025, 4, 30, 0, 0, 0, 0, clinic), calc.EligibleOn(days))
}

func TestDaysUntilEligible_Table(t *testing.T) {
	birth := time.Date(2025, 1, 1, 0, 0, 0, 0, clinic)
	calc := calcAt(2025, 3, 1)

	tests := []struct {
		symbol string
		want   int
	}{
		{"24 hours", -58},               // 2025-01-02
		{"10 weeks", 11},                // 2025-03-12
		{"14 weeks", 39},                // 2025-04-09
		{"2 months", 0},                 // 2025-03-01
		{"9 months", 214},               // 2025-10-01
		{"No specific age required", 0}, // всегда 0
		{"1 year and 6 months", 487},    // 2026-07-01
		{"9 years and 3 months", 3318},  // 2034-04-01
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, err := calc.DaysUntilEligible(birth, tt.symbol)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDaysUntilEligible_UnknownSymbol(t *testing.T) {
	calc := calcAt(2025, 6, 10)
	birth := time.Date(2025, 1, 1, 0, 0, 0, 0, clinic)

	for _, symbol := range []string{
		"", "6 week", "3 weeks", "one year", "12 months", "at birth", "10",
		"6 WEEKS", " 6 weeks", "1 year  and 6 months", "no specific age required",
	} {
		days, err := calc.DaysUntilEligible(birth, symbol)
		assert.ErrorIs(t, err, model.ErrUnknownAgeSymbol, "symbol %q", symbol)
		assert.Zero(t, days)
	}
}

func TestDaysUntilEligible_InvalidBirthDate(t *testing.T) {
	calc := calcAt(2025, 6, 10)

	_, err := calc.DaysUntilEligible(time.Time{}, "6 weeks")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	tomorrow := time.Date(2025, 6, 11, 0, 0, 0, 0, clinic)
	_, err = calc.DaysUntilEligible(tomorrow, "6 weeks")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestDaysUntilEligible_DateFromDatabase(t *testing.T) {
	// DATE колонки сканируются полночью UTC; гражданская дата не должна сдвигаться
	calc := calcAt(2025, 6, 10)
	birth := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	days, err := calc.DaysUntilEligible(birth, "6 weeks")
	require.NoError(t, err)
	assert.Equal(t, 42, days)
}

func TestParseAgeRequirement_ExactMatch(t *testing.T) {
	for _, req := range []AgeRequirement{AgeNoSpecific, Age24Hours, Age6Weeks, Age1Year3Months, Age9Years3Months} {
		parsed, err := ParseAgeRequirement(string(req))
		require.NoError(t, err)
		assert.Equal(t, req, parsed)

		_, err = parsed.Offset()
		assert.NoError(t, err)
	}

	_, err := ParseAgeRequirement("6 Weeks")
	assert.ErrorIs(t, err, model.ErrUnknownAgeSymbol)

	_, err = AgeRequirement("bogus").Offset()
	assert.ErrorIs(t, err, model.ErrUnknownAgeSymbol)
}
