package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func closedWeek(med string, year, week, qty int) ConsumptionRecord {
	return ConsumptionRecord{
		MedicationID:     med,
		WeekNumber:       week,
		Year:             year,
		QuantityConsumed: qty,
		IsWeekClosed:     true,
	}
}

func TestMonthlyAverage(t *testing.T) {
	asOf := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) // ISO week 24

	t.Run("no records means insufficient data", func(t *testing.T) {
		assert.Equal(t, 0.0, MonthlyAverage(nil, 3, asOf))
	})

	t.Run("open weeks are ignored", func(t *testing.T) {
		records := []ConsumptionRecord{
			{WeekNumber: 23, Year: 2024, QuantityConsumed: 500, IsWeekClosed: false},
		}
		assert.Equal(t, 0.0, MonthlyAverage(records, 3, asOf))
	})

	t.Run("steady consumption scales by weeks per month", func(t *testing.T) {
		records := []ConsumptionRecord{
			closedWeek("m", 2024, 21, 25),
			closedWeek("m", 2024, 22, 25),
			closedWeek("m", 2024, 23, 25),
			closedWeek("m", 2024, 24, 25),
		}
		// 25 per week on average -> 25 * 4.33 per month
		assert.InDelta(t, 25*WeeksPerMonth, MonthlyAverage(records, 3, asOf), 0.001)
	})

	t.Run("weeks outside the window are excluded", func(t *testing.T) {
		records := []ConsumptionRecord{
			closedWeek("m", 2024, 23, 10),
			closedWeek("m", 2024, 24, 10),
			closedWeek("m", 2023, 2, 9000), // far outside any window
		}
		assert.InDelta(t, 10*WeeksPerMonth, MonthlyAverage(records, 3, asOf), 0.001)
	})

	t.Run("window spans year boundary", func(t *testing.T) {
		janAsOf := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC) // ISO week 3
		records := []ConsumptionRecord{
			closedWeek("m", 2023, 52, 30),
			closedWeek("m", 2024, 2, 30),
		}
		assert.InDelta(t, 30*WeeksPerMonth, MonthlyAverage(records, 3, janAsOf), 0.001)
	})

	t.Run("idempotent over unchanged input", func(t *testing.T) {
		records := []ConsumptionRecord{
			closedWeek("m", 2024, 22, 40),
			closedWeek("m", 2024, 23, 20),
		}
		first := MonthlyAverage(records, 3, asOf)
		second := MonthlyAverage(records, 3, asOf)
		assert.Equal(t, first, second)
		assert.Greater(t, first, 0.0)
	})

	t.Run("zero window months", func(t *testing.T) {
		records := []ConsumptionRecord{closedWeek("m", 2024, 24, 10)}
		assert.Equal(t, 0.0, MonthlyAverage(records, 0, asOf))
	})
}

func TestWeekOrdinal(t *testing.T) {
	// Ordering must hold across the year boundary.
	late := ConsumptionRecord{Year: 2023, WeekNumber: 52}
	early := ConsumptionRecord{Year: 2024, WeekNumber: 1}
	assert.Less(t, late.WeekOrdinal(), early.WeekOrdinal())
}

func TestClosedSeries(t *testing.T) {
	records := []ConsumptionRecord{
		closedWeek("m", 2024, 10, 15),
		closedWeek("m", 2024, 2, 30),
		{MedicationID: "m", WeekNumber: 11, Year: 2024, QuantityConsumed: 99, IsWeekClosed: false},
		closedWeek("m", 2023, 50, 12),
	}

	series := ClosedSeries(records, 2024)
	assert.Len(t, series, 2)
	assert.Equal(t, 2, series[0].WeekNumber)
	assert.Equal(t, 10, series[1].WeekNumber)
}
