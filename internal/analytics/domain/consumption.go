package domain

import (
	"math"
	"sort"
	"time"
)

// ConsumptionRecord is one epidemiological week of consumption for a
// medication. Closed records are frozen and feed trend computation.
type ConsumptionRecord struct {
	ID               string    `db:"id" json:"id"`
	OrganizationID   string    `db:"organization_id" json:"organization_id"`
	ProjectID        string    `db:"project_id" json:"project_id"`
	MedicationID     string    `db:"medication_id" json:"medication_id"`
	WeekNumber       int       `db:"week_number" json:"week_number"`
	Year             int       `db:"year" json:"year"`
	QuantityConsumed int       `db:"quantity_consumed" json:"quantity_consumed"`
	IsWeekClosed     bool      `db:"is_week_closed" json:"is_week_closed"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// WeekOrdinal maps (year, week) onto a single ordering axis. 53 slots per
// year keeps ordering correct across year boundaries; the small drift for
// 52-week years does not matter because only relative order is used.
func (r *ConsumptionRecord) WeekOrdinal() int {
	return weekOrdinal(r.Year, r.WeekNumber)
}

func weekOrdinal(year, week int) int {
	return year*53 + week - 1
}

// CurrentWeek returns the epidemiological (year, week) of the given date.
func CurrentWeek(asOf time.Time) (year, week int) {
	return asOf.ISOWeek()
}

// MonthlyAverage computes the CMM (average monthly consumption) over the
// closed records falling in the last windowMonths, counted back from asOf.
// With zero closed weeks in the window the result is 0, which callers must
// read as "insufficient data" rather than "no consumption".
func MonthlyAverage(records []ConsumptionRecord, windowMonths int, asOf time.Time) float64 {
	if windowMonths <= 0 {
		return 0
	}

	windowWeeks := int(math.Round(float64(windowMonths) * WeeksPerMonth))
	y, w := CurrentWeek(asOf)
	cutoff := weekOrdinal(y, w) - windowWeeks

	var sum, weeks int
	for i := range records {
		r := &records[i]
		if !r.IsWeekClosed {
			continue
		}
		ord := r.WeekOrdinal()
		if ord <= cutoff || ord > weekOrdinal(y, w) {
			continue
		}
		sum += r.QuantityConsumed
		weeks++
	}

	if weeks == 0 {
		return 0
	}
	return float64(sum) / float64(weeks) * WeeksPerMonth
}

// WeeklySeries is one point of the closed weekly consumption series.
type WeeklySeries struct {
	WeekNumber int `json:"week_number"`
	Year       int `json:"year"`
	Quantity   int `json:"quantity"`
}

// ClosedSeries extracts the closed weekly series for a year, ordered by week.
func ClosedSeries(records []ConsumptionRecord, year int) []WeeklySeries {
	series := make([]WeeklySeries, 0)
	for i := range records {
		r := &records[i]
		if !r.IsWeekClosed || r.Year != year {
			continue
		}
		series = append(series, WeeklySeries{
			WeekNumber: r.WeekNumber,
			Year:       r.Year,
			Quantity:   r.QuantityConsumed,
		})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].WeekNumber < series[j].WeekNumber
	})
	return series
}
