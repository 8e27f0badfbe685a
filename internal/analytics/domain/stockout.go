package domain

import "time"

// StockoutPeriod is a contiguous interval during which a medication's
// on-hand quantity was zero. Open periods have a nil end date; closing is
// one-way and a later stockout always opens a new period.
type StockoutPeriod struct {
	ID             string     `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organization_id"`
	ProjectID      string     `db:"project_id" json:"project_id"`
	MedicationID   string     `db:"medication_id" json:"medication_id"`
	StartDate      time.Time  `db:"start_date" json:"start_date"`
	EndDate        *time.Time `db:"end_date" json:"end_date,omitempty"`
	DaysDuration   *int       `db:"days_duration" json:"days_duration,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// IsOpen reports whether the period has not been closed yet.
func (p *StockoutPeriod) IsOpen() bool {
	return p.EndDate == nil
}

// Close ends the period at the given date and freezes its duration.
// Closing an already closed period is a no-op.
func (p *StockoutPeriod) Close(asOf time.Time) {
	if !p.IsOpen() {
		return
	}
	end := asOf
	days := DaysBetween(p.StartDate, end)
	p.EndDate = &end
	p.DaysDuration = &days
}

// DaysBetween returns the number of whole days between two dates.
func DaysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}
