package domain

import "time"

// PhysicalCount is a monthly counted stock level with the theoretical level
// the records predicted. Variance is always computed on read, never stored.
type PhysicalCount struct {
	ID               string     `db:"id" json:"id"`
	OrganizationID   string     `db:"organization_id" json:"organization_id"`
	ProjectID        string     `db:"project_id" json:"project_id"`
	MedicationID     string     `db:"medication_id" json:"medication_id"`
	Month            int        `db:"month" json:"month"`
	Year             int        `db:"year" json:"year"`
	TheoreticalStock int        `db:"theoretical_stock" json:"theoretical_stock"`
	PhysicalStock    int        `db:"physical_stock" json:"physical_stock"`
	BatchID          *string    `db:"batch_id" json:"batch_id,omitempty"`
	ExpiryDate       *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CountedAt        time.Time  `db:"counted_at" json:"counted_at"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// Variance is theoretical minus physical. Positive means shortage against
// the records, negative means surplus.
func (c *PhysicalCount) Variance() int {
	return c.TheoreticalStock - c.PhysicalStock
}

// VariancePercentage normalizes the variance by the physical stock,
// 0 when nothing was counted.
func (c *PhysicalCount) VariancePercentage() float64 {
	if c.PhysicalStock == 0 {
		return 0
	}
	return float64(c.Variance()) / float64(c.PhysicalStock) * 100
}
