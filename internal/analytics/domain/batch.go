package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockBatch is a received delivery of a medication. Batches are immutable
// once created; correction workflows happen upstream.
type StockBatch struct {
	ID                string              `db:"id" json:"id"`
	OrganizationID    string              `db:"organization_id" json:"organization_id"`
	ProjectID         string              `db:"project_id" json:"project_id"`
	MedicationID      string              `db:"medication_id" json:"medication_id"`
	BatchNumber       string              `db:"batch_number" json:"batch_number"`
	QuantityOrdered   int                 `db:"quantity_ordered" json:"quantity_ordered"`
	QuantityDelivered int                 `db:"quantity_delivered" json:"quantity_delivered"`
	UnitPrice         decimal.NullDecimal `db:"unit_price" json:"unit_price,omitempty"`
	Supplier          *string             `db:"supplier" json:"supplier,omitempty"`
	DeliveryDate      time.Time           `db:"delivery_date" json:"delivery_date"`
	ExpiryDate        time.Time           `db:"expiry_date" json:"expiry_date"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
}

// ReceptionRate returns the delivered/ordered ratio as a percentage,
// clamped to [0,100]. A batch with nothing ordered rates 0.
func (b *StockBatch) ReceptionRate() float64 {
	if b.QuantityOrdered <= 0 {
		return 0
	}
	rate := float64(b.QuantityDelivered) / float64(b.QuantityOrdered) * 100
	if rate < 0 {
		return 0
	}
	if rate > 100 {
		return 100
	}
	return rate
}

// Expired reports whether the batch has passed its expiry date.
func (b *StockBatch) Expired(asOf time.Time) bool {
	return !b.ExpiryDate.After(asOf)
}

// RiskMonths returns the remaining shelf life in months, 0 when expired.
func (b *StockBatch) RiskMonths(asOf time.Time) float64 {
	if b.Expired(asOf) {
		return 0
	}
	days := b.ExpiryDate.Sub(asOf).Hours() / 24
	return days / DaysPerMonth
}

// AtRisk reports whether the batch has under two months of shelf life left.
// Exactly two months is not at risk.
func (b *StockBatch) AtRisk(asOf time.Time) bool {
	return b.RiskMonths(asOf) < ExpiryRiskThresholdMonths
}

// Value returns quantity x unit price, zero when the price is unknown.
func (b *StockBatch) Value() decimal.Decimal {
	if !b.UnitPrice.Valid {
		return decimal.Zero
	}
	return b.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(b.QuantityDelivered)))
}
