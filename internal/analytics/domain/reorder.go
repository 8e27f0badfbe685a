package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReorderPolicy is the per-project replenishment policy supplied by the
// collaborating CRUD layer.
type ReorderPolicy struct {
	OrderFrequencyMonths int             `db:"order_frequency_months" json:"order_frequency_months" validate:"gte=1"`
	DeliveryDelayMonths  decimal.Decimal `db:"delivery_delay_months" json:"delivery_delay_months"`
	BufferStockMonths    decimal.Decimal `db:"buffer_stock_months" json:"buffer_stock_months"`
	LastOrderDate        *time.Time      `db:"last_order_date" json:"last_order_date,omitempty"`
}

// ReorderQuantity derives the suggested order size from the CMM and the
// policy months, less what is already on hand. Never negative.
func ReorderQuantity(cmm float64, policy ReorderPolicy, currentStock int) int {
	months := policy.DeliveryDelayMonths.Add(policy.BufferStockMonths)
	need := decimal.NewFromFloat(cmm).Mul(months).
		Sub(decimal.NewFromInt(int64(currentStock)))
	if need.IsNegative() {
		return 0
	}
	qty, _ := need.Ceil().Float64()
	return int(qty)
}

// ReorderDate is the date the next order is due under the policy cycle.
func ReorderDate(policy ReorderPolicy, lastOrderDate time.Time) time.Time {
	return lastOrderDate.AddDate(0, policy.OrderFrequencyMonths, 0)
}

// PreStockout reports whether the stock is predicted to run out before a
// replenishment ordered now could arrive. Zero stock is a stockout, not a
// pre-stockout, and undefined cover never triggers.
func PreStockout(currentStock int, daysOfCover float64, hasCover bool, policy ReorderPolicy) bool {
	if currentStock <= 0 || !hasCover {
		return false
	}
	delayDays, _ := policy.DeliveryDelayMonths.Mul(decimal.NewFromFloat(DaysPerMonth)).Float64()
	return daysOfCover < delayDays
}

// Overstock reports whether the stock exceeds the policy coverage target by
// the overstock factor.
func Overstock(currentStock int, cmm float64, policy ReorderPolicy) bool {
	if cmm <= 0 {
		return false
	}
	months := decimal.NewFromInt(int64(policy.OrderFrequencyMonths)).Add(policy.BufferStockMonths)
	threshold, _ := decimal.NewFromFloat(cmm).Mul(months).
		Mul(decimal.NewFromFloat(OverstockFactor)).Float64()
	return float64(currentStock) > threshold
}
