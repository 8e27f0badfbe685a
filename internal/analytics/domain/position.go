package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockPosition is the evaluated state of one medication within a scope.
type StockPosition struct {
	MedicationID string  `json:"medication_id"`
	CurrentStock int     `json:"current_stock"`
	CMM          float64 `json:"cmm"`
	DaysOfCover  float64 `json:"days_of_cover"`
	// HasCover is false when CMM is 0 and no depletion estimate exists.
	HasCover bool `json:"has_cover"`
}

// CurrentStock combines delivered quantities over non-expired batches with
// the cumulative dispensed total, floored at 0.
func CurrentStock(batches []StockBatch, dispensedTotal int, asOf time.Time) int {
	var delivered int
	for i := range batches {
		if batches[i].Expired(asOf) {
			continue
		}
		delivered += batches[i].QuantityDelivered
	}

	stock := delivered - dispensedTotal
	if stock < 0 {
		return 0
	}
	return stock
}

// DaysOfCover estimates how many days the current stock lasts at the CMM
// consumption rate. With CMM = 0 there is no way to estimate depletion and
// the second return value is false.
func DaysOfCover(currentStock int, cmm float64) (float64, bool) {
	if cmm <= 0 {
		return 0, false
	}
	return float64(currentStock) / (cmm / DaysPerMonth), true
}

// StockValue sums quantity x unit price over non-expired batches.
func StockValue(batches []StockBatch, asOf time.Time) decimal.Decimal {
	total := decimal.Zero
	for i := range batches {
		if batches[i].Expired(asOf) {
			continue
		}
		total = total.Add(batches[i].Value())
	}
	return total
}
