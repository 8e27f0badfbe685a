// Package domain holds the analytic core: entity types and the pure
// computations over them. Nothing in this package performs I/O, so every
// rule is unit-testable against literal values.
package domain

// Conversion factors and policy constants shared by every computation that
// derives months from weeks or days. Using a single definition keeps CMM,
// days-of-cover and expiry risk mutually consistent.
const (
	// WeeksPerMonth is the average number of epidemiological weeks per month.
	WeeksPerMonth = 4.33

	// DaysPerMonth is the average number of days per month.
	DaysPerMonth = 30.44

	// ExpiryRiskThresholdMonths is the shelf-life threshold below which a
	// batch is flagged at risk. Policy constant, not derived.
	ExpiryRiskThresholdMonths = 2.0

	// OverstockFactor is the multiplier applied to the coverage target when
	// deciding whether a stock level counts as overstock.
	OverstockFactor = 1.5
)
