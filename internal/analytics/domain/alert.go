package domain

import (
	"fmt"
	"time"
)

// AlertType identifies the rule that raised an alert.
type AlertType string

// Alert types
const (
	AlertStockout               AlertType = "STOCKOUT"
	AlertPreStockout            AlertType = "PRE_STOCKOUT"
	AlertExpiryRisk             AlertType = "EXPIRY_RISK"
	AlertOverstock              AlertType = "OVERSTOCK"
	AlertAntibioticOveruse      AlertType = "ANTIBIOTIC_OVERUSE"
	AlertMalariaEpidemic        AlertType = "MALARIA_EPIDEMIC"
	AlertServiceOverconsumption AlertType = "SERVICE_OVERCONSUMPTION"
)

// Severity ranks alerts for dashboard prioritization.
type Severity string

// Severities, lowest to highest
const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is a persisted signal raised by the engine. Alerts are never
// deleted; resolution flips is_active and stamps resolved_at.
type Alert struct {
	ID             string     `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organization_id"`
	ProjectID      string     `db:"project_id" json:"project_id"`
	Type           AlertType  `db:"alert_type" json:"alert_type"`
	Severity       Severity   `db:"severity" json:"severity"`
	MedicationID   *string    `db:"medication_id" json:"medication_id,omitempty"`
	BatchID        *string    `db:"batch_id" json:"batch_id,omitempty"`
	Message        string     `db:"message" json:"message"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	ResolvedAt     *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy     *string    `db:"resolved_by" json:"resolved_by,omitempty"`
}

// Resolve deactivates the alert and stamps when and by whom.
func (a *Alert) Resolve(by string, at time.Time) {
	a.IsActive = false
	a.ResolvedAt = &at
	if by != "" {
		a.ResolvedBy = &by
	}
}

// Condition is the desired alert state produced by one rule evaluation.
// The engine reconciles conditions against persisted alerts: one active
// alert per (scope, medication, type).
type Condition struct {
	Type         AlertType
	Severity     Severity
	MedicationID *string
	BatchID      *string
	Message      string
}

// ExpiryRiskSeverity grades an at-risk batch by its remaining shelf life.
func ExpiryRiskSeverity(riskMonths float64) Severity {
	switch {
	case riskMonths < 0.5:
		return SeverityCritical
	case riskMonths < 1:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// StockoutCondition builds the CRITICAL condition for an open period.
func StockoutCondition(medicationID string, since time.Time) Condition {
	return Condition{
		Type:         AlertStockout,
		Severity:     SeverityCritical,
		MedicationID: &medicationID,
		Message:      fmt.Sprintf("medication out of stock since %s", since.Format("2006-01-02")),
	}
}

// PreStockoutCondition builds the HIGH condition for a predicted exhaustion.
func PreStockoutCondition(medicationID string, daysOfCover float64) Condition {
	return Condition{
		Type:         AlertPreStockout,
		Severity:     SeverityHigh,
		MedicationID: &medicationID,
		Message:      fmt.Sprintf("stock covers %.0f days, less than the delivery delay", daysOfCover),
	}
}

// ExpiryRiskCondition builds the graded condition for an at-risk batch.
func ExpiryRiskCondition(medicationID, batchID, batchNumber string, riskMonths float64) Condition {
	return Condition{
		Type:         AlertExpiryRisk,
		Severity:     ExpiryRiskSeverity(riskMonths),
		MedicationID: &medicationID,
		BatchID:      &batchID,
		Message:      fmt.Sprintf("batch %s expires in %.1f months", batchNumber, riskMonths),
	}
}

// OverstockCondition builds the LOW condition for an excessive stock level.
func OverstockCondition(medicationID string, currentStock int) Condition {
	return Condition{
		Type:         AlertOverstock,
		Severity:     SeverityLow,
		MedicationID: &medicationID,
		Message:      fmt.Sprintf("stock level %d exceeds the coverage target", currentStock),
	}
}
