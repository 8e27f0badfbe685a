package domain

import (
	"fmt"
	"time"
)

// Dispensation is one dispensing act reported by the CRUD layer, tagged
// with the classifications the rate rules need.
type Dispensation struct {
	ID             string    `db:"id" json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	ProjectID      string    `db:"project_id" json:"project_id"`
	MedicationID   string    `db:"medication_id" json:"medication_id"`
	Quantity       int       `db:"quantity" json:"quantity"`
	IsAntibiotic   bool      `db:"is_antibiotic" json:"is_antibiotic"`
	IsAntimalarial bool      `db:"is_antimalarial" json:"is_antimalarial"`
	Service        *string   `db:"service" json:"service,omitempty"`
	DispensedAt    time.Time `db:"dispensed_at" json:"dispensed_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// DispensationStats aggregates dispensation counts over an analysis window.
type DispensationStats struct {
	Total        int            `json:"total"`
	Antibiotic   int            `json:"antibiotic"`
	Antimalarial int            `json:"antimalarial"`
	ByService    map[string]int `json:"by_service"`
}

// Rate returns part/total as a percentage, 0 when the window is empty.
func (s *DispensationStats) Rate(part int) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(part) / float64(s.Total) * 100
}

// AntibioticRate is the percentage of antibiotic dispensations.
func (s *DispensationStats) AntibioticRate() float64 {
	return s.Rate(s.Antibiotic)
}

// AntimalarialRate is the percentage of antimalarial dispensations.
func (s *DispensationStats) AntimalarialRate() float64 {
	return s.Rate(s.Antimalarial)
}

// RateConditions evaluates the configured percentage thresholds against the
// window and returns a condition per exceeded rule. Thresholds come from
// configuration, never from code.
func RateConditions(stats DispensationStats, antibioticPct, malariaPct, servicePct float64) []Condition {
	conditions := make([]Condition, 0)

	if rate := stats.AntibioticRate(); rate > antibioticPct && antibioticPct > 0 {
		conditions = append(conditions, Condition{
			Type:     AlertAntibioticOveruse,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("antibiotics are %.1f%% of dispensations (threshold %.0f%%)", rate, antibioticPct),
		})
	}

	if rate := stats.AntimalarialRate(); rate > malariaPct && malariaPct > 0 {
		conditions = append(conditions, Condition{
			Type:     AlertMalariaEpidemic,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("antimalarials are %.1f%% of dispensations (threshold %.0f%%)", rate, malariaPct),
		})
	}

	for service, count := range stats.ByService {
		if rate := stats.Rate(count); rate > servicePct && servicePct > 0 {
			svc := service
			conditions = append(conditions, Condition{
				Type:     AlertServiceOverconsumption,
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("service %s accounts for %.1f%% of dispensations (threshold %.0f%%)", svc, rate, servicePct),
			})
		}
	}

	return conditions
}
