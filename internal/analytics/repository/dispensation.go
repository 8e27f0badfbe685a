package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/pkg/database"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
)

// DispensationRepository handles dispensation persistence and the
// aggregates the rate rules and stock position need
type DispensationRepository struct {
	db *database.DB
}

// NewDispensationRepository creates a new dispensation repository
func NewDispensationRepository(db *database.DB) *DispensationRepository {
	return &DispensationRepository{db: db}
}

// Create inserts a dispensation
func (r *DispensationRepository) Create(ctx context.Context, sc scope.Scope, d *domain.Dispensation) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.OrganizationID = sc.OrganizationID
	d.ProjectID = sc.ProjectID

	query := `
		INSERT INTO dispensations (
			id, organization_id, project_id, medication_id, quantity,
			is_antibiotic, is_antimalarial, service, dispensed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		d.ID, d.OrganizationID, d.ProjectID, d.MedicationID, d.Quantity,
		d.IsAntibiotic, d.IsAntimalarial, d.Service, d.DispensedAt,
	).Scan(&d.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// DispensedTotal sums the dispensed quantity of a medication over all time
func (r *DispensationRepository) DispensedTotal(ctx context.Context, sc scope.Scope, medicationID string) (int, error) {
	var total int
	query := `
		SELECT COALESCE(SUM(quantity), 0) FROM dispensations
		WHERE organization_id = $1 AND project_id = $2 AND medication_id = $3
	`
	if err := r.db.GetContext(ctx, &total, query, sc.OrganizationID, sc.ProjectID, medicationID); err != nil {
		return 0, err
	}
	return total, nil
}

// StatsSince aggregates the classification counts over the analysis window
func (r *DispensationRepository) StatsSince(ctx context.Context, sc scope.Scope, since time.Time) (domain.DispensationStats, error) {
	stats := domain.DispensationStats{ByService: make(map[string]int)}

	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_antibiotic) AS antibiotic,
			COUNT(*) FILTER (WHERE is_antimalarial) AS antimalarial
		FROM dispensations
		WHERE organization_id = $1 AND project_id = $2 AND dispensed_at >= $3
	`
	row := r.db.QueryRowxContext(ctx, query, sc.OrganizationID, sc.ProjectID, since)
	if err := row.Scan(&stats.Total, &stats.Antibiotic, &stats.Antimalarial); err != nil {
		return stats, err
	}

	serviceQuery := `
		SELECT service, COUNT(*) FROM dispensations
		WHERE organization_id = $1 AND project_id = $2 AND dispensed_at >= $3
		  AND service IS NOT NULL
		GROUP BY service
	`
	rows, err := r.db.QueryxContext(ctx, serviceQuery, sc.OrganizationID, sc.ProjectID, since)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var service string
		var count int
		if err := rows.Scan(&service, &count); err != nil {
			return stats, err
		}
		stats.ByService[service] = count
	}
	return stats, rows.Err()
}
