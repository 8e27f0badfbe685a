package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/pkg/database"
	"github.com/pharmaconnect/stock-analytics/pkg/errors"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
)

// CountRepository handles physical count persistence
type CountRepository struct {
	db *database.DB
}

// NewCountRepository creates a new count repository
func NewCountRepository(db *database.DB) *CountRepository {
	return &CountRepository{db: db}
}

// Create inserts a monthly physical count
func (r *CountRepository) Create(ctx context.Context, sc scope.Scope, count *domain.PhysicalCount) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if count.ID == "" {
		count.ID = uuid.New().String()
	}
	count.OrganizationID = sc.OrganizationID
	count.ProjectID = sc.ProjectID

	query := `
		INSERT INTO physical_counts (
			id, organization_id, project_id, medication_id, month, year,
			theoretical_stock, physical_stock, batch_id, expiry_date, counted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		count.ID, count.OrganizationID, count.ProjectID, count.MedicationID,
		count.Month, count.Year, count.TheoreticalStock, count.PhysicalStock,
		count.BatchID, count.ExpiryDate, count.CountedAt,
	).Scan(&count.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByMonth gets the count of a medication for one month
func (r *CountRepository) GetByMonth(ctx context.Context, sc scope.Scope, medicationID string, month, year int) (*domain.PhysicalCount, error) {
	var count domain.PhysicalCount
	query := `
		SELECT * FROM physical_counts
		WHERE organization_id = $1 AND project_id = $2 AND medication_id = $3
		  AND month = $4 AND year = $5
	`
	if err := r.db.GetContext(ctx, &count, query, sc.OrganizationID, sc.ProjectID, medicationID, month, year); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("physical count")
		}
		return nil, err
	}
	return &count, nil
}

// ListByPeriod lists all counts in the scope for one month, for the
// variance report
func (r *CountRepository) ListByPeriod(ctx context.Context, sc scope.Scope, month, year int) ([]domain.PhysicalCount, error) {
	var counts []domain.PhysicalCount
	query := `
		SELECT * FROM physical_counts
		WHERE organization_id = $1 AND project_id = $2 AND month = $3 AND year = $4
		ORDER BY medication_id
	`
	if err := r.db.SelectContext(ctx, &counts, query, sc.OrganizationID, sc.ProjectID, month, year); err != nil {
		return nil, err
	}
	return counts, nil
}
