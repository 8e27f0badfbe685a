package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/pkg/database"
	"github.com/pharmaconnect/stock-analytics/pkg/errors"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
)

// StockoutRepository handles stockout period persistence
type StockoutRepository struct {
	db *database.DB
}

// NewStockoutRepository creates a new stockout repository
func NewStockoutRepository(db *database.DB) *StockoutRepository {
	return &StockoutRepository{db: db}
}

// GetOpen returns the open period for a medication, nil when there is none
func (r *StockoutRepository) GetOpen(ctx context.Context, sc scope.Scope, medicationID string) (*domain.StockoutPeriod, error) {
	var period domain.StockoutPeriod
	query := `
		SELECT * FROM stockout_periods
		WHERE organization_id = $1 AND project_id = $2 AND medication_id = $3
		  AND end_date IS NULL
	`
	err := r.db.GetContext(ctx, &period, query, sc.OrganizationID, sc.ProjectID, medicationID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &period, nil
}

// Open starts a new stockout period. The partial unique index guards the
// one-open-period invariant even if two evaluations race.
func (r *StockoutRepository) Open(ctx context.Context, sc scope.Scope, medicationID string, startDate time.Time) (*domain.StockoutPeriod, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	period := &domain.StockoutPeriod{
		ID:             uuid.New().String(),
		OrganizationID: sc.OrganizationID,
		ProjectID:      sc.ProjectID,
		MedicationID:   medicationID,
		StartDate:      startDate,
	}

	query := `
		INSERT INTO stockout_periods (
			id, organization_id, project_id, medication_id, start_date
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		period.ID, period.OrganizationID, period.ProjectID,
		period.MedicationID, period.StartDate,
	).Scan(&period.CreatedAt, &period.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}
	return period, nil
}

// Close persists a closed period computed by the domain
func (r *StockoutRepository) Close(ctx context.Context, sc scope.Scope, period *domain.StockoutPeriod) error {
	if period.IsOpen() {
		return errors.BadRequest("period has no end date")
	}

	query := `
		UPDATE stockout_periods
		SET end_date = $4, days_duration = $5, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND project_id = $3
		  AND end_date IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		period.ID, sc.OrganizationID, sc.ProjectID,
		period.EndDate, period.DaysDuration,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("open stockout period")
	}
	return nil
}

// ListByMedication lists a medication's stockout history, newest first
func (r *StockoutRepository) ListByMedication(ctx context.Context, sc scope.Scope, medicationID string) ([]domain.StockoutPeriod, error) {
	var periods []domain.StockoutPeriod
	query := `
		SELECT * FROM stockout_periods
		WHERE organization_id = $1 AND project_id = $2 AND medication_id = $3
		ORDER BY start_date DESC
	`
	if err := r.db.SelectContext(ctx, &periods, query, sc.OrganizationID, sc.ProjectID, medicationID); err != nil {
		return nil, err
	}
	return periods, nil
}

// CountOpen counts the open periods in the scope
func (r *StockoutRepository) CountOpen(ctx context.Context, sc scope.Scope) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM stockout_periods
		WHERE organization_id = $1 AND project_id = $2 AND end_date IS NULL
	`
	if err := r.db.GetContext(ctx, &count, query, sc.OrganizationID, sc.ProjectID); err != nil {
		return 0, err
	}
	return count, nil
}
