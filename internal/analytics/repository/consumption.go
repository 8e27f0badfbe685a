package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/pkg/database"
	"github.com/pharmaconnect/stock-analytics/pkg/errors"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
)

// ConsumptionRepository handles weekly consumption persistence
type ConsumptionRepository struct {
	db *database.DB
}

// NewConsumptionRepository creates a new consumption repository
func NewConsumptionRepository(db *database.DB) *ConsumptionRepository {
	return &ConsumptionRepository{db: db}
}

// RecordWeek inserts one weekly consumption record. The closed-week check
// and the insert share a transaction so a record cannot slip in after its
// week is closed. Duplicate (medication, week, year) rows surface as
// DuplicateRecordError through the unique constraint.
func (r *ConsumptionRepository) RecordWeek(ctx context.Context, sc scope.Scope, record *domain.ConsumptionRecord) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.OrganizationID = sc.OrganizationID
	record.ProjectID = sc.ProjectID

	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var closed bool
		checkQuery := `
			SELECT is_week_closed FROM consumption_records
			WHERE organization_id = $1 AND project_id = $2
			  AND medication_id = $3 AND week_number = $4 AND year = $5
			FOR UPDATE
		`
		err := tx.QueryRowxContext(ctx, checkQuery,
			sc.OrganizationID, sc.ProjectID, record.MedicationID,
			record.WeekNumber, record.Year,
		).Scan(&closed)
		switch {
		case err == sql.ErrNoRows:
			// No record yet, proceed with the insert.
		case err != nil:
			return err
		case closed:
			return errors.ClosedPeriod("consumption week is closed")
		default:
			return errors.Duplicate("consumption record for this week")
		}

		insertQuery := `
			INSERT INTO consumption_records (
				id, organization_id, project_id, medication_id,
				week_number, year, quantity_consumed, is_week_closed
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`
		err = tx.QueryRowxContext(ctx, insertQuery,
			record.ID, record.OrganizationID, record.ProjectID, record.MedicationID,
			record.WeekNumber, record.Year, record.QuantityConsumed, record.IsWeekClosed,
		).Scan(&record.CreatedAt, &record.UpdatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
		return nil
	})
}

// CloseWeek marks a week closed. Closing is one-way and idempotent; closing
// a week with no record is a NotFound so callers catch typoed weeks.
func (r *ConsumptionRepository) CloseWeek(ctx context.Context, sc scope.Scope, medicationID string, week, year int) error {
	query := `
		UPDATE consumption_records
		SET is_week_closed = TRUE, updated_at = NOW()
		WHERE organization_id = $1 AND project_id = $2
		  AND medication_id = $3 AND week_number = $4 AND year = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		sc.OrganizationID, sc.ProjectID, medicationID, week, year,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("consumption record")
	}
	return nil
}

// ListByMedication lists all records of a medication in the scope,
// newest week first
func (r *ConsumptionRepository) ListByMedication(ctx context.Context, sc scope.Scope, medicationID string) ([]domain.ConsumptionRecord, error) {
	var records []domain.ConsumptionRecord
	query := `
		SELECT * FROM consumption_records
		WHERE organization_id = $1 AND project_id = $2 AND medication_id = $3
		ORDER BY year DESC, week_number DESC
	`
	if err := r.db.SelectContext(ctx, &records, query, sc.OrganizationID, sc.ProjectID, medicationID); err != nil {
		return nil, err
	}
	return records, nil
}

// ListClosedByYear lists the closed records of a medication for one year
func (r *ConsumptionRepository) ListClosedByYear(ctx context.Context, sc scope.Scope, medicationID string, year int) ([]domain.ConsumptionRecord, error) {
	var records []domain.ConsumptionRecord
	query := `
		SELECT * FROM consumption_records
		WHERE organization_id = $1 AND project_id = $2 AND medication_id = $3
		  AND year = $4 AND is_week_closed = TRUE
		ORDER BY week_number ASC
	`
	if err := r.db.SelectContext(ctx, &records, query, sc.OrganizationID, sc.ProjectID, medicationID, year); err != nil {
		return nil, err
	}
	return records, nil
}
