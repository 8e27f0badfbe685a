package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/pkg/database"
	"github.com/pharmaconnect/stock-analytics/pkg/errors"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
)

// AlertRepository handles alert persistence. Only the alert engine writes
// through this repository; the handler surface is read plus manual resolve.
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new active alert
func (r *AlertRepository) Create(ctx context.Context, sc scope.Scope, alert *domain.Alert) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	alert.OrganizationID = sc.OrganizationID
	alert.ProjectID = sc.ProjectID
	alert.IsActive = true

	query := `
		INSERT INTO alerts (
			id, organization_id, project_id, alert_type, severity,
			medication_id, batch_id, message, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		alert.ID, alert.OrganizationID, alert.ProjectID, alert.Type,
		alert.Severity, alert.MedicationID, alert.BatchID, alert.Message,
	).Scan(&alert.CreatedAt, &alert.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets an alert by ID within the scope
func (r *AlertRepository) GetByID(ctx context.Context, sc scope.Scope, id string) (*domain.Alert, error) {
	var alert domain.Alert
	query := `
		SELECT * FROM alerts
		WHERE id = $1 AND organization_id = $2 AND project_id = $3
	`
	if err := r.db.GetContext(ctx, &alert, query, id, sc.OrganizationID, sc.ProjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("alert")
		}
		return nil, err
	}
	return &alert, nil
}

// GetActiveByCondition returns the active alert for a (medication, type)
// pair, nil when none exists. This is the dedup lookup.
func (r *AlertRepository) GetActiveByCondition(ctx context.Context, sc scope.Scope, alertType domain.AlertType, medicationID *string) (*domain.Alert, error) {
	var alert domain.Alert
	query := `
		SELECT * FROM alerts
		WHERE organization_id = $1 AND project_id = $2 AND alert_type = $3
		  AND medication_id IS NOT DISTINCT FROM $4
		  AND is_active = TRUE
	`
	err := r.db.GetContext(ctx, &alert, query, sc.OrganizationID, sc.ProjectID, alertType, medicationID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListActiveByType lists the active alerts of one type in the scope
func (r *AlertRepository) ListActiveByType(ctx context.Context, sc scope.Scope, alertType domain.AlertType) ([]domain.Alert, error) {
	var alerts []domain.Alert
	query := `
		SELECT * FROM alerts
		WHERE organization_id = $1 AND project_id = $2 AND alert_type = $3
		  AND is_active = TRUE
	`
	if err := r.db.SelectContext(ctx, &alerts, query, sc.OrganizationID, sc.ProjectID, alertType); err != nil {
		return nil, err
	}
	return alerts, nil
}

// AlertFilter narrows List results
type AlertFilter struct {
	Type     domain.AlertType
	Severity domain.Severity
	Active   *bool
}

// List lists alerts with filtering and pagination, highest severity first
func (r *AlertRepository) List(ctx context.Context, sc scope.Scope, filter AlertFilter, page, perPage int) ([]domain.Alert, int64, error) {
	args := []interface{}{sc.OrganizationID, sc.ProjectID}
	where := ` WHERE organization_id = $1 AND project_id = $2`

	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(" AND alert_type = $%d", len(args))
	}
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		where += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		where += fmt.Sprintf(" AND is_active = $%d", len(args))
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM alerts`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT * FROM alerts` + where + `
		ORDER BY CASE severity
			WHEN 'CRITICAL' THEN 0
			WHEN 'HIGH' THEN 1
			WHEN 'MEDIUM' THEN 2
			ELSE 3
		END, created_at DESC`

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	args = append(args, perPage, (page-1)*perPage)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var alerts []domain.Alert
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// Update rewrites severity, message and batch reference of an existing
// alert in place
func (r *AlertRepository) Update(ctx context.Context, sc scope.Scope, alert *domain.Alert) error {
	query := `
		UPDATE alerts
		SET severity = $4, message = $5, batch_id = $6, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND project_id = $3
	`
	result, err := r.db.ExecContext(ctx, query,
		alert.ID, sc.OrganizationID, sc.ProjectID, alert.Severity, alert.Message, alert.BatchID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("alert")
	}
	return nil
}

// Resolve deactivates an alert and stamps the resolution. Resolving an
// already resolved alert is a NotFound, keeping the operation idempotence
// visible to the caller.
func (r *AlertRepository) Resolve(ctx context.Context, sc scope.Scope, id, resolvedBy string) (*domain.Alert, error) {
	var by *string
	if resolvedBy != "" {
		by = &resolvedBy
	}

	var alert domain.Alert
	query := `
		UPDATE alerts
		SET is_active = FALSE, resolved_at = NOW(), resolved_by = $4, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND project_id = $3
		  AND is_active = TRUE
		RETURNING *
	`
	err := r.db.GetContext(ctx, &alert, query, id, sc.OrganizationID, sc.ProjectID, by)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("active alert")
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}
