// Package repository persists and queries the analytics store. Every method
// takes the tenant scope explicitly and filters by it; nothing in this
// package reads scope out of the context.
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

// BatchRepository handles stock batch persistence
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts a received batch
func (r *BatchRepository) Create(ctx context.Context, sc scope.Scope, batch *domain.StockBatch) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	batch.OrganizationID = sc.OrganizationID
	batch.ProjectID = sc.ProjectID

	query := `
		INSERT INTO stock_batches (
			id, organization_id, project_id, medication_id, batch_number,
			quantity_ordered, quantity_delivered, unit_price, supplier,
			delivery_date, expiry_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		batch.ID, batch.OrganizationID, batch.ProjectID, batch.MedicationID,
		batch.BatchNumber, batch.QuantityOrdered, batch.QuantityDelivered,
		batch.UnitPrice, batch.Supplier, batch.DeliveryDate, batch.ExpiryDate,
	).Scan(&batch.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a batch by ID within the scope
func (r *BatchRepository) GetByID(ctx context.Context, sc scope.Scope, id string) (*domain.StockBatch, error) {
	var batch domain.StockBatch
	query := `
		SELECT * FROM stock_batches
		WHERE id = $1 AND organization_id = $2 AND project_id = $3
	`
	if err := r.db.GetContext(ctx, &batch, query, id, sc.OrganizationID, sc.ProjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// ListByMedication lists all batches of a medication in the scope
func (r *BatchRepository) ListByMedication(ctx context.Context, sc scope.Scope, medicationID string) ([]domain.StockBatch, error) {
	var batches []domain.StockBatch
	query := `
		SELECT * FROM stock_batches
		WHERE organization_id = $1 AND project_id = $2 AND medication_id = $3
		ORDER BY expiry_date ASC
	`
	if err := r.db.SelectContext(ctx, &batches, query, sc.OrganizationID, sc.ProjectID, medicationID); err != nil {
		return nil, err
	}
	return batches, nil
}

// ListByScope lists every batch in the scope, soonest expiry first
func (r *BatchRepository) ListByScope(ctx context.Context, sc scope.Scope) ([]domain.StockBatch, error) {
	var batches []domain.StockBatch
	query := `
		SELECT * FROM stock_batches
		WHERE organization_id = $1 AND project_id = $2
		ORDER BY expiry_date ASC, medication_id
	`
	if err := r.db.SelectContext(ctx, &batches, query, sc.OrganizationID, sc.ProjectID); err != nil {
		return nil, err
	}
	return batches, nil
}

// MedicationIDs returns the distinct medications with batches in the scope
func (r *BatchRepository) MedicationIDs(ctx context.Context, sc scope.Scope) ([]string, error) {
	var ids []string
	query := `
		SELECT DISTINCT medication_id FROM stock_batches
		WHERE organization_id = $1 AND project_id = $2
		ORDER BY medication_id
	`
	if err := r.db.SelectContext(ctx, &ids, query, sc.OrganizationID, sc.ProjectID); err != nil {
		return nil, err
	}
	return ids, nil
}
