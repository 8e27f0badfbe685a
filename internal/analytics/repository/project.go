package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/pkg/database"
	"github.com/pharmaconnect/stock-analytics/pkg/errors"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
	"github.com/shopspring/decimal"
)

// Project is a registered analytics scope with its reorder policy
type Project struct {
	OrganizationID       string          `db:"organization_id" json:"organization_id"`
	ProjectID            string          `db:"project_id" json:"project_id"`
	Name                 string          `db:"name" json:"name"`
	OrderFrequencyMonths int             `db:"order_frequency_months" json:"order_frequency_months"`
	DeliveryDelayMonths  decimal.Decimal `db:"delivery_delay_months" json:"delivery_delay_months"`
	BufferStockMonths    decimal.Decimal `db:"buffer_stock_months" json:"buffer_stock_months"`
	LastOrderDate        *time.Time      `db:"last_order_date" json:"last_order_date,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// Policy extracts the reorder policy the calculator consumes
func (p *Project) Policy() domain.ReorderPolicy {
	return domain.ReorderPolicy{
		OrderFrequencyMonths: p.OrderFrequencyMonths,
		DeliveryDelayMonths:  p.DeliveryDelayMonths,
		BufferStockMonths:    p.BufferStockMonths,
		LastOrderDate:        p.LastOrderDate,
	}
}

// ProjectRepository handles project policy persistence
type ProjectRepository struct {
	db *database.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *database.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Get returns the project registered under the scope
func (r *ProjectRepository) Get(ctx context.Context, sc scope.Scope) (*Project, error) {
	var project Project
	query := `
		SELECT * FROM projects
		WHERE organization_id = $1 AND project_id = $2
	`
	if err := r.db.GetContext(ctx, &project, query, sc.OrganizationID, sc.ProjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("project")
		}
		return nil, err
	}
	return &project, nil
}

// Upsert registers a project or refreshes its policy
func (r *ProjectRepository) Upsert(ctx context.Context, sc scope.Scope, project *Project) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	project.OrganizationID = sc.OrganizationID
	project.ProjectID = sc.ProjectID

	query := `
		INSERT INTO projects (
			organization_id, project_id, name, order_frequency_months,
			delivery_delay_months, buffer_stock_months, last_order_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (organization_id, project_id) DO UPDATE SET
			name = EXCLUDED.name,
			order_frequency_months = EXCLUDED.order_frequency_months,
			delivery_delay_months = EXCLUDED.delivery_delay_months,
			buffer_stock_months = EXCLUDED.buffer_stock_months,
			last_order_date = EXCLUDED.last_order_date,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		project.OrganizationID, project.ProjectID, project.Name,
		project.OrderFrequencyMonths, project.DeliveryDelayMonths,
		project.BufferStockMonths, project.LastOrderDate,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
}

// ListScopes enumerates every registered scope for the scheduler
func (r *ProjectRepository) ListScopes(ctx context.Context) ([]scope.Scope, error) {
	var rows []struct {
		OrganizationID string `db:"organization_id"`
		ProjectID      string `db:"project_id"`
	}
	query := `SELECT organization_id, project_id FROM projects ORDER BY organization_id, project_id`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	scopes := make([]scope.Scope, 0, len(rows))
	for _, row := range rows {
		scopes = append(scopes, scope.New(row.OrganizationID, row.ProjectID))
	}
	return scopes, nil
}
