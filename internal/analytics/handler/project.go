package handler

import (
	"net/http"
	"time"

	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/pkg/httputil"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
	"github.com/shopspring/decimal"
)

// ProjectHandler registers scopes and their reorder policies
type ProjectHandler struct {
	repo   *repository.ProjectRepository
	logger *logger.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(repo *repository.ProjectRepository, log *logger.Logger) *ProjectHandler {
	return &ProjectHandler{
		repo:   repo,
		logger: log,
	}
}

// UpsertPolicyInput is the policy registration payload
type UpsertPolicyInput struct {
	Name                 string          `json:"name" validate:"required"`
	OrderFrequencyMonths int             `json:"order_frequency_months" validate:"required,gte=1,lte=24"`
	DeliveryDelayMonths  decimal.Decimal `json:"delivery_delay_months"`
	BufferStockMonths    decimal.Decimal `json:"buffer_stock_months"`
	LastOrderDate        *time.Time      `json:"last_order_date,omitempty"`
}

// Upsert registers the scope or refreshes its reorder policy
func (h *ProjectHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	sc, err := scope.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var input UpsertPolicyInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(input); err != nil {
		httputil.Error(w, err)
		return
	}

	project := &repository.Project{
		Name:                 input.Name,
		OrderFrequencyMonths: input.OrderFrequencyMonths,
		DeliveryDelayMonths:  input.DeliveryDelayMonths,
		BufferStockMonths:    input.BufferStockMonths,
		LastOrderDate:        input.LastOrderDate,
	}
	if err := h.repo.Upsert(r.Context(), sc, project); err != nil {
		httputil.Error(w, err)
		return
	}

	h.logger.Info().
		Str("organization_id", sc.OrganizationID).
		Str("project_id", sc.ProjectID).
		Msg("project policy updated")

	httputil.JSON(w, http.StatusOK, project)
}

// Get returns the registered policy for the scope
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, err := scope.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	project, err := h.repo.Get(r.Context(), sc)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, project)
}
