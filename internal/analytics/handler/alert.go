// Package handler exposes the HTTP surface: the alert feed, manual alert
// resolution and the on-demand reports. Every handler materializes the
// tenant scope from the request context before touching a service.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/service"
	"github.com/pharmaconnect/stock-analytics/pkg/httputil"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
)

// AlertHandler handles alert feed endpoints
type AlertHandler struct {
	repo   *repository.AlertRepository
	engine *service.AlertEngine
	logger *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(repo *repository.AlertRepository, engine *service.AlertEngine, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		repo:   repo,
		engine: engine,
		logger: log,
	}
}

// List lists alerts with filtering and pagination
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, err := scope.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	filter := repository.AlertFilter{
		Type:     domain.AlertType(r.URL.Query().Get("type")),
		Severity: domain.Severity(r.URL.Query().Get("severity")),
	}
	if active := r.URL.Query().Get("active"); active != "" {
		a := active == "true"
		filter.Active = &a
	}

	alerts, total, err := h.repo.List(r.Context(), sc, filter, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, alerts, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get returns one alert
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, err := scope.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	alert, err := h.repo.GetByID(r.Context(), sc, chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, alert)
}

// Resolve manually resolves an alert
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	sc, err := scope.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	alert, err := h.engine.ResolveAlert(r.Context(), sc, chi.URLParam(r, "id"), r.Header.Get("X-User-ID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, alert)
}
