package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/service"
	"github.com/pharmaconnect/stock-analytics/pkg/errors"
	"github.com/pharmaconnect/stock-analytics/pkg/httputil"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
)

// ReportHandler handles the on-demand report endpoints
type ReportHandler struct {
	reports     *service.ReportService
	consumption *service.ConsumptionService
	logger      *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *service.ReportService, consumption *service.ConsumptionService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		reports:     reports,
		consumption: consumption,
		logger:      log,
	}
}

// Overview returns the scope dashboard
func (h *ReportHandler) Overview(w http.ResponseWriter, r *http.Request) {
	sc, err := scope.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	dashboard, err := h.reports.Overview(r.Context(), sc, time.Now())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, dashboard)
}

// Medication returns the evaluated position and reorder suggestion of one
// medication
func (h *ReportHandler) Medication(w http.ResponseWriter, r *http.Request) {
	sc, err := scope.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	report, err := h.reports.Medication(r.Context(), sc, chi.URLParam(r, "medicationID"), time.Now())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}

// ConsumptionSeries returns the closed weekly series of one medication
func (h *ReportHandler) ConsumptionSeries(w http.ResponseWriter, r *http.Request) {
	sc, err := scope.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		httputil.Error(w, errors.BadRequest("year query parameter is required"))
		return
	}

	series, err := h.consumption.WeeklySeries(r.Context(), sc, chi.URLParam(r, "medicationID"), year)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, series)
}

// Reception returns the delivery performance report
func (h *ReportHandler) Reception(w http.ResponseWriter, r *http.Request) {
	sc, err := scope.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	report, err := h.reports.Reception(r.Context(), sc)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}

// Expiry returns the expiry risk report
func (h *ReportHandler) Expiry(w http.ResponseWriter, r *http.Request) {
	sc, err := scope.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	report, err := h.reports.Expiry(r.Context(), sc, time.Now())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}

// Variance returns the monthly physical count reconciliation
func (h *ReportHandler) Variance(w http.ResponseWriter, r *http.Request) {
	sc, err := scope.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		httputil.Error(w, errors.BadRequest("month query parameter is required"))
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		httputil.Error(w, errors.BadRequest("year query parameter is required"))
		return
	}

	report, err := h.reports.Variance(r.Context(), sc, month, year)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}

// Dispensations returns the dispensation rate analysis
func (h *ReportHandler) Dispensations(w http.ResponseWriter, r *http.Request) {
	sc, err := scope.FromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	report, err := h.reports.Dispensations(r.Context(), sc, time.Now())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}
