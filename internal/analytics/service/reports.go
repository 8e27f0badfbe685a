package service

import (
	"context"
	"time"

	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/pkg/config"
	"github.com/pharmaconnect/stock-analytics/pkg/errors"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
)

// ReportService assembles read-only reports from the evaluated state
type ReportService struct {
	projectRepo      *repository.ProjectRepository
	batchRepo        *repository.BatchRepository
	stockoutRepo     *repository.StockoutRepository
	countRepo        *repository.CountRepository
	alertRepo        *repository.AlertRepository
	dispensationRepo *repository.DispensationRepository
	position         *PositionService
	consumption      *ConsumptionService
	cfg              config.AnalyticsConfig
	logger           *logger.Logger
}

// NewReportService creates a new report service
func NewReportService(
	projectRepo *repository.ProjectRepository,
	batchRepo *repository.BatchRepository,
	stockoutRepo *repository.StockoutRepository,
	countRepo *repository.CountRepository,
	alertRepo *repository.AlertRepository,
	dispensationRepo *repository.DispensationRepository,
	position *PositionService,
	consumption *ConsumptionService,
	cfg config.AnalyticsConfig,
	log *logger.Logger,
) *ReportService {
	return &ReportService{
		projectRepo:      projectRepo,
		batchRepo:        batchRepo,
		stockoutRepo:     stockoutRepo,
		countRepo:        countRepo,
		alertRepo:        alertRepo,
		dispensationRepo: dispensationRepo,
		position:         position,
		consumption:      consumption,
		cfg:              cfg,
		logger:           log,
	}
}

// MedicationReport is the full evaluated state of one medication
type MedicationReport struct {
	Position        *domain.StockPosition   `json:"position"`
	ReorderQuantity int                     `json:"reorder_quantity"`
	NextOrderDate   *time.Time              `json:"next_order_date,omitempty"`
	StockoutHistory []domain.StockoutPeriod `json:"stockout_history"`
}

// Medication evaluates the position and the reorder suggestion for one
// medication. The reorder quantity covers delivery delay plus buffer stock
// at the CMM rate, less what is on hand.
func (s *ReportService) Medication(ctx context.Context, sc scope.Scope, medicationID string, asOf time.Time) (*MedicationReport, error) {
	project, err := s.projectRepo.Get(ctx, sc)
	if err != nil {
		return nil, err
	}
	policy := project.Policy()

	position, err := s.position.Evaluate(ctx, sc, medicationID, asOf)
	if err != nil {
		return nil, err
	}

	history, err := s.stockoutRepo.ListByMedication(ctx, sc, medicationID)
	if err != nil {
		return nil, err
	}

	report := &MedicationReport{
		Position:        position,
		ReorderQuantity: domain.ReorderQuantity(position.CMM, policy, position.CurrentStock),
		StockoutHistory: history,
	}
	if policy.LastOrderDate != nil {
		next := domain.ReorderDate(policy, *policy.LastOrderDate)
		report.NextOrderDate = &next
	}
	return report, nil
}

// BatchReception is one batch's delivery performance
type BatchReception struct {
	BatchID           string  `json:"batch_id"`
	BatchNumber       string  `json:"batch_number"`
	MedicationID      string  `json:"medication_id"`
	QuantityOrdered   int     `json:"quantity_ordered"`
	QuantityDelivered int     `json:"quantity_delivered"`
	ReceptionRate     float64 `json:"reception_rate"`
}

// ReceptionReport summarizes delivery performance over the scope's batches
type ReceptionReport struct {
	AverageRate float64          `json:"average_rate"`
	Batches     []BatchReception `json:"batches"`
}

// Reception builds the reception rate report. Batches with nothing ordered
// are listed but excluded from the average.
func (s *ReportService) Reception(ctx context.Context, sc scope.Scope) (*ReceptionReport, error) {
	batches, err := s.batchRepo.ListByScope(ctx, sc)
	if err != nil {
		return nil, err
	}

	report := &ReceptionReport{Batches: make([]BatchReception, 0, len(batches))}
	var sum float64
	var rated int
	for i := range batches {
		b := &batches[i]
		rate := b.ReceptionRate()
		report.Batches = append(report.Batches, BatchReception{
			BatchID:           b.ID,
			BatchNumber:       b.BatchNumber,
			MedicationID:      b.MedicationID,
			QuantityOrdered:   b.QuantityOrdered,
			QuantityDelivered: b.QuantityDelivered,
			ReceptionRate:     rate,
		})
		if b.QuantityOrdered > 0 {
			sum += rate
			rated++
		}
	}
	if rated > 0 {
		report.AverageRate = sum / float64(rated)
	}
	return report, nil
}

// ExpiryBatch is one batch's shelf life state
type ExpiryBatch struct {
	BatchID      string  `json:"batch_id"`
	BatchNumber  string  `json:"batch_number"`
	MedicationID string  `json:"medication_id"`
	Quantity     int     `json:"quantity"`
	ExpiryDate   string  `json:"expiry_date"`
	RiskMonths   float64 `json:"risk_months"`
}

// ExpiryReport splits the scope's batches into expired and at-risk
type ExpiryReport struct {
	Expired []ExpiryBatch `json:"expired"`
	AtRisk  []ExpiryBatch `json:"at_risk"`
}

// Expiry builds the expiry risk report as of the given date
func (s *ReportService) Expiry(ctx context.Context, sc scope.Scope, asOf time.Time) (*ExpiryReport, error) {
	batches, err := s.batchRepo.ListByScope(ctx, sc)
	if err != nil {
		return nil, err
	}

	report := &ExpiryReport{
		Expired: make([]ExpiryBatch, 0),
		AtRisk:  make([]ExpiryBatch, 0),
	}
	for i := range batches {
		b := &batches[i]
		entry := ExpiryBatch{
			BatchID:      b.ID,
			BatchNumber:  b.BatchNumber,
			MedicationID: b.MedicationID,
			Quantity:     b.QuantityDelivered,
			ExpiryDate:   b.ExpiryDate.Format("2006-01-02"),
			RiskMonths:   b.RiskMonths(asOf),
		}
		switch {
		case b.Expired(asOf):
			report.Expired = append(report.Expired, entry)
		case b.AtRisk(asOf):
			report.AtRisk = append(report.AtRisk, entry)
		}
	}
	return report, nil
}

// VarianceEntry is one counted medication's deviation from the records
type VarianceEntry struct {
	MedicationID       string  `json:"medication_id"`
	TheoreticalStock   int     `json:"theoretical_stock"`
	PhysicalStock      int     `json:"physical_stock"`
	Variance           int     `json:"variance"`
	VariancePercentage float64 `json:"variance_percentage"`
}

// VarianceReport is the monthly physical count reconciliation
type VarianceReport struct {
	Month   int             `json:"month"`
	Year    int             `json:"year"`
	Entries []VarianceEntry `json:"entries"`
}

// Variance builds the count variance report for one month
func (s *ReportService) Variance(ctx context.Context, sc scope.Scope, month, year int) (*VarianceReport, error) {
	if month < 1 || month > 12 {
		return nil, errors.Validation(map[string]string{"month": "must be between 1 and 12"})
	}
	counts, err := s.countRepo.ListByPeriod(ctx, sc, month, year)
	if err != nil {
		return nil, err
	}

	report := &VarianceReport{Month: month, Year: year, Entries: make([]VarianceEntry, 0, len(counts))}
	for i := range counts {
		c := &counts[i]
		report.Entries = append(report.Entries, VarianceEntry{
			MedicationID:       c.MedicationID,
			TheoreticalStock:   c.TheoreticalStock,
			PhysicalStock:      c.PhysicalStock,
			Variance:           c.Variance(),
			VariancePercentage: c.VariancePercentage(),
		})
	}
	return report, nil
}

// DispensationReport is the rate analysis over the configured window
type DispensationReport struct {
	WindowDays       int                      `json:"window_days"`
	Stats            domain.DispensationStats `json:"stats"`
	AntibioticRate   float64                  `json:"antibiotic_rate"`
	AntimalarialRate float64                  `json:"antimalarial_rate"`
}

// Dispensations builds the dispensation rate report
func (s *ReportService) Dispensations(ctx context.Context, sc scope.Scope, asOf time.Time) (*DispensationReport, error) {
	window := time.Duration(s.cfg.DispensationWindowDays) * 24 * time.Hour
	stats, err := s.dispensationRepo.StatsSince(ctx, sc, asOf.Add(-window))
	if err != nil {
		return nil, err
	}
	return &DispensationReport{
		WindowDays:       s.cfg.DispensationWindowDays,
		Stats:            stats,
		AntibioticRate:   stats.AntibioticRate(),
		AntimalarialRate: stats.AntimalarialRate(),
	}, nil
}

// Dashboard is the scope-wide overview for the landing screen
type Dashboard struct {
	Stock            *StockSummary            `json:"stock"`
	OpenStockouts    int                      `json:"open_stockouts"`
	ActiveAlerts     int                      `json:"active_alerts"`
	AlertsByType     map[domain.AlertType]int `json:"alerts_by_type"`
	AlertsBySeverity map[domain.Severity]int  `json:"alerts_by_severity"`
}

// Overview builds the dashboard for one scope
func (s *ReportService) Overview(ctx context.Context, sc scope.Scope, asOf time.Time) (*Dashboard, error) {
	stock, err := s.position.Summarize(ctx, sc, asOf)
	if err != nil {
		return nil, err
	}

	openStockouts, err := s.stockoutRepo.CountOpen(ctx, sc)
	if err != nil {
		return nil, err
	}

	dashboard := &Dashboard{
		Stock:            stock,
		OpenStockouts:    openStockouts,
		AlertsByType:     make(map[domain.AlertType]int),
		AlertsBySeverity: make(map[domain.Severity]int),
	}
	for _, alertType := range evaluatedTypes {
		active, err := s.alertRepo.ListActiveByType(ctx, sc, alertType)
		if err != nil {
			return nil, err
		}
		if len(active) == 0 {
			continue
		}
		dashboard.ActiveAlerts += len(active)
		dashboard.AlertsByType[alertType] = len(active)
		for i := range active {
			dashboard.AlertsBySeverity[active[i].Severity]++
		}
	}
	return dashboard, nil
}
