package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/pkg/config"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/messaging"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
)

// evaluatedTypes is every alert type the engine reconciles. Active alerts
// of these types with no matching condition are auto-resolved.
var evaluatedTypes = []domain.AlertType{
	domain.AlertStockout,
	domain.AlertPreStockout,
	domain.AlertExpiryRisk,
	domain.AlertOverstock,
	domain.AlertAntibioticOveruse,
	domain.AlertMalariaEpidemic,
	domain.AlertServiceOverconsumption,
}

// AlertEngine evaluates every rule against the scope's current records and
// reconciles persisted alert state. It owns the alert lifecycle: nothing
// else creates or resolves alerts.
type AlertEngine struct {
	projectRepo      *repository.ProjectRepository
	batchRepo        *repository.BatchRepository
	alertRepo        *repository.AlertRepository
	dispensationRepo *repository.DispensationRepository
	position         *PositionService
	stockouts        *StockoutTracker
	publisher        EventPublisher
	cfg              config.AnalyticsConfig
	locks            *scopeLocks
	logger           *logger.Logger
}

// NewAlertEngine creates a new alert engine
func NewAlertEngine(
	projectRepo *repository.ProjectRepository,
	batchRepo *repository.BatchRepository,
	alertRepo *repository.AlertRepository,
	dispensationRepo *repository.DispensationRepository,
	position *PositionService,
	stockouts *StockoutTracker,
	publisher EventPublisher,
	cfg config.AnalyticsConfig,
	log *logger.Logger,
) *AlertEngine {
	return &AlertEngine{
		projectRepo:      projectRepo,
		batchRepo:        batchRepo,
		alertRepo:        alertRepo,
		dispensationRepo: dispensationRepo,
		position:         position,
		stockouts:        stockouts,
		publisher:        publisher,
		cfg:              cfg,
		locks:            newScopeLocks(),
		logger:           log,
	}
}

// EvaluateAll re-runs every rule for the scope and reconciles alerts.
// Serialized per scope: stockout transitions and alert dedup are
// read-modify-write sequences. Idempotent with unchanged input.
func (e *AlertEngine) EvaluateAll(ctx context.Context, sc scope.Scope, asOf time.Time) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	lock := e.locks.get(sc.Key())
	lock.Lock()
	defer lock.Unlock()

	project, err := e.projectRepo.Get(ctx, sc)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", sc.Key(), err)
	}
	policy := project.Policy()

	conditions, failed, err := e.collectConditions(ctx, sc, policy, asOf)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", sc.Key(), err)
	}

	if err := e.reconcile(ctx, sc, conditions, failed); err != nil {
		return fmt.Errorf("reconcile %s: %w", sc.Key(), err)
	}
	return nil
}

// collectConditions runs all rules and returns the desired alert state,
// plus the set of medications whose evaluation failed. A failed medication
// produced no conditions, which says nothing about whether its alerts
// cleared, so the resolve sweep must leave them alone.
func (e *AlertEngine) collectConditions(ctx context.Context, sc scope.Scope, policy domain.ReorderPolicy, asOf time.Time) ([]domain.Condition, map[string]struct{}, error) {
	medications, err := e.batchRepo.MedicationIDs(ctx, sc)
	if err != nil {
		return nil, nil, err
	}

	conditions := make([]domain.Condition, 0)
	failed := make(map[string]struct{})
	for _, medicationID := range medications {
		medConditions, err := e.evaluateMedication(ctx, sc, medicationID, policy, asOf)
		if err != nil {
			// One broken medication must not starve the rest of the scope.
			e.logger.Error().Err(err).
				Str("medication_id", medicationID).
				Msg("medication evaluation failed")
			failed[medicationID] = struct{}{}
			continue
		}
		conditions = append(conditions, medConditions...)
	}

	window := time.Duration(e.cfg.DispensationWindowDays) * 24 * time.Hour
	stats, err := e.dispensationRepo.StatsSince(ctx, sc, asOf.Add(-window))
	if err != nil {
		return nil, nil, err
	}
	conditions = append(conditions, domain.RateConditions(stats,
		e.cfg.AntibioticOverusePercent,
		e.cfg.MalariaEpidemicPercent,
		e.cfg.ServiceOverconsumptionPercent,
	)...)

	return conditions, failed, nil
}

// evaluateMedication runs the stock rules for one medication
func (e *AlertEngine) evaluateMedication(ctx context.Context, sc scope.Scope, medicationID string, policy domain.ReorderPolicy, asOf time.Time) ([]domain.Condition, error) {
	position, err := e.position.Evaluate(ctx, sc, medicationID, asOf)
	if err != nil {
		return nil, err
	}

	openPeriod, err := e.stockouts.Evaluate(ctx, sc, medicationID, position.CurrentStock, asOf)
	if err != nil {
		return nil, err
	}

	conditions := make([]domain.Condition, 0, 4)

	if openPeriod != nil {
		conditions = append(conditions, domain.StockoutCondition(medicationID, openPeriod.StartDate))
	}

	if domain.PreStockout(position.CurrentStock, position.DaysOfCover, position.HasCover, policy) {
		conditions = append(conditions, domain.PreStockoutCondition(medicationID, position.DaysOfCover))
	}

	if domain.Overstock(position.CurrentStock, position.CMM, policy) {
		conditions = append(conditions, domain.OverstockCondition(medicationID, position.CurrentStock))
	}

	if position.CurrentStock > 0 {
		c, ok, err := e.worstExpiryRisk(ctx, sc, medicationID, asOf)
		if err != nil {
			return nil, err
		}
		if ok {
			conditions = append(conditions, c)
		}
	}

	return conditions, nil
}

// worstExpiryRisk picks the most urgent at-risk batch of a medication
func (e *AlertEngine) worstExpiryRisk(ctx context.Context, sc scope.Scope, medicationID string, asOf time.Time) (domain.Condition, bool, error) {
	batches, err := e.batchRepo.ListByMedication(ctx, sc, medicationID)
	if err != nil {
		return domain.Condition{}, false, err
	}

	var worst *domain.StockBatch
	for i := range batches {
		b := &batches[i]
		if b.Expired(asOf) || b.QuantityDelivered == 0 || !b.AtRisk(asOf) {
			continue
		}
		if worst == nil || b.ExpiryDate.Before(worst.ExpiryDate) {
			worst = b
		}
	}
	if worst == nil {
		return domain.Condition{}, false, nil
	}
	return domain.ExpiryRiskCondition(medicationID, worst.ID, worst.BatchNumber, worst.RiskMonths(asOf)), true, nil
}

// reconcile applies the desired conditions to persisted alert state:
// at most one active alert per (scope, medication, type), update in place
// when the condition persists, auto-resolve when it cleared.
func (e *AlertEngine) reconcile(ctx context.Context, sc scope.Scope, conditions []domain.Condition, failed map[string]struct{}) error {
	desired := make(map[string]domain.Condition, len(conditions))
	for _, c := range conditions {
		desired[conditionKey(c.Type, c.MedicationID)] = c
	}

	for _, c := range desired {
		active, err := e.alertRepo.GetActiveByCondition(ctx, sc, c.Type, c.MedicationID)
		if err != nil {
			return err
		}

		if active == nil {
			alert := &domain.Alert{
				Type:         c.Type,
				Severity:     c.Severity,
				MedicationID: c.MedicationID,
				BatchID:      c.BatchID,
				Message:      c.Message,
			}
			if err := e.alertRepo.Create(ctx, sc, alert); err != nil {
				return err
			}
			e.publishCreated(ctx, sc, alert)
			continue
		}

		if active.Severity != c.Severity || active.Message != c.Message || !sameBatchRef(active.BatchID, c.BatchID) {
			active.Severity = c.Severity
			active.Message = c.Message
			active.BatchID = c.BatchID
			if err := e.alertRepo.Update(ctx, sc, active); err != nil {
				return err
			}
		}
	}

	// Resolve active alerts whose condition cleared. A medication that
	// failed evaluation produced no conditions at all, so its alerts keep
	// their state until a cycle actually observes it.
	for _, alertType := range evaluatedTypes {
		active, err := e.alertRepo.ListActiveByType(ctx, sc, alertType)
		if err != nil {
			return err
		}
		for i := range active {
			a := &active[i]
			if _, ok := desired[conditionKey(a.Type, a.MedicationID)]; ok {
				continue
			}
			if a.MedicationID != nil {
				if _, ok := failed[*a.MedicationID]; ok {
					continue
				}
			}
			resolved, err := e.alertRepo.Resolve(ctx, sc, a.ID, "")
			if err != nil {
				return err
			}
			e.publishResolved(ctx, sc, resolved)
		}
	}
	return nil
}

// ResolveAlert is the manual resolution path. The alert deactivates even if
// its condition still holds; the next evaluation re-opens a fresh alert.
func (e *AlertEngine) ResolveAlert(ctx context.Context, sc scope.Scope, alertID, resolvedBy string) (*domain.Alert, error) {
	lock := e.locks.get(sc.Key())
	lock.Lock()
	defer lock.Unlock()

	alert, err := e.alertRepo.Resolve(ctx, sc, alertID, resolvedBy)
	if err != nil {
		return nil, err
	}
	e.publishResolved(ctx, sc, alert)
	return alert, nil
}

func conditionKey(alertType domain.AlertType, medicationID *string) string {
	if medicationID == nil {
		return string(alertType)
	}
	return string(alertType) + "/" + *medicationID
}

func sameBatchRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (e *AlertEngine) publishCreated(ctx context.Context, sc scope.Scope, alert *domain.Alert) {
	payload := messaging.AlertCreatedEvent{
		OrganizationID: sc.OrganizationID,
		ProjectID:      sc.ProjectID,
		AlertID:        alert.ID,
		AlertType:      string(alert.Type),
		Severity:       string(alert.Severity),
		Message:        alert.Message,
	}
	if alert.MedicationID != nil {
		payload.MedicationID = *alert.MedicationID
	}
	if err := e.publisher.Publish(ctx, messaging.EventAlertCreated, payload); err != nil {
		e.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish alert created event")
	}
}

func (e *AlertEngine) publishResolved(ctx context.Context, sc scope.Scope, alert *domain.Alert) {
	payload := messaging.AlertResolvedEvent{
		OrganizationID: sc.OrganizationID,
		ProjectID:      sc.ProjectID,
		AlertID:        alert.ID,
		AlertType:      string(alert.Type),
	}
	if alert.ResolvedAt != nil {
		payload.ResolvedAt = *alert.ResolvedAt
	}
	if alert.ResolvedBy != nil {
		payload.ResolvedBy = *alert.ResolvedBy
	}
	if err := e.publisher.Publish(ctx, messaging.EventAlertResolved, payload); err != nil {
		e.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish alert resolved event")
	}
}
