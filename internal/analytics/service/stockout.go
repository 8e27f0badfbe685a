package service

import (
	"context"
	"time"

	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/messaging"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
)

// EventPublisher is the outbound event surface the services need.
// Satisfied by events.Publisher and by the test mock.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// StockoutTracker opens and closes stockout periods from evaluated stock
// levels. Callers must hold the scope lock; the tracker itself only keeps
// the read-modify-write in one place.
type StockoutTracker struct {
	stockoutRepo *repository.StockoutRepository
	publisher    EventPublisher
	logger       *logger.Logger
}

// NewStockoutTracker creates a new stockout tracker
func NewStockoutTracker(stockoutRepo *repository.StockoutRepository, publisher EventPublisher, log *logger.Logger) *StockoutTracker {
	return &StockoutTracker{
		stockoutRepo: stockoutRepo,
		publisher:    publisher,
		logger:       log,
	}
}

// Evaluate reconciles the open period state with the current stock level.
// Idempotent: repeated calls with an unchanged level change nothing.
// Returns the open period when the medication is in stockout, nil otherwise.
func (t *StockoutTracker) Evaluate(ctx context.Context, sc scope.Scope, medicationID string, currentStock int, asOf time.Time) (*domain.StockoutPeriod, error) {
	open, err := t.stockoutRepo.GetOpen(ctx, sc, medicationID)
	if err != nil {
		return nil, err
	}

	switch {
	case currentStock == 0 && open == nil:
		period, err := t.stockoutRepo.Open(ctx, sc, medicationID, asOf)
		if err != nil {
			return nil, err
		}
		t.logger.Warn().
			Str("medication_id", medicationID).
			Time("start_date", period.StartDate).
			Msg("stockout period opened")
		t.publishOpened(ctx, sc, period)
		return period, nil

	case currentStock > 0 && open != nil:
		open.Close(asOf)
		if err := t.stockoutRepo.Close(ctx, sc, open); err != nil {
			return nil, err
		}
		t.logger.Info().
			Str("medication_id", medicationID).
			Int("days_duration", *open.DaysDuration).
			Msg("stockout period closed")
		t.publishClosed(ctx, sc, open)
		return nil, nil

	default:
		// Stock still at zero with an open period, or stocked with none.
		return open, nil
	}
}

func (t *StockoutTracker) publishOpened(ctx context.Context, sc scope.Scope, period *domain.StockoutPeriod) {
	err := t.publisher.Publish(ctx, messaging.EventStockoutOpened, messaging.StockoutOpenedEvent{
		OrganizationID: sc.OrganizationID,
		ProjectID:      sc.ProjectID,
		StockoutID:     period.ID,
		MedicationID:   period.MedicationID,
		StartDate:      period.StartDate,
	})
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to publish stockout opened event")
	}
}

func (t *StockoutTracker) publishClosed(ctx context.Context, sc scope.Scope, period *domain.StockoutPeriod) {
	err := t.publisher.Publish(ctx, messaging.EventStockoutClosed, messaging.StockoutClosedEvent{
		OrganizationID: sc.OrganizationID,
		ProjectID:      sc.ProjectID,
		StockoutID:     period.ID,
		MedicationID:   period.MedicationID,
		StartDate:      period.StartDate,
		EndDate:        *period.EndDate,
		DaysDuration:   *period.DaysDuration,
	})
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to publish stockout closed event")
	}
}
