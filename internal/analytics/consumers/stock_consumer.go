// Package consumers ingests the stock movement events emitted by the CRUD
// collaborator and feeds them into the analytics store.
package consumers

import (
	"context"
	"time"

	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/service"
	"github.com/pharmaconnect/stock-analytics/pkg/errors"
	"github.com/pharmaconnect/stock-analytics/pkg/httputil"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/messaging"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
	"github.com/shopspring/decimal"
)

// StockEventConsumer consumes stock movement events. Each handler validates
// the payload, persists it, and re-evaluates the scope so alerts follow the
// data without waiting for the next scheduler tick.
type StockEventConsumer struct {
	consumer         *messaging.Consumer
	batchRepo        *repository.BatchRepository
	countRepo        *repository.CountRepository
	dispensationRepo *repository.DispensationRepository
	consumption      *service.ConsumptionService
	position         *service.PositionService
	engine           *service.AlertEngine
	logger           *logger.Logger
}

// NewStockEventConsumer creates a new stock event consumer
func NewStockEventConsumer(
	rmq *messaging.RabbitMQ,
	batchRepo *repository.BatchRepository,
	countRepo *repository.CountRepository,
	dispensationRepo *repository.DispensationRepository,
	consumption *service.ConsumptionService,
	position *service.PositionService,
	engine *service.AlertEngine,
	log *logger.Logger,
) (*StockEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "analytics-service.stock-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeStockEvents, "stock.#"); err != nil {
		return nil, err
	}

	c := &StockEventConsumer{
		consumer:         consumer,
		batchRepo:        batchRepo,
		countRepo:        countRepo,
		dispensationRepo: dispensationRepo,
		consumption:      consumption,
		position:         position,
		engine:           engine,
		logger:           log,
	}

	consumer.RegisterHandler(messaging.EventBatchReceived, c.handleBatchReceived)
	consumer.RegisterHandler(messaging.EventConsumptionRecorded, c.handleConsumptionRecorded)
	consumer.RegisterHandler(messaging.EventWeekClosed, c.handleWeekClosed)
	consumer.RegisterHandler(messaging.EventCountRecorded, c.handleCountRecorded)
	consumer.RegisterHandler(messaging.EventDispensationRecorded, c.handleDispensationRecorded)

	return c, nil
}

// Start starts consuming messages
func (c *StockEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *StockEventConsumer) handleBatchReceived(ctx context.Context, event *messaging.Event) error {
	var data messaging.BatchReceivedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}
	sc := scope.New(data.OrganizationID, data.ProjectID)
	if err := c.validate(sc, data); err != nil {
		return c.drop(event, err)
	}

	batch := &domain.StockBatch{
		ID:                data.BatchID,
		MedicationID:      data.MedicationID,
		BatchNumber:       data.BatchNumber,
		QuantityOrdered:   data.QuantityOrdered,
		QuantityDelivered: data.QuantityReceived,
		Supplier:          data.Supplier,
		DeliveryDate:      data.ReceivedAt,
		ExpiryDate:        data.ExpiryDate,
	}
	if data.UnitPrice != nil {
		batch.UnitPrice = decimal.NullDecimal{Decimal: *data.UnitPrice, Valid: true}
	}

	if err := c.batchRepo.Create(ctx, sc, batch); err != nil {
		// Redelivery of an already stored batch.
		if errors.Is(err, errors.ErrDuplicate) {
			c.logger.Debug().Str("batch_id", batch.ID).Msg("batch already recorded, skipping")
			return nil
		}
		return err
	}

	c.logger.Info().
		Str("batch_id", batch.ID).
		Str("medication_id", batch.MedicationID).
		Int("quantity_delivered", batch.QuantityDelivered).
		Msg("stock batch recorded")

	c.reevaluate(ctx, sc)
	return nil
}

func (c *StockEventConsumer) handleConsumptionRecorded(ctx context.Context, event *messaging.Event) error {
	var data messaging.ConsumptionRecordedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}
	sc := scope.New(data.OrganizationID, data.ProjectID)
	if err := c.validate(sc, data); err != nil {
		return c.drop(event, err)
	}

	_, err := c.consumption.RecordWeek(ctx, sc, service.RecordWeekInput{
		MedicationID: data.MedicationID,
		WeekNumber:   data.WeekNumber,
		Year:         data.Year,
		Quantity:     data.Quantity,
	})
	if err != nil {
		if errors.Is(err, errors.ErrDuplicate) {
			c.logger.Debug().
				Str("medication_id", data.MedicationID).
				Int("week", data.WeekNumber).
				Msg("consumption week already recorded, skipping")
			return nil
		}
		if errors.Is(err, errors.ErrClosedPeriod) {
			return c.drop(event, err)
		}
		return err
	}

	c.reevaluate(ctx, sc)
	return nil
}

func (c *StockEventConsumer) handleWeekClosed(ctx context.Context, event *messaging.Event) error {
	var data messaging.WeekClosedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}
	sc := scope.New(data.OrganizationID, data.ProjectID)
	if err := c.validate(sc, data); err != nil {
		return c.drop(event, err)
	}

	err := c.consumption.CloseWeek(ctx, sc, data.MedicationID, data.WeekNumber, data.Year)
	if err != nil {
		// No record for that week: nothing to freeze.
		if errors.Is(err, errors.ErrNotFound) {
			return c.drop(event, err)
		}
		return err
	}

	c.reevaluate(ctx, sc)
	return nil
}

func (c *StockEventConsumer) handleCountRecorded(ctx context.Context, event *messaging.Event) error {
	var data messaging.CountRecordedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}
	sc := scope.New(data.OrganizationID, data.ProjectID)
	if err := c.validate(sc, data); err != nil {
		return c.drop(event, err)
	}

	// The theoretical level is frozen at ingestion time so the variance
	// report survives later stock movements.
	position, err := c.position.Evaluate(ctx, sc, data.MedicationID, data.CountedAt)
	if err != nil {
		return err
	}

	count := &domain.PhysicalCount{
		ID:               data.CountID,
		MedicationID:     data.MedicationID,
		Month:            data.Month,
		Year:             data.Year,
		TheoreticalStock: position.CurrentStock,
		PhysicalStock:    data.QuantityCounted,
		CountedAt:        data.CountedAt,
	}
	if err := c.countRepo.Create(ctx, sc, count); err != nil {
		if errors.Is(err, errors.ErrDuplicate) {
			c.logger.Debug().Str("count_id", count.ID).Msg("physical count already recorded, skipping")
			return nil
		}
		return err
	}

	c.logger.Info().
		Str("medication_id", count.MedicationID).
		Int("month", count.Month).
		Int("variance", count.Variance()).
		Msg("physical count recorded")

	c.reevaluate(ctx, sc)
	return nil
}

func (c *StockEventConsumer) handleDispensationRecorded(ctx context.Context, event *messaging.Event) error {
	var data messaging.DispensationRecordedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}
	sc := scope.New(data.OrganizationID, data.ProjectID)
	if err := c.validate(sc, data); err != nil {
		return c.drop(event, err)
	}

	dispensation := &domain.Dispensation{
		ID:             data.DispensationID,
		MedicationID:   data.MedicationID,
		Quantity:       data.Quantity,
		IsAntibiotic:   data.IsAntibiotic,
		IsAntimalarial: data.IsAntimalarial,
		Service:        data.Service,
		DispensedAt:    data.DispensedAt,
	}
	if err := c.dispensationRepo.Create(ctx, sc, dispensation); err != nil {
		if errors.Is(err, errors.ErrDuplicate) {
			c.logger.Debug().Str("dispensation_id", dispensation.ID).Msg("dispensation already recorded, skipping")
			return nil
		}
		return err
	}

	c.reevaluate(ctx, sc)
	return nil
}

// validate checks the scope and the payload constraints
func (c *StockEventConsumer) validate(sc scope.Scope, payload interface{}) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	return httputil.Validate(payload)
}

// drop acks a permanently unprocessable message; requeueing cannot fix it
func (c *StockEventConsumer) drop(event *messaging.Event, err error) error {
	c.logger.Warn().
		Err(err).
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Msg("dropping unprocessable stock event")
	return nil
}

// reevaluate re-runs the alert rules for the scope. Failures are logged,
// never bubbled: the write already succeeded and the scheduler catches up.
func (c *StockEventConsumer) reevaluate(ctx context.Context, sc scope.Scope) {
	if err := c.engine.EvaluateAll(ctx, sc, time.Now()); err != nil {
		c.logger.Warn().
			Err(err).
			Str("organization_id", sc.OrganizationID).
			Str("project_id", sc.ProjectID).
			Msg("post-ingest evaluation failed")
	}
}
