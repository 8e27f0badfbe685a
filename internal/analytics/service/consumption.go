// Package service implements the analytic operations over the repositories:
// consumption aggregation, stock position evaluation, stockout tracking,
// alert evaluation and the periodic scheduler.
package service

import (
	"context"
	"time"

	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/pkg/errors"
	"github.com/pharmaconnect/stock-analytics/pkg/httputil"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
)

// RecordWeekInput is a weekly consumption submission
type RecordWeekInput struct {
	MedicationID string `json:"medication_id" validate:"required,uuid"`
	WeekNumber   int    `json:"week_number" validate:"required,gte=1,lte=53"`
	Year         int    `json:"year" validate:"required,gte=2000,lte=2100"`
	Quantity     int    `json:"quantity" validate:"gte=0"`
}

// ConsumptionService rolls weekly consumption into monthly averages
type ConsumptionService struct {
	consumptionRepo *repository.ConsumptionRepository
	windowMonths    int
	logger          *logger.Logger
}

// NewConsumptionService creates a new consumption service
func NewConsumptionService(consumptionRepo *repository.ConsumptionRepository, windowMonths int, log *logger.Logger) *ConsumptionService {
	return &ConsumptionService{
		consumptionRepo: consumptionRepo,
		windowMonths:    windowMonths,
		logger:          log,
	}
}

// RecordWeek validates and stores one weekly consumption figure
func (s *ConsumptionService) RecordWeek(ctx context.Context, sc scope.Scope, input RecordWeekInput) (*domain.ConsumptionRecord, error) {
	if err := httputil.Validate(input); err != nil {
		return nil, err
	}

	record := &domain.ConsumptionRecord{
		MedicationID:     input.MedicationID,
		WeekNumber:       input.WeekNumber,
		Year:             input.Year,
		QuantityConsumed: input.Quantity,
	}
	if err := s.consumptionRepo.RecordWeek(ctx, sc, record); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("medication_id", record.MedicationID).
		Int("week", record.WeekNumber).
		Int("year", record.Year).
		Msg("consumption week recorded")

	return record, nil
}

// CloseWeek freezes a week for trend computation
func (s *ConsumptionService) CloseWeek(ctx context.Context, sc scope.Scope, medicationID string, week, year int) error {
	if week < 1 || week > 53 {
		return errors.Validation(map[string]string{"week_number": "must be between 1 and 53"})
	}
	if err := s.consumptionRepo.CloseWeek(ctx, sc, medicationID, week, year); err != nil {
		return err
	}

	s.logger.Info().
		Str("medication_id", medicationID).
		Int("week", week).
		Int("year", year).
		Msg("consumption week closed")
	return nil
}

// MonthlyAverage computes the CMM over the configured window. Zero means
// insufficient data, not zero consumption.
func (s *ConsumptionService) MonthlyAverage(ctx context.Context, sc scope.Scope, medicationID string, asOf time.Time) (float64, error) {
	records, err := s.consumptionRepo.ListByMedication(ctx, sc, medicationID)
	if err != nil {
		return 0, err
	}
	return domain.MonthlyAverage(records, s.windowMonths, asOf), nil
}

// WeeklySeries returns the closed weekly series for one year
func (s *ConsumptionService) WeeklySeries(ctx context.Context, sc scope.Scope, medicationID string, year int) ([]domain.WeeklySeries, error) {
	records, err := s.consumptionRepo.ListClosedByYear(ctx, sc, medicationID, year)
	if err != nil {
		return nil, err
	}
	return domain.ClosedSeries(records, year), nil
}
