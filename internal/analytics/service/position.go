package service

import (
	"context"
	"time"

	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
	"github.com/shopspring/decimal"
)

// PositionService evaluates the current stock position per medication
type PositionService struct {
	batchRepo        *repository.BatchRepository
	dispensationRepo *repository.DispensationRepository
	consumption      *ConsumptionService
	logger           *logger.Logger
}

// NewPositionService creates a new position service
func NewPositionService(
	batchRepo *repository.BatchRepository,
	dispensationRepo *repository.DispensationRepository,
	consumption *ConsumptionService,
	log *logger.Logger,
) *PositionService {
	return &PositionService{
		batchRepo:        batchRepo,
		dispensationRepo: dispensationRepo,
		consumption:      consumption,
		logger:           log,
	}
}

// Evaluate combines batches, dispensations and the CMM into the position of
// one medication as of the given date
func (s *PositionService) Evaluate(ctx context.Context, sc scope.Scope, medicationID string, asOf time.Time) (*domain.StockPosition, error) {
	batches, err := s.batchRepo.ListByMedication(ctx, sc, medicationID)
	if err != nil {
		return nil, err
	}

	dispensed, err := s.dispensationRepo.DispensedTotal(ctx, sc, medicationID)
	if err != nil {
		return nil, err
	}

	cmm, err := s.consumption.MonthlyAverage(ctx, sc, medicationID, asOf)
	if err != nil {
		return nil, err
	}

	stock := domain.CurrentStock(batches, dispensed, asOf)
	days, hasCover := domain.DaysOfCover(stock, cmm)

	return &domain.StockPosition{
		MedicationID: medicationID,
		CurrentStock: stock,
		CMM:          cmm,
		DaysOfCover:  days,
		HasCover:     hasCover,
	}, nil
}

// StockSummary is the scope-wide stock overview
type StockSummary struct {
	MedicationCount int             `json:"medication_count"`
	BatchCount      int             `json:"batch_count"`
	ExpiredBatches  int             `json:"expired_batches"`
	AtRiskBatches   int             `json:"at_risk_batches"`
	StockValue      decimal.Decimal `json:"stock_value"`
}

// Summarize builds the stock summary over every batch in the scope
func (s *PositionService) Summarize(ctx context.Context, sc scope.Scope, asOf time.Time) (*StockSummary, error) {
	batches, err := s.batchRepo.ListByScope(ctx, sc)
	if err != nil {
		return nil, err
	}

	summary := &StockSummary{
		BatchCount: len(batches),
		StockValue: domain.StockValue(batches, asOf),
	}

	medications := make(map[string]struct{})
	for i := range batches {
		b := &batches[i]
		medications[b.MedicationID] = struct{}{}
		switch {
		case b.Expired(asOf):
			summary.ExpiredBatches++
		case b.AtRisk(asOf):
			summary.AtRiskBatches++
		}
	}
	summary.MedicationCount = len(medications)

	return summary, nil
}
