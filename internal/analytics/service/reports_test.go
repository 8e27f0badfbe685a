package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/service"
	"github.com/pharmaconnect/stock-analytics/pkg/config"
	"github.com/pharmaconnect/stock-analytics/pkg/database"
	"github.com/pharmaconnect/stock-analytics/pkg/errors"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
	"github.com/pharmaconnect/stock-analytics/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReportService(db *database.DB) *service.ReportService {
	log := testLogger()
	consumption := service.NewConsumptionService(repository.NewConsumptionRepository(db), 4, log)
	position := service.NewPositionService(
		repository.NewBatchRepository(db),
		repository.NewDispensationRepository(db),
		consumption,
		log,
	)
	return service.NewReportService(
		repository.NewProjectRepository(db),
		repository.NewBatchRepository(db),
		repository.NewStockoutRepository(db),
		repository.NewCountRepository(db),
		repository.NewAlertRepository(db),
		repository.NewDispensationRepository(db),
		position,
		consumption,
		config.AnalyticsConfig{DispensationWindowDays: 30},
		log,
	)
}

func TestReception_AverageSkipsUnorderedBatches(t *testing.T) {
	mockDB, db := newMockService(t)
	svc := newReportService(db)
	sc := scope.New("org-1", "proj-1")

	now := time.Now()
	expiry := day(2026, time.January, 1)
	mockDB.ExpectQuery("SELECT * FROM stock_batches").
		WillReturnRows(testutil.MockRows(batchColumns()...).
			AddRow("batch-1", "org-1", "proj-1", "med-1", "LOT-0001",
				100, 80, nil, nil, now, expiry, now).
			AddRow("batch-2", "org-1", "proj-1", "med-1", "LOT-0002",
				0, 50, nil, nil, now, expiry, now))

	report, err := svc.Reception(context.Background(), sc)
	require.NoError(t, err)
	assert.InDelta(t, 80.0, report.AverageRate, 0.001)
	require.Len(t, report.Batches, 2)
	assert.InDelta(t, 80.0, report.Batches[0].ReceptionRate, 0.001)
	assert.Zero(t, report.Batches[1].ReceptionRate)
	mockDB.ExpectationsWereMet(t)
}

func TestExpiry_SplitsExpiredAndAtRisk(t *testing.T) {
	mockDB, db := newMockService(t)
	svc := newReportService(db)
	sc := scope.New("org-1", "proj-1")

	asOf := day(2024, time.June, 1)
	now := time.Now()
	mockDB.ExpectQuery("SELECT * FROM stock_batches").
		WillReturnRows(testutil.MockRows(batchColumns()...).
			AddRow("batch-1", "org-1", "proj-1", "med-1", "LOT-0001",
				100, 100, nil, nil, now, day(2024, time.May, 1), now).
			AddRow("batch-2", "org-1", "proj-1", "med-1", "LOT-0002",
				100, 100, nil, nil, now, day(2024, time.July, 1), now).
			AddRow("batch-3", "org-1", "proj-1", "med-1", "LOT-0003",
				100, 100, nil, nil, now, day(2025, time.June, 1), now))

	report, err := svc.Expiry(context.Background(), sc, asOf)
	require.NoError(t, err)
	require.Len(t, report.Expired, 1)
	require.Len(t, report.AtRisk, 1)
	assert.Equal(t, "batch-1", report.Expired[0].BatchID)
	assert.Equal(t, "batch-2", report.AtRisk[0].BatchID)
	assert.Less(t, report.AtRisk[0].RiskMonths, 2.0)
	mockDB.ExpectationsWereMet(t)
}

func TestVariance_RejectsBadMonth(t *testing.T) {
	_, db := newMockService(t)
	svc := newReportService(db)
	sc := scope.New("org-1", "proj-1")

	_, err := svc.Variance(context.Background(), sc, 13, 2024)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestVariance_ComputesEntries(t *testing.T) {
	mockDB, db := newMockService(t)
	svc := newReportService(db)
	sc := scope.New("org-1", "proj-1")

	now := time.Now()
	mockDB.ExpectQuery("SELECT * FROM physical_counts").
		WillReturnRows(testutil.MockRows(
			"id", "organization_id", "project_id", "medication_id", "month", "year",
			"theoretical_stock", "physical_stock", "batch_id", "expiry_date",
			"counted_at", "created_at",
		).AddRow("count-1", "org-1", "proj-1", "med-1", 6, 2024, 120, 100, nil, nil, now, now))

	report, err := svc.Variance(context.Background(), sc, 6, 2024)
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, 20, report.Entries[0].Variance)
	assert.InDelta(t, 20.0, report.Entries[0].VariancePercentage, 0.001)
	mockDB.ExpectationsWereMet(t)
}
