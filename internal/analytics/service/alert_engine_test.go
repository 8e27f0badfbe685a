package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/service"
	"github.com/pharmaconnect/stock-analytics/pkg/config"
	"github.com/pharmaconnect/stock-analytics/pkg/database"
	"github.com/pharmaconnect/stock-analytics/pkg/messaging"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
	"github.com/pharmaconnect/stock-analytics/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAlertEngine(db *database.DB, publisher *testutil.MockPublisher) *service.AlertEngine {
	log := testLogger()
	consumption := service.NewConsumptionService(repository.NewConsumptionRepository(db), 4, log)
	position := service.NewPositionService(
		repository.NewBatchRepository(db),
		repository.NewDispensationRepository(db),
		consumption,
		log,
	)
	tracker := service.NewStockoutTracker(repository.NewStockoutRepository(db), publisher, log)
	cfg := config.AnalyticsConfig{
		DispensationWindowDays:        30,
		AntibioticOverusePercent:      40,
		MalariaEpidemicPercent:        30,
		ServiceOverconsumptionPercent: 25,
	}
	return service.NewAlertEngine(
		repository.NewProjectRepository(db),
		repository.NewBatchRepository(db),
		repository.NewAlertRepository(db),
		repository.NewDispensationRepository(db),
		position,
		tracker,
		publisher,
		cfg,
		log,
	)
}

func expectProject(mockDB *testutil.MockDB) {
	now := time.Now()
	mockDB.ExpectQuery("SELECT * FROM projects").
		WillReturnRows(testutil.MockRows(projectColumns()...).AddRow(
			"org-1", "proj-1", "Field Hospital", 2, "1.0", "1.0", nil, now, now,
		))
}

func expectEmptyDispensationStats(mockDB *testutil.MockDB) {
	mockDB.ExpectQuery("COUNT(*) AS total").
		WillReturnRows(testutil.MockRows("total", "antibiotic", "antimalarial").AddRow(0, 0, 0))
	mockDB.ExpectQuery("SELECT service, COUNT(*) FROM dispensations").
		WillReturnRows(testutil.MockRows("service", "count"))
}

func expectNoActiveAlerts(mockDB *testutil.MockDB, types int) {
	for i := 0; i < types; i++ {
		mockDB.ExpectQuery("SELECT * FROM alerts").
			WillReturnRows(testutil.MockRows(alertColumns()...))
	}
}

func TestEvaluateAll_OpensStockoutAndCreatesAlert(t *testing.T) {
	mockDB, db := newMockService(t)
	publisher := testutil.NewMockPublisher()
	engine := newAlertEngine(db, publisher)
	sc := scope.New("org-1", "proj-1")
	asOf := day(2024, time.June, 1)
	now := time.Now()

	expectProject(mockDB)
	mockDB.ExpectQuery("SELECT DISTINCT medication_id FROM stock_batches").
		WillReturnRows(testutil.MockRows("medication_id").AddRow("med-1"))

	// Position: the only batch is expired, so the stock level is zero.
	mockDB.ExpectQuery("SELECT * FROM stock_batches").
		WillReturnRows(testutil.MockRows(batchColumns()...).AddRow(
			"batch-1", "org-1", "proj-1", "med-1", "LOT-0001",
			100, 100, nil, nil, day(2024, time.January, 1), day(2024, time.March, 1), now,
		))
	mockDB.ExpectQuery("SELECT COALESCE(SUM(quantity), 0) FROM dispensations").
		WillReturnRows(testutil.MockRows("coalesce").AddRow(0))
	mockDB.ExpectQuery("SELECT * FROM consumption_records").
		WillReturnRows(testutil.MockRows(consumptionColumns()...))

	// Stockout tracker opens a fresh period.
	mockDB.ExpectQuery("SELECT * FROM stockout_periods").WillReturnError(sql.ErrNoRows)
	mockDB.ExpectQuery("INSERT INTO stockout_periods").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))

	expectEmptyDispensationStats(mockDB)

	// Dedup lookup misses, so a new alert is created.
	mockDB.ExpectQuery("SELECT * FROM alerts").WillReturnError(sql.ErrNoRows)
	mockDB.ExpectQuery("INSERT INTO alerts").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))

	expectNoActiveAlerts(mockDB, 7)

	err := engine.EvaluateAll(context.Background(), sc, asOf)
	require.NoError(t, err)

	publisher.AssertEventPublished(t, messaging.EventStockoutOpened)
	publisher.AssertEventPublished(t, messaging.EventAlertCreated)
	require.Len(t, publisher.PublishedEvents, 2)

	var created messaging.AlertCreatedEvent
	for _, e := range publisher.PublishedEvents {
		if e.Type == messaging.EventAlertCreated {
			created = e.Payload.(messaging.AlertCreatedEvent)
		}
	}
	assert.Equal(t, string(domain.AlertStockout), created.AlertType)
	assert.Equal(t, string(domain.SeverityCritical), created.Severity)
	assert.Equal(t, "med-1", created.MedicationID)
	mockDB.ExpectationsWereMet(t)
}

func TestEvaluateAll_ResolvesClearedAlert(t *testing.T) {
	mockDB, db := newMockService(t)
	publisher := testutil.NewMockPublisher()
	engine := newAlertEngine(db, publisher)
	sc := scope.New("org-1", "proj-1")
	now := time.Now()

	expectProject(mockDB)
	mockDB.ExpectQuery("SELECT DISTINCT medication_id FROM stock_batches").
		WillReturnRows(testutil.MockRows("medication_id"))
	expectEmptyDispensationStats(mockDB)

	// A stockout alert is still active but no condition holds anymore.
	med := "med-1"
	mockDB.ExpectQuery("SELECT * FROM alerts").
		WillReturnRows(testutil.MockRows(alertColumns()...).AddRow(
			"alert-1", "org-1", "proj-1", "STOCKOUT", "CRITICAL",
			med, nil, "medication out of stock since 2024-05-01", true, now, now, nil, nil,
		))
	resolvedAt := now
	mockDB.ExpectQuery("UPDATE alerts").
		WillReturnRows(testutil.MockRows(alertColumns()...).AddRow(
			"alert-1", "org-1", "proj-1", "STOCKOUT", "CRITICAL",
			med, nil, "medication out of stock since 2024-05-01", false, now, now, resolvedAt, nil,
		))
	expectNoActiveAlerts(mockDB, 6)

	err := engine.EvaluateAll(context.Background(), sc, time.Now())
	require.NoError(t, err)

	publisher.AssertEventPublished(t, messaging.EventAlertResolved)
	require.Len(t, publisher.PublishedEvents, 1)
	payload := publisher.PublishedEvents[0].Payload.(messaging.AlertResolvedEvent)
	assert.Equal(t, "alert-1", payload.AlertID)
	mockDB.ExpectationsWereMet(t)
}

func TestEvaluateAll_UnchangedConditionCreatesNothing(t *testing.T) {
	mockDB, db := newMockService(t)
	publisher := testutil.NewMockPublisher()
	engine := newAlertEngine(db, publisher)
	sc := scope.New("org-1", "proj-1")
	asOf := day(2024, time.June, 1)
	now := time.Now()

	expectProject(mockDB)
	mockDB.ExpectQuery("SELECT DISTINCT medication_id FROM stock_batches").
		WillReturnRows(testutil.MockRows("medication_id").AddRow("med-1"))

	mockDB.ExpectQuery("SELECT * FROM stock_batches").
		WillReturnRows(testutil.MockRows(batchColumns()...).AddRow(
			"batch-1", "org-1", "proj-1", "med-1", "LOT-0001",
			100, 100, nil, nil, day(2024, time.January, 1), day(2024, time.March, 1), now,
		))
	mockDB.ExpectQuery("SELECT COALESCE(SUM(quantity), 0) FROM dispensations").
		WillReturnRows(testutil.MockRows("coalesce").AddRow(0))
	mockDB.ExpectQuery("SELECT * FROM consumption_records").
		WillReturnRows(testutil.MockRows(consumptionColumns()...))

	// The period is already open, so the tracker changes nothing.
	start := day(2024, time.May, 1)
	mockDB.ExpectQuery("SELECT * FROM stockout_periods").
		WillReturnRows(testutil.MockRows(stockoutColumns()...).AddRow(
			"period-1", "org-1", "proj-1", "med-1", start, nil, nil, now, now,
		))

	expectEmptyDispensationStats(mockDB)

	// The dedup lookup hits an identical active alert, so nothing is written.
	med := "med-1"
	mockDB.ExpectQuery("SELECT * FROM alerts").
		WillReturnRows(testutil.MockRows(alertColumns()...).AddRow(
			"alert-1", "org-1", "proj-1", "STOCKOUT", "CRITICAL",
			med, nil, "medication out of stock since 2024-05-01", true, now, now, nil, nil,
		))

	// The active stockout alert matches a desired condition and survives.
	mockDB.ExpectQuery("SELECT * FROM alerts").
		WillReturnRows(testutil.MockRows(alertColumns()...).AddRow(
			"alert-1", "org-1", "proj-1", "STOCKOUT", "CRITICAL",
			med, nil, "medication out of stock since 2024-05-01", true, now, now, nil, nil,
		))
	expectNoActiveAlerts(mockDB, 6)

	err := engine.EvaluateAll(context.Background(), sc, asOf)
	require.NoError(t, err)
	publisher.AssertNoEventsPublished(t)
	mockDB.ExpectationsWereMet(t)
}

func TestEvaluateAll_KeepsAlertForFailedMedication(t *testing.T) {
	mockDB, db := newMockService(t)
	publisher := testutil.NewMockPublisher()
	engine := newAlertEngine(db, publisher)
	sc := scope.New("org-1", "proj-1")
	now := time.Now()

	expectProject(mockDB)
	mockDB.ExpectQuery("SELECT DISTINCT medication_id FROM stock_batches").
		WillReturnRows(testutil.MockRows("medication_id").AddRow("med-1"))

	// The batch listing fails, so this cycle learns nothing about med-1.
	mockDB.ExpectQuery("SELECT * FROM stock_batches").
		WillReturnError(errors.New("connection reset"))

	expectEmptyDispensationStats(mockDB)

	// med-1 still carries an active stockout alert. The missing condition
	// reflects missing data, not recovered stock, so the alert survives.
	med := "med-1"
	mockDB.ExpectQuery("SELECT * FROM alerts").
		WillReturnRows(testutil.MockRows(alertColumns()...).AddRow(
			"alert-1", "org-1", "proj-1", "STOCKOUT", "CRITICAL",
			med, nil, "medication out of stock since 2024-05-01", true, now, now, nil, nil,
		))
	expectNoActiveAlerts(mockDB, 6)

	err := engine.EvaluateAll(context.Background(), sc, time.Now())
	require.NoError(t, err)
	publisher.AssertNoEventsPublished(t)
	mockDB.ExpectationsWereMet(t)
}

func TestEvaluateAll_UpdatesBatchReferenceWhenWorstBatchChanges(t *testing.T) {
	mockDB, db := newMockService(t)
	publisher := testutil.NewMockPublisher()
	engine := newAlertEngine(db, publisher)
	sc := scope.New("org-1", "proj-1")
	asOf := day(2024, time.June, 1)
	now := time.Now()

	expectProject(mockDB)
	mockDB.ExpectQuery("SELECT DISTINCT medication_id FROM stock_batches").
		WillReturnRows(testutil.MockRows("medication_id").AddRow("med-1"))

	// One at-risk batch in stock; listed once for the position and once
	// for the expiry scan.
	batchRows := func() *sqlmock.Rows {
		return testutil.MockRows(batchColumns()...).AddRow(
			"batch-2", "org-1", "proj-1", "med-1", "LOT-0002",
			100, 100, nil, nil, day(2024, time.March, 1), day(2024, time.July, 16), now,
		)
	}
	mockDB.ExpectQuery("SELECT * FROM stock_batches").WillReturnRows(batchRows())
	mockDB.ExpectQuery("SELECT COALESCE(SUM(quantity), 0) FROM dispensations").
		WillReturnRows(testutil.MockRows("coalesce").AddRow(0))
	mockDB.ExpectQuery("SELECT * FROM consumption_records").
		WillReturnRows(testutil.MockRows(consumptionColumns()...))
	mockDB.ExpectQuery("SELECT * FROM stockout_periods").WillReturnError(sql.ErrNoRows)
	mockDB.ExpectQuery("SELECT * FROM stock_batches").WillReturnRows(batchRows())

	expectEmptyDispensationStats(mockDB)

	// The active alert still references a batch that is gone; the update
	// must move it to the batch now closest to expiry.
	med := "med-1"
	oldBatch := "batch-1"
	mockDB.ExpectQuery("SELECT * FROM alerts").
		WillReturnRows(testutil.MockRows(alertColumns()...).AddRow(
			"alert-1", "org-1", "proj-1", "EXPIRY_RISK", "MEDIUM",
			med, oldBatch, "batch LOT-0001 expires in 1.2 months", true, now, now, nil, nil,
		))
	mockDB.ExpectExec("UPDATE alerts").
		WithArgs("alert-1", "org-1", "proj-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "batch-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	expectNoActiveAlerts(mockDB, 7)

	err := engine.EvaluateAll(context.Background(), sc, asOf)
	require.NoError(t, err)
	publisher.AssertNoEventsPublished(t)
	mockDB.ExpectationsWereMet(t)
}
