package consumers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/service"
	"github.com/pharmaconnect/stock-analytics/pkg/config"
	"github.com/pharmaconnect/stock-analytics/pkg/database"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/messaging"
	"github.com/pharmaconnect/stock-analytics/pkg/testutil"
	"github.com/stretchr/testify/require"
)

// newTestConsumer builds the consumer without a broker connection; only the
// message handlers are under test here.
func newTestConsumer(t *testing.T) (*StockEventConsumer, *testutil.MockDB, *testutil.MockPublisher) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })
	log := logger.New("test", "test")
	db := database.NewWithDB(mockDB.DB, log)
	publisher := testutil.NewMockPublisher()

	consumption := service.NewConsumptionService(repository.NewConsumptionRepository(db), 3, log)
	position := service.NewPositionService(
		repository.NewBatchRepository(db),
		repository.NewDispensationRepository(db),
		consumption,
		log,
	)
	tracker := service.NewStockoutTracker(repository.NewStockoutRepository(db), publisher, log)
	engine := service.NewAlertEngine(
		repository.NewProjectRepository(db),
		repository.NewBatchRepository(db),
		repository.NewAlertRepository(db),
		repository.NewDispensationRepository(db),
		position,
		tracker,
		publisher,
		config.AnalyticsConfig{DispensationWindowDays: 30},
		log,
	)

	c := &StockEventConsumer{
		batchRepo:        repository.NewBatchRepository(db),
		countRepo:        repository.NewCountRepository(db),
		dispensationRepo: repository.NewDispensationRepository(db),
		consumption:      consumption,
		position:         position,
		engine:           engine,
		logger:           log,
	}
	return c, mockDB, publisher
}

func mustEvent(t *testing.T, eventType string, data interface{}) *messaging.Event {
	t.Helper()
	event, err := messaging.NewEvent(eventType, "stock-service", "corr-1", data)
	require.NoError(t, err)
	return event
}

func TestHandleDispensationRecorded_Persists(t *testing.T) {
	c, mockDB, _ := newTestConsumer(t)

	now := time.Now()
	mockDB.ExpectQuery("INSERT INTO dispensations").
		WillReturnRows(testutil.MockRows("created_at").AddRow(now))
	// The post-ingest evaluation fails against the mock and is swallowed;
	// the scheduler covers it in production.

	event := mustEvent(t, messaging.EventDispensationRecorded, messaging.DispensationRecordedEvent{
		OrganizationID: "org-1",
		ProjectID:      "proj-1",
		DispensationID: "d6f1f1f1-0000-0000-0000-000000000001",
		MedicationID:   "a6f1f1f1-0000-0000-0000-000000000001",
		Quantity:       5,
		IsAntibiotic:   true,
		DispensedAt:    now,
	})
	err := c.handleDispensationRecorded(context.Background(), event)
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestHandleDispensationRecorded_DropsInvalidPayload(t *testing.T) {
	c, mockDB, _ := newTestConsumer(t)

	event := mustEvent(t, messaging.EventDispensationRecorded, messaging.DispensationRecordedEvent{
		OrganizationID: "org-1",
		ProjectID:      "proj-1",
		DispensationID: "not-a-uuid",
		MedicationID:   "a6f1f1f1-0000-0000-0000-000000000001",
		Quantity:       0,
		DispensedAt:    time.Now(),
	})
	err := c.handleDispensationRecorded(context.Background(), event)
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestHandleCountRecorded_PersistsAndReevaluates(t *testing.T) {
	c, mockDB, _ := newTestConsumer(t)

	// The theoretical level is evaluated before the insert.
	mockDB.ExpectQuery("SELECT * FROM stock_batches").
		WillReturnRows(testutil.MockRows("id"))
	mockDB.ExpectQuery("SELECT COALESCE(SUM(quantity), 0) FROM dispensations").
		WillReturnRows(testutil.MockRows("coalesce").AddRow(0))
	mockDB.ExpectQuery("SELECT * FROM consumption_records").
		WillReturnRows(testutil.MockRows("id"))
	mockDB.ExpectQuery("INSERT INTO physical_counts").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	// The post-ingest evaluation starts by loading the project; meeting this
	// expectation proves the handler triggered it. Its failure is swallowed.
	mockDB.ExpectQuery("SELECT * FROM projects").WillReturnError(sql.ErrNoRows)

	event := mustEvent(t, messaging.EventCountRecorded, messaging.CountRecordedEvent{
		OrganizationID:  "org-1",
		ProjectID:       "proj-1",
		CountID:         "c6f1f1f1-0000-0000-0000-000000000001",
		MedicationID:    "a6f1f1f1-0000-0000-0000-000000000001",
		Month:           6,
		Year:            2024,
		QuantityCounted: 40,
		CountedAt:       time.Now(),
	})
	err := c.handleCountRecorded(context.Background(), event)
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestHandleBatchReceived_MissingScopeDropped(t *testing.T) {
	c, mockDB, _ := newTestConsumer(t)

	event := mustEvent(t, messaging.EventBatchReceived, messaging.BatchReceivedEvent{
		BatchID:          "b6f1f1f1-0000-0000-0000-000000000001",
		MedicationID:     "a6f1f1f1-0000-0000-0000-000000000001",
		BatchNumber:      "LOT-0001",
		QuantityOrdered:  100,
		QuantityReceived: 100,
		ExpiryDate:       time.Now().AddDate(1, 0, 0),
		ReceivedAt:       time.Now(),
	})
	err := c.handleBatchReceived(context.Background(), event)
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}
