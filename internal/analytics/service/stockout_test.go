package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/service"
	"github.com/pharmaconnect/stock-analytics/pkg/messaging"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
	"github.com/pharmaconnect/stock-analytics/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockoutTracker_OpensOnZeroStock(t *testing.T) {
	mockDB, db := newMockService(t)
	publisher := testutil.NewMockPublisher()
	tracker := service.NewStockoutTracker(repository.NewStockoutRepository(db), publisher, testLogger())
	sc := scope.New("org-1", "proj-1")
	asOf := day(2024, time.June, 1)

	mockDB.ExpectQuery("SELECT * FROM stockout_periods").WillReturnError(sql.ErrNoRows)
	now := time.Now()
	mockDB.ExpectQuery("INSERT INTO stockout_periods").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))

	period, err := tracker.Evaluate(context.Background(), sc, "med-1", 0, asOf)
	require.NoError(t, err)
	require.NotNil(t, period)
	assert.True(t, period.IsOpen())
	assert.Equal(t, asOf, period.StartDate)
	publisher.AssertEventPublished(t, messaging.EventStockoutOpened)
	mockDB.ExpectationsWereMet(t)
}

func TestStockoutTracker_ClosesOnRestock(t *testing.T) {
	mockDB, db := newMockService(t)
	publisher := testutil.NewMockPublisher()
	tracker := service.NewStockoutTracker(repository.NewStockoutRepository(db), publisher, testLogger())
	sc := scope.New("org-1", "proj-1")

	start := day(2024, time.June, 1)
	asOf := day(2024, time.June, 11)
	now := time.Now()
	mockDB.ExpectQuery("SELECT * FROM stockout_periods").
		WillReturnRows(testutil.MockRows(stockoutColumns()...).AddRow(
			"period-1", "org-1", "proj-1", "med-1", start, nil, nil, now, now,
		))
	mockDB.ExpectExec("UPDATE stockout_periods").
		WillReturnResult(sqlmock.NewResult(0, 1))

	period, err := tracker.Evaluate(context.Background(), sc, "med-1", 5, asOf)
	require.NoError(t, err)
	assert.Nil(t, period)

	publisher.AssertEventPublished(t, messaging.EventStockoutClosed)
	require.Len(t, publisher.PublishedEvents, 1)
	payload, ok := publisher.PublishedEvents[0].Payload.(messaging.StockoutClosedEvent)
	require.True(t, ok)
	assert.Equal(t, 10, payload.DaysDuration)
	mockDB.ExpectationsWereMet(t)
}

func TestStockoutTracker_NoChangeIsSilent(t *testing.T) {
	mockDB, db := newMockService(t)
	publisher := testutil.NewMockPublisher()
	tracker := service.NewStockoutTracker(repository.NewStockoutRepository(db), publisher, testLogger())
	sc := scope.New("org-1", "proj-1")

	start := day(2024, time.June, 1)
	now := time.Now()
	mockDB.ExpectQuery("SELECT * FROM stockout_periods").
		WillReturnRows(testutil.MockRows(stockoutColumns()...).AddRow(
			"period-1", "org-1", "proj-1", "med-1", start, nil, nil, now, now,
		))

	period, err := tracker.Evaluate(context.Background(), sc, "med-1", 0, day(2024, time.June, 5))
	require.NoError(t, err)
	require.NotNil(t, period)
	assert.Equal(t, "period-1", period.ID)
	publisher.AssertNoEventsPublished(t)
	mockDB.ExpectationsWereMet(t)
}
