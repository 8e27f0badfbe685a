package service_test

import (
	"testing"
	"time"

	"github.com/pharmaconnect/stock-analytics/pkg/database"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/testutil"
)

func newMockService(t *testing.T) (*testutil.MockDB, *database.DB) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })
	return mockDB, database.NewWithDB(mockDB.DB, logger.New("test", "test"))
}

func testLogger() *logger.Logger {
	return logger.New("test", "test")
}

func stockoutColumns() []string {
	return []string{
		"id", "organization_id", "project_id", "medication_id",
		"start_date", "end_date", "days_duration", "created_at", "updated_at",
	}
}

func batchColumns() []string {
	return []string{
		"id", "organization_id", "project_id", "medication_id", "batch_number",
		"quantity_ordered", "quantity_delivered", "unit_price", "supplier",
		"delivery_date", "expiry_date", "created_at",
	}
}

func consumptionColumns() []string {
	return []string{
		"id", "organization_id", "project_id", "medication_id", "week_number",
		"year", "quantity_consumed", "is_week_closed", "created_at", "updated_at",
	}
}

func alertColumns() []string {
	return []string{
		"id", "organization_id", "project_id", "alert_type", "severity",
		"medication_id", "batch_id", "message", "is_active",
		"created_at", "updated_at", "resolved_at", "resolved_by",
	}
}

func projectColumns() []string {
	return []string{
		"organization_id", "project_id", "name", "order_frequency_months",
		"delivery_delay_months", "buffer_stock_months", "last_order_date",
		"created_at", "updated_at",
	}
}

func day(year int, month time.Month, dayOfMonth int) time.Time {
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}
