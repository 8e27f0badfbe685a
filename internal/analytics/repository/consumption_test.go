package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/pkg/database"
	"github.com/pharmaconnect/stock-analytics/pkg/errors"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
	"github.com/pharmaconnect/stock-analytics/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*testutil.MockDB, *database.DB) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })
	return mockDB, database.NewWithDB(mockDB.DB, logger.New("test", "test"))
}

func TestRecordWeek_ClosedWeekRejected(t *testing.T) {
	mockDB, db := newMockRepo(t)
	repo := repository.NewConsumptionRepository(db)
	sc := scope.New("org-1", "proj-1")

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT is_week_closed FROM consumption_records").
		WillReturnRows(testutil.MockRows("is_week_closed").AddRow(true))
	mockDB.ExpectRollback()

	err := repo.RecordWeek(context.Background(), sc, &domain.ConsumptionRecord{
		MedicationID:     "a6f1f1f1-0000-0000-0000-000000000001",
		WeekNumber:       12,
		Year:             2024,
		QuantityConsumed: 40,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrClosedPeriod))
	mockDB.ExpectationsWereMet(t)
}

func TestRecordWeek_DuplicateRejected(t *testing.T) {
	mockDB, db := newMockRepo(t)
	repo := repository.NewConsumptionRepository(db)
	sc := scope.New("org-1", "proj-1")

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT is_week_closed FROM consumption_records").
		WillReturnRows(testutil.MockRows("is_week_closed").AddRow(false))
	mockDB.ExpectRollback()

	err := repo.RecordWeek(context.Background(), sc, &domain.ConsumptionRecord{
		MedicationID: "a6f1f1f1-0000-0000-0000-000000000001",
		WeekNumber:   12,
		Year:         2024,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicate))
	mockDB.ExpectationsWereMet(t)
}

func TestRecordWeek_Inserts(t *testing.T) {
	mockDB, db := newMockRepo(t)
	repo := repository.NewConsumptionRepository(db)
	sc := scope.New("org-1", "proj-1")

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT is_week_closed FROM consumption_records").
		WillReturnError(sql.ErrNoRows)
	now := time.Now()
	mockDB.ExpectQuery("INSERT INTO consumption_records").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))
	mockDB.ExpectCommit()

	record := &domain.ConsumptionRecord{
		MedicationID:     "a6f1f1f1-0000-0000-0000-000000000001",
		WeekNumber:       12,
		Year:             2024,
		QuantityConsumed: 40,
	}
	err := repo.RecordWeek(context.Background(), sc, record)

	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "org-1", record.OrganizationID)
	mockDB.ExpectationsWereMet(t)
}

func TestRecordWeek_MissingScope(t *testing.T) {
	_, db := newMockRepo(t)
	repo := repository.NewConsumptionRepository(db)

	err := repo.RecordWeek(context.Background(), scope.Scope{}, &domain.ConsumptionRecord{})
	assert.True(t, errors.Is(err, errors.ErrNoScope))
}

func TestCloseWeek_NotFound(t *testing.T) {
	mockDB, db := newMockRepo(t)
	repo := repository.NewConsumptionRepository(db)
	sc := scope.New("org-1", "proj-1")

	mockDB.ExpectExec("UPDATE consumption_records").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CloseWeek(context.Background(), sc, "med-1", 12, 2024)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	mockDB.ExpectationsWereMet(t)
}
