package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/domain"
	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/pkg/errors"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
	"github.com/pharmaconnect/stock-analytics/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alertColumns() []string {
	return []string{
		"id", "organization_id", "project_id", "alert_type", "severity",
		"medication_id", "batch_id", "message", "is_active",
		"created_at", "updated_at", "resolved_at", "resolved_by",
	}
}

func TestGetActiveByCondition_NoneIsNil(t *testing.T) {
	mockDB, db := newMockRepo(t)
	repo := repository.NewAlertRepository(db)
	sc := scope.New("org-1", "proj-1")

	mockDB.ExpectQuery("SELECT * FROM alerts").WillReturnError(sql.ErrNoRows)

	med := "med-1"
	alert, err := repo.GetActiveByCondition(context.Background(), sc, domain.AlertStockout, &med)
	require.NoError(t, err)
	assert.Nil(t, alert)
	mockDB.ExpectationsWereMet(t)
}

func TestGetActiveByCondition_Found(t *testing.T) {
	mockDB, db := newMockRepo(t)
	repo := repository.NewAlertRepository(db)
	sc := scope.New("org-1", "proj-1")

	now := time.Now()
	med := "med-1"
	mockDB.ExpectQuery("SELECT * FROM alerts").
		WillReturnRows(testutil.MockRows(alertColumns()...).AddRow(
			"alert-1", "org-1", "proj-1", "STOCKOUT", "CRITICAL",
			med, nil, "medication out of stock", true, now, now, nil, nil,
		))

	alert, err := repo.GetActiveByCondition(context.Background(), sc, domain.AlertStockout, &med)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, domain.AlertStockout, alert.Type)
	assert.True(t, alert.IsActive)
	mockDB.ExpectationsWereMet(t)
}

func TestUpdate_RewritesBatchReference(t *testing.T) {
	mockDB, db := newMockRepo(t)
	repo := repository.NewAlertRepository(db)
	sc := scope.New("org-1", "proj-1")

	med := "med-1"
	batch := "batch-2"
	alert := &domain.Alert{
		ID:           "alert-1",
		Type:         domain.AlertExpiryRisk,
		Severity:     domain.SeverityHigh,
		MedicationID: &med,
		BatchID:      &batch,
		Message:      "batch LOT-0002 expires in 0.8 months",
	}

	mockDB.ExpectExec("UPDATE alerts").
		WithArgs("alert-1", "org-1", "proj-1", "HIGH", alert.Message, "batch-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), sc, alert))
	mockDB.ExpectationsWereMet(t)
}

func TestResolve_AlreadyResolved(t *testing.T) {
	mockDB, db := newMockRepo(t)
	repo := repository.NewAlertRepository(db)
	sc := scope.New("org-1", "proj-1")

	mockDB.ExpectQuery("UPDATE alerts").WillReturnError(sql.ErrNoRows)

	_, err := repo.Resolve(context.Background(), sc, "alert-1", "pharmacist-7")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	mockDB.ExpectationsWereMet(t)
}
