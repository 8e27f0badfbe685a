package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pharmaconnect/stock-analytics/pkg/database"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/scope"
)

var (
	// Global test container (shared across all integration tests)
	globalContainer *PostgresContainer
	globalDB        *sqlx.DB
	containerOnce   sync.Once
	containerErr    error

	scopeSeq   int
	scopeSeqMu sync.Mutex
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container *PostgresContainer
	RawDB     *sqlx.DB
	DB        *database.DB
	Fixtures  *FixtureFactory
	Logger    *logger.Logger
}

// NewIntegrationSuite creates a new integration test suite.
// Call this in TestMain to set up shared test infrastructure.
//
// Usage:
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//
//	    suite, err := testutil.NewIntegrationSuite(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer testutil.TerminateContainer(ctx)
//
//	    os.Exit(m.Run())
//	}
//
//	func TestSomething(t *testing.T) {
//	    sc := suite.SetupScope(t, context.Background())
//	    // ... run tests against sc
//	}
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	container, db, err := getOrCreateContainer(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.New("test", "test")
	wrappedDB, err := database.NewWithDSN(container.DSN, log)
	if err != nil {
		return nil, err
	}

	if err := container.ApplySchema(ctx, db); err != nil {
		return nil, err
	}

	return &IntegrationSuite{
		Container: container,
		RawDB:     db,
		DB:        wrappedDB,
		Fixtures:  NewFixtureFactory(),
		Logger:    log,
	}, nil
}

// getOrCreateContainer returns the shared test container
func getOrCreateContainer(ctx context.Context) (*PostgresContainer, *sqlx.DB, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.Connect(ctx)
	})

	return globalContainer, globalDB, containerErr
}

// SetupScope registers a fresh (organization, project) scope with default
// policy for a single test. Each test gets its own scope for isolation;
// all rows under the scope are removed on cleanup.
func (s *IntegrationSuite) SetupScope(t *testing.T, ctx context.Context) scope.Scope {
	t.Helper()

	scopeSeqMu.Lock()
	scopeSeq++
	n := scopeSeq
	scopeSeqMu.Unlock()

	sc := scope.New(fmt.Sprintf("org-%d", n), fmt.Sprintf("proj-%d", n))

	_, err := s.RawDB.ExecContext(ctx,
		`INSERT INTO projects (organization_id, project_id, name) VALUES ($1, $2, $3)`,
		sc.OrganizationID, sc.ProjectID, fmt.Sprintf("test project %d", n),
	)
	if err != nil {
		t.Fatalf("failed to register test scope: %v", err)
	}

	t.Cleanup(func() {
		s.DropScope(context.Background(), sc)
	})

	return sc
}

// DropScope removes every row belonging to the scope
func (s *IntegrationSuite) DropScope(ctx context.Context, sc scope.Scope) {
	tables := []string{
		"alerts", "dispensations", "stockout_periods", "physical_counts",
		"consumption_records", "stock_batches", "projects",
	}
	for _, table := range tables {
		s.RawDB.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE organization_id = $1 AND project_id = $2", table),
			sc.OrganizationID, sc.ProjectID,
		)
	}
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}

// UnitTestSuite provides a base for unit tests with mocked dependencies
type UnitTestSuite struct {
	MockDB   *MockDB
	Fixtures *FixtureFactory
	t        *testing.T
}

// NewUnitTestSuite creates a new unit test suite
func NewUnitTestSuite(t *testing.T) *UnitTestSuite {
	return &UnitTestSuite{
		MockDB:   NewMockDB(t),
		Fixtures: NewFixtureFactory(),
		t:        t,
	}
}

// Cleanup verifies expectations and cleans up
func (s *UnitTestSuite) Cleanup() {
	s.MockDB.ExpectationsWereMet(s.t)
	s.MockDB.Close()
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
