package service

import (
	"context"
	"time"

	"github.com/pharmaconnect/stock-analytics/internal/analytics/repository"
	"github.com/pharmaconnect/stock-analytics/pkg/logger"
)

// EvaluationScheduler runs the alert engine periodically across every
// registered scope.
type EvaluationScheduler struct {
	engine      *AlertEngine
	projectRepo *repository.ProjectRepository
	interval    time.Duration
	logger      *logger.Logger
	cancel      context.CancelFunc
}

// NewEvaluationScheduler creates a new evaluation scheduler
func NewEvaluationScheduler(engine *AlertEngine, projectRepo *repository.ProjectRepository, interval time.Duration, log *logger.Logger) *EvaluationScheduler {
	return &EvaluationScheduler{
		engine:      engine,
		projectRepo: projectRepo,
		interval:    interval,
		logger:      log,
	}
}

// Start starts the scheduler in a background goroutine. On each tick it
// enumerates the registered scopes and evaluates each one.
func (s *EvaluationScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("evaluation scheduler started")

		// Run an initial cycle immediately
		s.runCycle(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("evaluation scheduler stopped")
				return
			case <-ticker.C:
				s.runCycle(ctx)
			}
		}
	}()
}

// Stop stops the scheduler goroutine
func (s *EvaluationScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// runCycle evaluates every registered scope once
func (s *EvaluationScheduler) runCycle(ctx context.Context) {
	start := time.Now()

	scopes, err := s.projectRepo.ListScopes(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to enumerate scopes")
		return
	}

	s.logger.Info().Int("scope_count", len(scopes)).Msg("starting evaluation cycle")

	for _, sc := range scopes {
		if err := s.engine.EvaluateAll(ctx, sc, time.Now()); err != nil {
			s.logger.Error().Err(err).
				Str("organization_id", sc.OrganizationID).
				Str("project_id", sc.ProjectID).
				Msg("evaluation failed for scope")
		}
	}

	s.logger.Info().
		Dur("duration", time.Since(start)).
		Int("scope_count", len(scopes)).
		Msg("evaluation cycle completed")
}
