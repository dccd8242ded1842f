package service

import (
	"context"
	"fmt"

	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/martijn/snapchain/internal/core/repository"
	"github.com/sirupsen/logrus"
)

// RunService journals engine calls. With a nil repository the journal is
// disabled and every method is a no-op.
type RunService struct {
	runRepo repository.RunRepository
	log     logrus.FieldLogger
}

func NewRunService(runRepo repository.RunRepository, log logrus.FieldLogger) *RunService {
	return &RunService{
		runRepo: runRepo,
		log:     log,
	}
}

func (s *RunService) Enabled() bool {
	return s != nil && s.runRepo != nil
}

// Start records a running entry. Journal failures never fail the operation
// being journalled; they are logged.
func (s *RunService) Start(ctx context.Context, run *domain.Run) {
	if !s.Enabled() {
		return
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		s.log.WithError(err).WithField("run", run.ID).Warn("Failed to journal run")
	}
}

// Finish stores the final state of a run started with Start.
func (s *RunService) Finish(ctx context.Context, run *domain.Run) {
	if !s.Enabled() {
		return
	}
	if err := s.runRepo.Update(ctx, run); err != nil {
		s.log.WithError(err).WithField("run", run.ID).Warn("Failed to update journalled run")
	}
}

// GetRun retrieves a run by ID
func (s *RunService) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("run history is disabled: %w", domain.ErrNotFound)
	}
	return s.runRepo.FindByID(ctx, id)
}

// ListRuns lists runs with filtering
func (s *RunService) ListRuns(ctx context.Context, filter repository.RunFilter) ([]*domain.Run, error) {
	if !s.Enabled() {
		return nil, nil
	}
	return s.runRepo.List(ctx, filter)
}

// LatestBackup returns the newest successful real backup of a repository,
// or nil.
func (s *RunService) LatestBackup(ctx context.Context, repo *domain.Repository) (*domain.Run, error) {
	if !s.Enabled() {
		return nil, nil
	}
	return s.runRepo.FindLatestBackup(ctx, repo.Root)
}
