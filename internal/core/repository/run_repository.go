package repository

import (
	"context"

	"github.com/martijn/snapchain/internal/core/domain"
)

type RunFilter struct {
	Repository *string
	Kind       *domain.RunKind
	Statuses   []domain.RunStatus
	Limit      int
}

type RunRepository interface {
	Create(ctx context.Context, run *domain.Run) error
	FindByID(ctx context.Context, id string) (*domain.Run, error)
	Update(ctx context.Context, run *domain.Run) error
	List(ctx context.Context, filter RunFilter) ([]*domain.Run, error)

	// Find the newest successful, non dry-run backup for a repository
	FindLatestBackup(ctx context.Context, repository string) (*domain.Run, error)
}
