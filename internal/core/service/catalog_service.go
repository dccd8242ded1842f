package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/martijn/snapchain/internal/core/engine"
)

type CatalogService struct {
	engines *engine.Registry
}

func NewCatalogService(engines *engine.Registry) *CatalogService {
	return &CatalogService{
		engines: engines,
	}
}

// ListArchives returns the archive identifiers of repo in ascending order.
// A repository without archives yields an empty list.
func (s *CatalogService) ListArchives(ctx context.Context, repo *domain.Repository) ([]string, error) {
	eng, err := s.engines.For(repo)
	if err != nil {
		return nil, err
	}

	archives, err := eng.List(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives of %s: %w", repo.Root, err)
	}

	sorted := make([]string, len(archives))
	copy(sorted, archives)
	sort.Strings(sorted)
	return sorted, nil
}

// MostRecent reports the engine's latest archive for repo, or "".
func (s *CatalogService) MostRecent(ctx context.Context, repo *domain.Repository) (string, error) {
	eng, err := s.engines.For(repo)
	if err != nil {
		return "", err
	}
	return eng.MostRecent(ctx, repo)
}
