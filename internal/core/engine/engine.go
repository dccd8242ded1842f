// Package engine defines the capability snapchain needs from an external
// backup tool, independent of how that tool stores data.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/martijn/snapchain/internal/core/domain"
)

// CreateOptions controls a single archive creation.
type CreateOptions struct {
	// Incremental names the archive the new one builds on. Empty means a
	// full transfer.
	Incremental string
	DryRun      bool
	Excludes    []string
}

type BackupEngine interface {
	Name() domain.EngineName
	Init(ctx context.Context, repo *domain.Repository) error
	List(ctx context.Context, repo *domain.Repository) ([]string, error)
	Create(ctx context.Context, repo *domain.Repository, id string, opts CreateOptions) error
	Delete(ctx context.Context, repo *domain.Repository, id string) error

	// MostRecent returns the archive the engine considers latest, or ""
	// when there is none yet.
	MostRecent(ctx context.Context, repo *domain.Repository) (string, error)
	UpdateMostRecent(ctx context.Context, repo *domain.Repository, id string) error
}

// Registry resolves the engine configured for a repository.
type Registry struct {
	engines map[domain.EngineName]BackupEngine
}

func NewRegistry(engines ...BackupEngine) *Registry {
	r := &Registry{engines: make(map[domain.EngineName]BackupEngine, len(engines))}
	for _, e := range engines {
		r.engines[e.Name()] = e
	}
	return r
}

func (r *Registry) For(repo *domain.Repository) (BackupEngine, error) {
	e, ok := r.engines[repo.Engine]
	if !ok {
		return nil, fmt.Errorf("%w: no engine %q for repository %s (available: %v)",
			domain.ErrConfiguration, repo.Engine, repo.Root, r.names())
	}
	return e, nil
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}
