package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/martijn/snapchain/internal/core/engine"
	"github.com/sirupsen/logrus"
)

// RepositoryLoader reads the repository whose marker lives in root.
type RepositoryLoader func(root string) (*domain.Repository, error)

type BackupResult struct {
	// Links holds one entry per repository backed up, child first.
	Links []*domain.ChainLink
}

type ChainService struct {
	engines *engine.Registry
	locator *Locator
	load    RepositoryLoader
	runs    *RunService
	log     logrus.FieldLogger
	clock   func() time.Time
}

func NewChainService(
	engines *engine.Registry,
	locator *Locator,
	load RepositoryLoader,
	runs *RunService,
	log logrus.FieldLogger,
) *ChainService {
	return &ChainService{
		engines: engines,
		locator: locator,
		load:    load,
		runs:    runs,
		log:     log,
		clock:   time.Now,
	}
}

// RunBackup backs up repo and then every enclosing parent repository with
// the same flags. A failed link aborts the chain; the links completed so
// far are returned with the error.
func (s *ChainService) RunBackup(ctx context.Context, repo *domain.Repository, flags domain.BackupFlags) (*BackupResult, error) {
	result := &BackupResult{}
	visited := make(map[string]bool)

	for current := repo; current != nil; {
		if visited[current.Root] {
			s.log.WithField("repository", current.Root).Warn("Repository already backed up in this chain, stopping")
			break
		}
		visited[current.Root] = true

		link, err := s.backupOne(ctx, current, flags)
		if err != nil {
			return result, err
		}
		result.Links = append(result.Links, link)

		parentRoot, err := s.ParentOf(current)
		if errors.Is(err, domain.ErrNotFound) {
			break
		}
		if err != nil {
			return result, err
		}

		parent, err := s.load(parentRoot)
		if err != nil {
			return result, fmt.Errorf("failed to load parent repository %s: %w", parentRoot, err)
		}
		s.log.WithFields(logrus.Fields{
			"repository": current.Root,
			"parent":     parent.Root,
		}).Info("Continuing backup chain with parent repository")
		current = parent
	}

	return result, nil
}

// ParentOf looks for the repository enclosing the source directory. A
// source directory inside its own repository would find that repository
// again, so the search then restarts above the root.
func (s *ChainService) ParentOf(repo *domain.Repository) (string, error) {
	parent, err := s.locator.LocateParent(repo.SourceDir)
	if err != nil {
		return "", err
	}
	if parent == repo.Root {
		return s.locator.LocateParent(repo.Root)
	}
	return parent, nil
}

func (s *ChainService) backupOne(ctx context.Context, repo *domain.Repository, flags domain.BackupFlags) (*domain.ChainLink, error) {
	eng, err := s.engines.For(repo)
	if err != nil {
		return nil, err
	}

	id := domain.NewArchiveID(s.clock())
	log := s.log.WithFields(logrus.Fields{"repository": repo.Root, "archive": id})

	existing, err := eng.List(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives of %s: %w", repo.Root, err)
	}
	if slices.Contains(existing, id) {
		return nil, fmt.Errorf("%w: %s in %s", domain.ErrArchiveExists, id, repo.Root)
	}

	var ref string
	if !flags.ForceFull {
		ref, err = eng.MostRecent(ctx, repo)
		if err != nil {
			return nil, fmt.Errorf("failed to read most recent archive of %s: %w", repo.Root, err)
		}
		repo.MostRecent = ref
		if ref == "" {
			log.Info("No previous archive, falling back to full backup")
		}
	}

	link := domain.NewChainLink(repo, id, ref, flags.DryRun)
	run := domain.NewBackupRun(repo, link)
	s.runs.Start(ctx, run)

	log.WithFields(logrus.Fields{
		"type":    link.Type,
		"from":    ref,
		"dry_run": flags.DryRun,
	}).Info("Starting backup")

	opts := engine.CreateOptions{
		Incremental: ref,
		DryRun:      flags.DryRun,
		Excludes:    repo.Excludes,
	}
	if err := eng.Create(ctx, repo, id, opts); err != nil {
		transferErr := domain.NewTransferError("create", repo, id, err)
		run.Fail(transferErr)
		s.runs.Finish(ctx, run)
		return nil, transferErr
	}

	if !flags.DryRun {
		if err := eng.UpdateMostRecent(ctx, repo, id); err != nil {
			transferErr := domain.NewTransferError("update most recent marker for", repo, id, err)
			run.Fail(transferErr)
			s.runs.Finish(ctx, run)
			return nil, transferErr
		}
		repo.MostRecent = id
	}

	run.Complete()
	s.runs.Finish(ctx, run)
	log.WithField("duration", run.Duration()).Info("Backup finished")

	return link, nil
}
