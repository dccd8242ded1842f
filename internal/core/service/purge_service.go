package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/martijn/snapchain/internal/core/engine"
	"github.com/sirupsen/logrus"
)

// Prompter asks the operator questions. Implementations render every item
// they are given.
type Prompter interface {
	// Confirm shows header and items and returns the raw answer.
	Confirm(ctx context.Context, header string, items []string) (string, error)
	// Choose shows items with 1-based ordinals and returns the raw input.
	Choose(ctx context.Context, items []string) (string, error)
}

type PurgeResult struct {
	// NothingToDo is set when the selection was empty and no prompt was shown.
	NothingToDo bool
	// Aborted is set when the operator declined. Nothing was deleted.
	Aborted  bool
	Selected []string
	Deleted  []string
	Failures []*domain.TransferError
}

type PurgeService struct {
	engines *engine.Registry
	catalog *CatalogService
	runs    *RunService
	prompt  Prompter
	log     logrus.FieldLogger
	clock   func() time.Time
}

func NewPurgeService(
	engines *engine.Registry,
	catalog *CatalogService,
	runs *RunService,
	prompt Prompter,
	log logrus.FieldLogger,
) *PurgeService {
	return &PurgeService{
		engines: engines,
		catalog: catalog,
		runs:    runs,
		prompt:  prompt,
		log:     log,
		clock:   time.Now,
	}
}

// Purge selects archives of repo with policy and deletes them after
// confirmation.
func (s *PurgeService) Purge(ctx context.Context, repo *domain.Repository, policy domain.RetentionPolicy) (*PurgeResult, error) {
	selection, err := s.Select(ctx, repo, policy)
	if err != nil {
		return nil, err
	}
	return s.ConfirmAndDelete(ctx, repo, selection)
}

// Select evaluates policy against the catalog of repo. The interactive
// policy asks the operator to pick archives.
func (s *PurgeService) Select(ctx context.Context, repo *domain.Repository, policy domain.RetentionPolicy) ([]string, error) {
	catalog, err := s.catalog.ListArchives(ctx, repo)
	if err != nil {
		return nil, err
	}

	if policy.Mode != domain.RetentionInteractive {
		return SelectForDeletion(catalog, policy, s.clock())
	}

	if len(catalog) == 0 {
		return []string{}, nil
	}

	input, err := s.prompt.Choose(ctx, catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to read selection: %w", err)
	}
	return ParseInteractiveSelection(catalog, input)
}

// ConfirmAndDelete shows the selection and deletes every item in order once
// the operator agrees. Deletes are independent: a failure is recorded and
// the remaining items are still attempted. The returned error joins all
// failures.
func (s *PurgeService) ConfirmAndDelete(ctx context.Context, repo *domain.Repository, selection []string) (*PurgeResult, error) {
	result := &PurgeResult{Selected: selection}
	if len(selection) == 0 {
		result.NothingToDo = true
		return result, nil
	}

	eng, err := s.engines.For(repo)
	if err != nil {
		return nil, err
	}

	header := fmt.Sprintf("The following %d archive(s) of %s will be deleted:", len(selection), repo.Root)
	answer, err := s.prompt.Confirm(ctx, header, selection)
	if err != nil {
		return nil, fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !domain.IsAffirmative(answer) {
		s.log.WithField("repository", repo.Root).Info("Purge aborted by operator")
		result.Aborted = true
		return result, nil
	}

	var errs []error
	for _, id := range selection {
		log := s.log.WithFields(logrus.Fields{"repository": repo.Root, "archive": id})

		run := domain.NewRun(repo, id, domain.RunKindDelete)
		s.runs.Start(ctx, run)

		if err := eng.Delete(ctx, repo, id); err != nil {
			transferErr := domain.NewTransferError("delete", repo, id, err)
			result.Failures = append(result.Failures, transferErr)
			errs = append(errs, transferErr)
			run.Fail(transferErr)
			s.runs.Finish(ctx, run)
			log.WithError(err).Error("Failed to delete archive")
			continue
		}

		result.Deleted = append(result.Deleted, id)
		run.Complete()
		s.runs.Finish(ctx, run)
		log.Info("Deleted archive")
	}

	return result, errors.Join(errs...)
}
