// Package borg implements the content-addressed engine on top of the borg
// command line. Deduplication makes every archive incremental, so the
// repository's own archive list doubles as the "most recent" marker.
package borg

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/martijn/snapchain/internal/adapter/process"
	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/martijn/snapchain/internal/core/engine"
	"github.com/sirupsen/logrus"
)

const checkpointMarker = ".checkpoint"

type Engine struct {
	bin  string
	exec process.Executor
	log  logrus.FieldLogger
}

func New(bin string, exec process.Executor, log logrus.FieldLogger) *Engine {
	if bin == "" {
		bin = "borg"
	}
	return &Engine{bin: bin, exec: exec, log: log}
}

func (e *Engine) Name() domain.EngineName {
	return domain.EngineBorg
}

func (e *Engine) archive(repo *domain.Repository, id string) string {
	return fmt.Sprintf("%s::%s", repo.Storage, id)
}

func (e *Engine) BuildInitCmd(repo *domain.Repository) []string {
	return []string{e.bin, "init", "--encryption=none", repo.Storage}
}

func (e *Engine) BuildListCmd(repo *domain.Repository) []string {
	return []string{e.bin, "list", "--short", repo.Storage}
}

func (e *Engine) BuildCreateCmd(repo *domain.Repository, id string, opts engine.CreateOptions) []string {
	cmd := []string{e.bin, "create"}

	if opts.DryRun {
		cmd = append(cmd, "--dry-run")
	}

	for _, pattern := range opts.Excludes {
		cmd = append(cmd, fmt.Sprintf("--exclude=%s", pattern))
	}

	return append(cmd, e.archive(repo, id), repo.SourceDir)
}

func (e *Engine) BuildDeleteCmd(repo *domain.Repository, id string) []string {
	return []string{e.bin, "delete", e.archive(repo, id)}
}

func (e *Engine) Init(ctx context.Context, repo *domain.Repository) error {
	_, err := e.exec.Run(ctx, e.BuildInitCmd(repo), process.Options{Dir: repo.Root})
	return err
}

// List returns completed archive names. Checkpoints left behind by an
// interrupted create are skipped.
func (e *Engine) List(ctx context.Context, repo *domain.Repository) ([]string, error) {
	proc, err := e.exec.Run(ctx, e.BuildListCmd(repo), process.Options{Dir: repo.Root})
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, line := range strings.Split(proc.Output, "\n") {
		name := strings.TrimSpace(line)
		if name == "" || strings.Contains(name, checkpointMarker) {
			continue
		}
		ids = append(ids, name)
	}
	return ids, nil
}

func (e *Engine) Create(ctx context.Context, repo *domain.Repository, id string, opts engine.CreateOptions) error {
	if opts.Incremental != "" {
		e.log.WithFields(logrus.Fields{
			"repository": repo.Root,
			"archive":    id,
			"reference":  opts.Incremental,
		}).Debug("borg deduplicates against all archives; reference is informational")
	}
	_, err := e.exec.Run(ctx, e.BuildCreateCmd(repo, id, opts), process.Options{Dir: repo.Root})
	return err
}

func (e *Engine) Delete(ctx context.Context, repo *domain.Repository, id string) error {
	_, err := e.exec.Run(ctx, e.BuildDeleteCmd(repo, id), process.Options{Dir: repo.Root})
	return err
}

func (e *Engine) MostRecent(ctx context.Context, repo *domain.Repository) (string, error) {
	ids, err := e.List(ctx, repo)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", nil
	}
	sort.Strings(ids)
	return ids[len(ids)-1], nil
}

// UpdateMostRecent only checks that borg committed the archive; the archive
// list is the marker.
func (e *Engine) UpdateMostRecent(ctx context.Context, repo *domain.Repository, id string) error {
	latest, err := e.MostRecent(ctx, repo)
	if err != nil {
		return err
	}
	if latest != id {
		return fmt.Errorf("archive %s is not the most recent in %s (found %q): %w", id, repo.Storage, latest, domain.ErrNotFound)
	}
	return nil
}
