package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/martijn/snapchain/internal/core/engine"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type createCall struct {
	Root string
	ID   string
	Opts engine.CreateOptions
}

// fakeEngine keeps archives in memory, keyed by repository root.
type fakeEngine struct {
	archives   map[string][]string
	latest     map[string]string
	createErr  map[string]error
	deleteErr  map[string]error
	creates    []createCall
	deletes    []string
	markerSets []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		archives:  make(map[string][]string),
		latest:    make(map[string]string),
		createErr: make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func (f *fakeEngine) Name() domain.EngineName { return domain.EngineRsync }

func (f *fakeEngine) Init(ctx context.Context, repo *domain.Repository) error { return nil }

func (f *fakeEngine) List(ctx context.Context, repo *domain.Repository) ([]string, error) {
	return append([]string(nil), f.archives[repo.Root]...), nil
}

func (f *fakeEngine) Create(ctx context.Context, repo *domain.Repository, id string, opts engine.CreateOptions) error {
	f.creates = append(f.creates, createCall{Root: repo.Root, ID: id, Opts: opts})
	if err := f.createErr[repo.Root]; err != nil {
		return err
	}
	if !opts.DryRun {
		f.archives[repo.Root] = append(f.archives[repo.Root], id)
	}
	return nil
}

func (f *fakeEngine) Delete(ctx context.Context, repo *domain.Repository, id string) error {
	f.deletes = append(f.deletes, id)
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	var kept []string
	for _, a := range f.archives[repo.Root] {
		if a != id {
			kept = append(kept, a)
		}
	}
	f.archives[repo.Root] = kept
	return nil
}

func (f *fakeEngine) MostRecent(ctx context.Context, repo *domain.Repository) (string, error) {
	return f.latest[repo.Root], nil
}

func (f *fakeEngine) UpdateMostRecent(ctx context.Context, repo *domain.Repository, id string) error {
	f.markerSets = append(f.markerSets, repo.Root+"@"+id)
	f.latest[repo.Root] = id
	return nil
}

// scriptedPrompt answers prompts from fixed strings and records what it was
// shown.
type scriptedPrompt struct {
	confirm   string
	choose    string
	confirmed [][]string
	chosen    [][]string
}

func (p *scriptedPrompt) Confirm(ctx context.Context, header string, items []string) (string, error) {
	p.confirmed = append(p.confirmed, items)
	return p.confirm, nil
}

func (p *scriptedPrompt) Choose(ctx context.Context, items []string) (string, error) {
	p.chosen = append(p.chosen, items)
	return p.choose, nil
}

func newTestLogger() (logrus.FieldLogger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

// makeRepo creates dir with an empty marker file and returns its resolved
// path.
func makeRepo(t *testing.T, dir string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.MarkerFileName), nil, 0o644))
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	return resolved
}

// fixedClock returns successive times one minute apart starting at start.
func fixedClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Minute)
		return now
	}
}

func mustTime(t *testing.T, id string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation(domain.ArchiveIDLayout, id, time.Local)
	require.NoError(t, err)
	return ts
}

// mapLoader serves repositories from memory in place of marker parsing.
func mapLoader(repos ...*domain.Repository) RepositoryLoader {
	byRoot := make(map[string]*domain.Repository, len(repos))
	for _, r := range repos {
		byRoot[r.Root] = r
	}
	return func(root string) (*domain.Repository, error) {
		repo, ok := byRoot[root]
		if !ok {
			return nil, fmt.Errorf("%w: no marker in %s", domain.ErrConfiguration, root)
		}
		return repo, nil
	}
}
