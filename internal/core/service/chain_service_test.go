package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/martijn/snapchain/internal/core/engine"
	"github.com/martijn/snapchain/internal/core/repository"
	"github.com/martijn/snapchain/internal/infrastructure/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chainEnv struct {
	eng     *fakeEngine
	service *ChainService
	hook    interface{ AllEntries() []*logrus.Entry }
	runs    *RunService
	child   *domain.Repository
	parent  *domain.Repository
}

// setupChain builds repository A nested inside the source tree of
// repository B, both backing up their own root.
func setupChain(t *testing.T) *chainEnv {
	t.Helper()

	base := t.TempDir()
	parentRoot := makeRepo(t, filepath.Join(base, "b"))
	childRoot := makeRepo(t, filepath.Join(parentRoot, "src", "a"))

	child := &domain.Repository{Root: childRoot, SourceDir: childRoot, Storage: filepath.Join(base, "store-a"), Engine: domain.EngineRsync}
	parent := &domain.Repository{Root: parentRoot, SourceDir: parentRoot, Storage: filepath.Join(base, "store-b"), Engine: domain.EngineRsync}

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log, hook := newTestLogger()
	eng := newFakeEngine()
	runs := NewRunService(sqlite.NewRunRepository(db), log)

	svc := NewChainService(engine.NewRegistry(eng), NewLocator(), mapLoader(child, parent), runs, log)
	svc.clock = fixedClock(mustTime(t, "2025-01-01_10:00:00"))

	return &chainEnv{eng: eng, service: svc, hook: hook, runs: runs, child: child, parent: parent}
}

func TestRunBackup_NestedChain(t *testing.T) {
	env := setupChain(t)
	env.eng.archives[env.child.Root] = []string{"2024-12-31_10:00:00"}
	env.eng.latest[env.child.Root] = "2024-12-31_10:00:00"

	result, err := env.service.RunBackup(context.Background(), env.child, domain.BackupFlags{})
	require.NoError(t, err)
	require.Len(t, result.Links, 2)

	childLink, parentLink := result.Links[0], result.Links[1]
	assert.Equal(t, env.child.Root, childLink.Repository)
	assert.Equal(t, "2025-01-01_10:00:00", childLink.ArchiveID)
	assert.Equal(t, domain.BackupTypeIncremental, childLink.Type)
	require.NotNil(t, childLink.FromArchive)
	assert.Equal(t, "2024-12-31_10:00:00", *childLink.FromArchive)

	assert.Equal(t, env.parent.Root, parentLink.Repository)
	assert.Equal(t, "2025-01-01_10:01:00", parentLink.ArchiveID)
	assert.Equal(t, domain.BackupTypeFull, parentLink.Type)
	assert.Nil(t, parentLink.FromArchive)

	require.Len(t, env.eng.creates, 2)
	assert.Equal(t, "2024-12-31_10:00:00", env.eng.creates[0].Opts.Incremental)
	assert.Empty(t, env.eng.creates[1].Opts.Incremental)

	assert.Equal(t, []string{
		env.child.Root + "@2025-01-01_10:00:00",
		env.parent.Root + "@2025-01-01_10:01:00",
	}, env.eng.markerSets)
	assert.Equal(t, "2025-01-01_10:00:00", env.child.MostRecent)
	assert.Equal(t, "2025-01-01_10:01:00", env.parent.MostRecent)

	var fellBack bool
	for _, entry := range env.hook.AllEntries() {
		if entry.Message == "No previous archive, falling back to full backup" && entry.Data["repository"] == env.parent.Root {
			fellBack = true
		}
	}
	assert.True(t, fellBack, "full fallback must be logged")
}

func TestRunBackup_FailureAbortsChain(t *testing.T) {
	env := setupChain(t)
	env.eng.latest[env.child.Root] = "2024-12-31_10:00:00"
	env.child.MostRecent = "2024-12-31_10:00:00"
	env.eng.createErr[env.child.Root] = errors.New("rsync exited with code 23")

	result, err := env.service.RunBackup(context.Background(), env.child, domain.BackupFlags{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransfer)

	var transferErr *domain.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, "create", transferErr.Op)
	assert.Equal(t, env.child.Root, transferErr.Repository)

	assert.Empty(t, result.Links)
	assert.Len(t, env.eng.creates, 1, "parent must never be backed up")
	assert.Empty(t, env.eng.markerSets)
	assert.Equal(t, "2024-12-31_10:00:00", env.child.MostRecent, "marker keeps the prior archive")
}

func TestRunBackup_ParentFailureKeepsChildLink(t *testing.T) {
	env := setupChain(t)
	env.eng.createErr[env.parent.Root] = errors.New("disk full")

	result, err := env.service.RunBackup(context.Background(), env.child, domain.BackupFlags{})
	assert.ErrorIs(t, err, domain.ErrTransfer)
	require.Len(t, result.Links, 1)
	assert.Equal(t, env.child.Root, result.Links[0].Repository)
}

func TestRunBackup_DryRun(t *testing.T) {
	env := setupChain(t)
	env.eng.latest[env.child.Root] = "2024-12-31_10:00:00"

	result, err := env.service.RunBackup(context.Background(), env.child, domain.BackupFlags{DryRun: true})
	require.NoError(t, err)
	require.Len(t, result.Links, 2)

	for _, link := range result.Links {
		assert.True(t, link.DryRun)
	}
	for _, call := range env.eng.creates {
		assert.True(t, call.Opts.DryRun, "flags propagate to every link")
	}
	assert.Empty(t, env.eng.markerSets)
	assert.Equal(t, "2024-12-31_10:00:00", env.eng.latest[env.child.Root])
}

func TestRunBackup_ForceFull(t *testing.T) {
	env := setupChain(t)
	env.eng.latest[env.child.Root] = "2024-12-31_10:00:00"
	env.eng.latest[env.parent.Root] = "2024-12-30_10:00:00"

	result, err := env.service.RunBackup(context.Background(), env.child, domain.BackupFlags{ForceFull: true})
	require.NoError(t, err)

	for _, link := range result.Links {
		assert.Equal(t, domain.BackupTypeFull, link.Type)
	}
	for _, call := range env.eng.creates {
		assert.Empty(t, call.Opts.Incremental)
	}
	assert.Len(t, env.eng.markerSets, 2)
}

func TestRunBackup_ArchiveCollision(t *testing.T) {
	env := setupChain(t)
	env.eng.archives[env.child.Root] = []string{"2025-01-01_10:00:00"}

	_, err := env.service.RunBackup(context.Background(), env.child, domain.BackupFlags{})
	assert.ErrorIs(t, err, domain.ErrArchiveExists)
	assert.Empty(t, env.eng.creates)
}

func TestRunBackup_ParentMarkerInvalid(t *testing.T) {
	env := setupChain(t)
	env.service.load = mapLoader(env.child)

	result, err := env.service.RunBackup(context.Background(), env.child, domain.BackupFlags{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Len(t, result.Links, 1)
}

func TestRunBackup_SourceInsideOwnRoot(t *testing.T) {
	env := setupChain(t)
	env.child.SourceDir = filepath.Join(env.child.Root, "data")

	result, err := env.service.RunBackup(context.Background(), env.child, domain.BackupFlags{})
	require.NoError(t, err)
	require.Len(t, result.Links, 2)
	assert.Equal(t, env.parent.Root, result.Links[1].Repository)
}

func TestRunBackup_ParentFoundFromSourceDir(t *testing.T) {
	base := t.TempDir()
	outer := makeRepo(t, filepath.Join(base, "outer"))
	elsewhere := makeRepo(t, filepath.Join(base, "elsewhere"))

	child := &domain.Repository{Root: elsewhere, SourceDir: filepath.Join(outer, "photos"), Engine: domain.EngineRsync}
	parent := &domain.Repository{Root: outer, SourceDir: outer, Engine: domain.EngineRsync}

	log, _ := newTestLogger()
	eng := newFakeEngine()
	svc := NewChainService(engine.NewRegistry(eng), NewLocator(), mapLoader(child, parent), nil, log)
	svc.clock = fixedClock(mustTime(t, "2025-01-01_10:00:00"))

	result, err := svc.RunBackup(context.Background(), child, domain.BackupFlags{})
	require.NoError(t, err)
	require.Len(t, result.Links, 2)
	assert.Equal(t, outer, result.Links[1].Repository)
}

func TestRunBackup_StopsOnCycle(t *testing.T) {
	base := t.TempDir()
	rootA := makeRepo(t, filepath.Join(base, "a"))
	rootB := makeRepo(t, filepath.Join(base, "b"))

	a := &domain.Repository{Root: rootA, SourceDir: filepath.Join(rootB, "data"), Engine: domain.EngineRsync}
	b := &domain.Repository{Root: rootB, SourceDir: filepath.Join(rootA, "data"), Engine: domain.EngineRsync}

	log, hook := newTestLogger()
	eng := newFakeEngine()
	svc := NewChainService(engine.NewRegistry(eng), NewLocator(), mapLoader(a, b), nil, log)
	svc.clock = fixedClock(mustTime(t, "2025-01-01_10:00:00"))

	result, err := svc.RunBackup(context.Background(), a, domain.BackupFlags{})
	require.NoError(t, err)
	assert.Len(t, result.Links, 2)
	assert.Len(t, eng.creates, 2)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestRunBackup_Journal(t *testing.T) {
	env := setupChain(t)
	env.eng.createErr[env.parent.Root] = errors.New("disk full")

	_, err := env.service.RunBackup(context.Background(), env.child, domain.BackupFlags{})
	require.Error(t, err)

	kind := domain.RunKindBackup
	runs, err := env.runs.ListRuns(context.Background(), repository.RunFilter{Kind: &kind})
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byRepo := map[string]*domain.Run{}
	for _, r := range runs {
		byRepo[r.Repository] = r
	}

	assert.Equal(t, domain.RunStatusSuccess, byRepo[env.child.Root].Status)
	assert.Equal(t, domain.RunStatusFailed, byRepo[env.parent.Root].Status)
	require.NotNil(t, byRepo[env.parent.Root].Error)
	assert.Contains(t, *byRepo[env.parent.Root].Error, "disk full")

	latest, err := env.runs.LatestBackup(context.Background(), env.child)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2025-01-01_10:00:00", latest.ArchiveID)
}
