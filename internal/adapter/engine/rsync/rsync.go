// Package rsync implements the hard-link mirroring engine. Every archive is a
// directory under the storage location; unchanged files are hard links into
// the previous archive through rsync --link-dest.
package rsync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/martijn/snapchain/internal/adapter/process"
	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/martijn/snapchain/internal/core/engine"
	"github.com/sirupsen/logrus"
)

const (
	// LatestLink is the symlink in the storage directory naming the most
	// recent archive.
	LatestLink = "latest"
	tmpPrefix  = ".tmp-"
)

type Engine struct {
	bin  string
	exec process.Executor
	log  logrus.FieldLogger
}

func New(bin string, exec process.Executor, log logrus.FieldLogger) *Engine {
	if bin == "" {
		bin = "rsync"
	}
	return &Engine{bin: bin, exec: exec, log: log}
}

func (e *Engine) Name() domain.EngineName {
	return domain.EngineRsync
}

func (e *Engine) Init(ctx context.Context, repo *domain.Repository) error {
	if err := os.MkdirAll(repo.Storage, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	return nil
}

// List returns the archive directories in storage, skipping the latest alias
// and transfers that never completed.
func (e *Engine) List(ctx context.Context, repo *domain.Repository) ([]string, error) {
	entries, err := os.ReadDir(repo.Storage)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	var ids []string
	for _, ent := range entries {
		name := ent.Name()
		if !ent.IsDir() || name == LatestLink || strings.HasPrefix(name, tmpPrefix) {
			continue
		}
		ids = append(ids, name)
	}
	return ids, nil
}

// BuildCreateCmd builds the rsync invocation that mirrors the source into dst.
func (e *Engine) BuildCreateCmd(repo *domain.Repository, dst string, opts engine.CreateOptions) []string {
	cmd := []string{
		e.bin,
		"--archive",
		"--delete",
	}

	if opts.DryRun {
		cmd = append(cmd, "--dry-run")
	}

	// Incremental backup
	if opts.Incremental != "" {
		cmd = append(cmd, fmt.Sprintf("--link-dest=%s", filepath.Join(repo.Storage, opts.Incremental)))
	}

	for _, pattern := range opts.Excludes {
		cmd = append(cmd, fmt.Sprintf("--exclude=%s", pattern))
	}

	// Trailing slashes copy the contents, not the directory itself
	return append(cmd, withSlash(repo.SourceDir), withSlash(dst))
}

func (e *Engine) Create(ctx context.Context, repo *domain.Repository, id string, opts engine.CreateOptions) error {
	if err := validateID(id); err != nil {
		return err
	}

	finalDir := filepath.Join(repo.Storage, id)
	if _, err := os.Lstat(finalDir); err == nil {
		return fmt.Errorf("%w: %s", domain.ErrArchiveExists, finalDir)
	}

	tmpDir := filepath.Join(repo.Storage, tmpPrefix+id)
	if err := os.RemoveAll(tmpDir); err != nil {
		return fmt.Errorf("failed to clear stale transfer: %w", err)
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("failed to create transfer directory: %w", err)
	}

	log := e.log.WithFields(logrus.Fields{"repository": repo.Root, "archive": id, "tmp_dir": tmpDir})
	if _, err := e.exec.Run(ctx, e.BuildCreateCmd(repo, tmpDir, opts), process.Options{Dir: repo.Root}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return err
	}

	if opts.DryRun {
		log.Debug("dry run complete, discarding transfer directory")
		return os.RemoveAll(tmpDir)
	}

	// Finalize atomically
	if err := renameWithRetry(ctx, tmpDir, finalDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("finalizing archive: %w", err)
	}
	log.Debug("archive finalized")
	return nil
}

func (e *Engine) Delete(ctx context.Context, repo *domain.Repository, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	path := filepath.Join(repo.Storage, id)
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("archive %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to stat archive %s: %w", id, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("refusing to delete non-directory archive: %s", path)
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete archive: %w", err)
	}
	return nil
}

// MostRecent follows the latest link. A dangling link counts as no archive.
func (e *Engine) MostRecent(ctx context.Context, repo *domain.Repository) (string, error) {
	target, err := os.Readlink(filepath.Join(repo.Storage, LatestLink))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read latest link: %w", err)
	}

	id := filepath.Base(target)
	if _, err := os.Stat(filepath.Join(repo.Storage, id)); err != nil {
		e.log.WithFields(logrus.Fields{"repository": repo.Root, "target": target}).
			Warn("latest link is dangling, ignoring it")
		return "", nil
	}
	return id, nil
}

// UpdateMostRecent swaps the latest link by renaming a fresh symlink over it.
func (e *Engine) UpdateMostRecent(ctx context.Context, repo *domain.Repository, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(repo.Storage, id)); err != nil {
		return fmt.Errorf("archive %s: %w", id, domain.ErrNotFound)
	}

	tmpLink := filepath.Join(repo.Storage, tmpPrefix+"latest-"+uuid.New().String())
	if err := os.Symlink(id, tmpLink); err != nil {
		return fmt.Errorf("failed to create latest link: %w", err)
	}
	if err := os.Rename(tmpLink, filepath.Join(repo.Storage, LatestLink)); err != nil {
		_ = os.Remove(tmpLink)
		return fmt.Errorf("failed to replace latest link: %w", err)
	}
	return nil
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || id != filepath.Base(id) ||
		id == LatestLink || strings.HasPrefix(id, tmpPrefix) {
		return fmt.Errorf("%w: invalid archive identifier %q", domain.ErrConfiguration, id)
	}
	return nil
}

func withSlash(path string) string {
	return strings.TrimSuffix(path, string(filepath.Separator)) + string(filepath.Separator)
}
