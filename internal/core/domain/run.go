package domain

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

type RunKind string

const (
	RunKindBackup RunKind = "backup"
	RunKindDelete RunKind = "delete"
)

// Run is a journal entry for one engine call against a repository.
type Run struct {
	ID          string     `db:"id"`
	Repository  string     `db:"repository"`
	ArchiveID   string     `db:"archive_id"`
	Kind        RunKind    `db:"kind"`
	BackupType  *string    `db:"backup_type"`  // Only set for backups
	FromArchive *string    `db:"from_archive"` // For incremental backups
	DryRun      bool       `db:"dry_run"`
	Status      RunStatus  `db:"status"`
	Error       *string    `db:"error"`
	StartTime   time.Time  `db:"start_time"`
	EndTime     *time.Time `db:"end_time"`
}

func NewRun(repo *Repository, archiveID string, kind RunKind) *Run {
	return &Run{
		ID:         uuid.New().String(),
		Repository: repo.Root,
		ArchiveID:  archiveID,
		Kind:       kind,
		Status:     RunStatusRunning,
		StartTime:  time.Now(),
	}
}

func NewBackupRun(repo *Repository, link *ChainLink) *Run {
	run := NewRun(repo, link.ArchiveID, RunKindBackup)
	backupType := string(link.Type)
	run.BackupType = &backupType
	run.FromArchive = link.FromArchive
	run.DryRun = link.DryRun
	return run
}

func (r *Run) Complete() {
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusSuccess
}

func (r *Run) Fail(err error) {
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusFailed
	if err != nil {
		msg := err.Error()
		r.Error = &msg
	}
}

func (r *Run) IsComplete() bool {
	return r.Status == RunStatusSuccess || r.Status == RunStatusFailed
}

func (r *Run) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
