package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/martijn/snapchain/internal/core/repository"
)

const runColumns = `id, repository, archive_id, kind, backup_type, from_archive, dry_run, status, error, start_time, end_time`

type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) repository.RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Create(ctx context.Context, run *domain.Run) error {
	query := `
		INSERT INTO run (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Repository,
		run.ArchiveID,
		run.Kind,
		NullString(run.BackupType),
		NullString(run.FromArchive),
		run.DryRun,
		run.Status,
		NullString(run.Error),
		run.StartTime,
		NullTime(run.EndTime),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func (r *runRepository) FindByID(ctx context.Context, id string) (*domain.Run, error) {
	var run domain.Run
	err := r.db.GetContext(ctx, &run, `SELECT `+runColumns+` FROM run WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	return &run, nil
}

func (r *runRepository) Update(ctx context.Context, run *domain.Run) error {
	query := `
		UPDATE run
		SET status = ?, error = ?, end_time = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		run.Status,
		NullString(run.Error),
		NullTime(run.EndTime),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run %s: %w", run.ID, domain.ErrNotFound)
	}

	return nil
}

func (r *runRepository) List(ctx context.Context, filter repository.RunFilter) ([]*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM run WHERE 1=1`
	args := []interface{}{}

	var filters []Filter
	if filter.Repository != nil {
		filters = append(filters, Filter{Field: "repository", Operator: OpEq, Value: *filter.Repository})
	}
	if filter.Kind != nil {
		filters = append(filters, Filter{Field: "kind", Operator: OpEq, Value: string(*filter.Kind)})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			statuses[i] = string(status)
		}
		filters = append(filters, Filter{Field: "status", Operator: OpIn, Value: statuses})
	}

	query, args = ApplyFilters(query, args, filters)
	query += " ORDER BY start_time DESC"
	query, args = ApplyLimit(query, args, filter.Limit)

	var runs []*domain.Run
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func (r *runRepository) FindLatestBackup(ctx context.Context, repo string) (*domain.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM run
		WHERE repository = ? AND kind = ? AND status = ? AND dry_run = 0
		ORDER BY start_time DESC
		LIMIT 1
	`

	var run domain.Run
	err := r.db.GetContext(ctx, &run, query, repo, domain.RunKindBackup, domain.RunStatusSuccess)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // No backup yet is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest backup: %w", err)
	}
	return &run, nil
}
