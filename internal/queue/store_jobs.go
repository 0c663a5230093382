package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Enqueue inserts a new job and returns the stored row.
func (s *Store) Enqueue(ctx context.Context, job NewJob) (*Job, error) {
	if job.TaskType <= 0 {
		return nil, fmt.Errorf("enqueue job: task type must be positive, got %d", job.TaskType)
	}
	now := s.now()
	scheduled := job.ScheduledAt
	if scheduled.IsZero() {
		scheduled = now
	}
	timestamp := formatTimestamp(now)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (task_type, subtask, focus, scheduled_at, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		job.TaskType,
		nullableString(job.Subtask),
		nullableString(job.Focus),
		toMillis(scheduled),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. It returns nil, nil when the row is gone.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.handle().QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return job, nil
}

// FindEligible returns the oldest job of jobType that is due and whose id is
// not in exclude. It returns nil, nil when nothing qualifies.
func (s *Store) FindEligible(ctx context.Context, jobType int, exclude []int64) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE task_type = ? AND scheduled_at <= ?`
	args := []any{jobType, toMillis(s.now())}
	if len(exclude) > 0 {
		query += ` AND id NOT IN (` + makePlaceholders(len(exclude)) + `)`
		args = append(args, int64Args(exclude)...)
	}
	query += ` ORDER BY scheduled_at, id LIMIT 1`

	ctx = ensureContext(ctx)
	var job *Job
	err := retryOnBusy(ctx, func() error {
		var scanErr error
		job, scanErr = scanJob(s.handle().QueryRowContext(ctx, query, args...))
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find eligible job for type %d: %w", jobType, err)
	}
	return job, nil
}

// Complete deletes a finished job. A missing row counts as success, and a row
// that was already moved into the future by Reschedule is left alone.
func (s *Store) Complete(ctx context.Context, id int64) error {
	_, err := s.execWithRetry(ctx,
		`DELETE FROM jobs WHERE id = ? AND scheduled_at <= ?`,
		id, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("complete job %d: %w", id, err)
	}
	return nil
}

// List returns jobs ordered by due time.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Job, error) {
	var (
		where []string
		args  []any
	)
	if filter.TaskType > 0 {
		where = append(where, "task_type = ?")
		args = append(args, filter.TaskType)
	}
	if filter.DueOnly {
		where = append(where, "scheduled_at <= ?")
		args = append(args, toMillis(s.now()))
	}
	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY scheduled_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.handle().QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Remove deletes the given jobs regardless of schedule and reports how many rows went away.
func (s *Store) Remove(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.execWithRetry(ctx,
		`DELETE FROM jobs WHERE id IN (`+makePlaceholders(len(ids))+`)`,
		int64Args(ids)...,
	)
	if err != nil {
		return 0, fmt.Errorf("remove jobs: %w", err)
	}
	return res.RowsAffected()
}

// Clear deletes every job.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}
