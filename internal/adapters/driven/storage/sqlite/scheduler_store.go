package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driven"
)

const taskColumns = "id, name, interval_ns, enabled, last_run, next_run, last_success, last_error"

// schedulerStore implements driven.SchedulerStore over the scheduled_tasks
// and task_runs tables.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM scheduled_tasks WHERE id = ?", taskID)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil || task.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_ns = excluded.interval_ns,
			enabled = excluded.enabled,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_success = excluded.last_success,
			last_error = excluded.last_error
	`, task.ID, task.Name, int64(task.Interval), task.Enabled,
		unixNano(task.LastRun), unixNano(task.NextRun), unixNano(task.LastSuccess),
		nullString(task.LastError))
	if err != nil {
		return fmt.Errorf("saving task %s: %w", task.ID, err)
	}
	return nil
}

func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil || result.TaskID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO task_runs (task_id, started_at, ended_at, success, error, attempts, filings_written)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, result.TaskID, result.StartedAt.UnixNano(), result.EndedAt.UnixNano(), result.Success,
		nullString(result.Error), result.Attempts, result.ItemsProcessed)
	if err != nil {
		return fmt.Errorf("recording run of %s: %w", result.TaskID, err)
	}
	return nil
}

func (s *schedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT task_id, started_at, ended_at, success, error, attempts, filings_written
		FROM task_runs
		WHERE task_id = ?
		ORDER BY started_at DESC, seq DESC
		LIMIT ?
	`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs of %s: %w", taskID, err)
	}
	defer rows.Close()

	var history []domain.TaskResult
	for rows.Next() {
		var r domain.TaskResult
		var started, ended int64
		var errMsg sql.NullString
		if err := rows.Scan(&r.TaskID, &started, &ended, &r.Success, &errMsg,
			&r.Attempts, &r.ItemsProcessed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = time.Unix(0, started).UTC()
		r.EndedAt = time.Unix(0, ended).UTC()
		r.Error = errMsg.String
		history = append(history, r)
	}
	return history, rows.Err()
}

func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM task_runs
		WHERE seq IN (
			SELECT seq FROM (
				SELECT seq, ROW_NUMBER() OVER (
					PARTITION BY task_id ORDER BY started_at DESC, seq DESC
				) AS pos
				FROM task_runs
			) WHERE pos > ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning run history: %w", err)
	}
	return nil
}

func scanTask(row scanner) (*domain.ScheduledTask, error) {
	var task domain.ScheduledTask
	var interval int64
	var lastRun, nextRun, lastSuccess sql.NullInt64
	var lastError sql.NullString

	if err := row.Scan(&task.ID, &task.Name, &interval, &task.Enabled,
		&lastRun, &nextRun, &lastSuccess, &lastError); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	task.Interval = time.Duration(interval)
	task.LastRun = fromUnixNano(lastRun)
	task.NextRun = fromUnixNano(nextRun)
	task.LastSuccess = fromUnixNano(lastSuccess)
	task.LastError = lastError.String
	return &task, nil
}

// unixNano stores the zero time as NULL.
func unixNano(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixNano()
}

func fromUnixNano(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(0, v.Int64).UTC()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
