package driven

import (
	"context"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

// SchedulerStore keeps the ingestion task's schedule and its attempt
// history, so a restarted scheduler resumes where the last one stopped.
type SchedulerStore interface {
	// GetTask returns the task with the given ID, or nil when none is stored.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	// SaveTask upserts the task keyed by its ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// RecordResult appends a triggered run to the task's history.
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns at most limit results, newest first.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory drops all but the newest keep results of each task.
	PruneHistory(ctx context.Context, keep int) error
}
