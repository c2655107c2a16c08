package driving

import (
	"context"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

// Scheduler triggers ingestion runs on a daily schedule.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the loop and waits for an in-flight run.
	Stop() error

	// Trigger runs ingestion now with retries. It returns
	// domain.ErrRunInProgress without running when a run is in flight.
	Trigger(ctx context.Context) (*domain.TaskResult, error)

	// Status returns the ingestion task and up to limit recent runs.
	Status(ctx context.Context, limit int) (*domain.TaskStatus, error)
}
