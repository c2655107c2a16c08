package driving

import (
	"context"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

// Ingestor runs the filing ingestion pipeline.
type Ingestor interface {
	// RunOnce performs one full ingestion run, including subscription
	// matching. Per-filing failures are counted in the report; only
	// run-level failures are returned as *domain.RunError.
	RunOnce(ctx context.Context) (*domain.RunReport, error)

	// State returns the current step of the ingestion state machine.
	State() domain.RunState
}
