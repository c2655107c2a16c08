package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

// FilingStore persists ownership filings keyed by filing identifier.
type FilingStore interface {
	// Get retrieves a filing by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.OwnershipFiling, error)

	// FiledDate returns only the stored filed date of a filing.
	// Returns domain.ErrNotFound if absent.
	FiledDate(ctx context.Context, id string) (time.Time, error)

	// Insert stores a new filing. Returns domain.ErrAlreadyExists on conflict.
	Insert(ctx context.Context, filing *domain.OwnershipFiling) error

	// Replace overwrites a filing by ID, keeping its original IngestedAt.
	Replace(ctx context.Context, filing *domain.OwnershipFiling) error

	// LatestFiledDate returns the most recent stored filed date,
	// or the zero time when the store is empty.
	LatestFiledDate(ctx context.Context) (time.Time, error)

	// Query returns filings matching q, ordered by IngestedAt ascending.
	Query(ctx context.Context, q domain.FilingQuery) ([]domain.OwnershipFiling, error)
}
