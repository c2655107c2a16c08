package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

// SubscriptionStore persists notification subscriptions.
type SubscriptionStore interface {
	// Save stores or updates a subscription. An empty ID is assigned one.
	Save(ctx context.Context, sub *domain.Subscription) error

	// Get retrieves a subscription by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Subscription, error)

	// Delete removes a subscription. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// ListGroupedByUser returns subscriptions grouped by user, users with
	// no subscriptions omitted. Groups and their entries are ordered by ID
	// and creation time respectively.
	ListGroupedByUser(ctx context.Context) ([]domain.UserSubscriptions, error)

	// UpdateLastTriggered advances LastTriggered. Values that would move it
	// backwards are ignored.
	UpdateLastTriggered(ctx context.Context, id string, at time.Time) error
}

// UserStore reads subscribers.
type UserStore interface {
	// Get retrieves a user by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.User, error)

	// Save stores or updates a user. An empty ID is assigned one.
	Save(ctx context.Context, user *domain.User) error
}
