package driving

import (
	"context"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

// SubscriptionService manages subscribers and their saved filters.
type SubscriptionService interface {
	// AddUser registers a subscriber. An email address is required.
	AddUser(ctx context.Context, user domain.User) (*domain.User, error)

	// Subscribe saves a filter set for an existing user. CIKs are
	// normalised and the creation time opens the match window.
	Subscribe(ctx context.Context, sub domain.Subscription) (*domain.Subscription, error)

	// List returns every subscription grouped by user.
	List(ctx context.Context) ([]domain.UserSubscriptions, error)

	// Unsubscribe deletes a subscription.
	Unsubscribe(ctx context.Context, id string) error
}
