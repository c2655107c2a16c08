package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driven"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driving"
)

// Ensure SubscriptionService implements the interface.
var _ driving.SubscriptionService = (*SubscriptionService)(nil)

// SubscriptionService manages subscribers and subscriptions.
type SubscriptionService struct {
	subscriptions driven.SubscriptionStore
	users         driven.UserStore
	now           func() time.Time
}

// NewSubscriptionService creates a new subscription service.
func NewSubscriptionService(subscriptions driven.SubscriptionStore, users driven.UserStore) *SubscriptionService {
	return &SubscriptionService{
		subscriptions: subscriptions,
		users:         users,
		now:           time.Now,
	}
}

// AddUser registers a subscriber.
func (s *SubscriptionService) AddUser(ctx context.Context, user domain.User) (*domain.User, error) {
	user.Email = strings.TrimSpace(user.Email)
	if _, err := mail.ParseAddress(user.Email); err != nil {
		return nil, fmt.Errorf("%w: email %q", domain.ErrInvalidInput, user.Email)
	}
	user.Name = strings.TrimSpace(user.Name)
	if err := s.users.Save(ctx, &user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return &user, nil
}

// Subscribe saves a subscription for an existing user.
func (s *SubscriptionService) Subscribe(ctx context.Context, sub domain.Subscription) (*domain.Subscription, error) {
	if sub.UserID == "" {
		return nil, fmt.Errorf("%w: user ID is required", domain.ErrInvalidInput)
	}
	if _, err := s.users.Get(ctx, sub.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", sub.UserID, err)
		}
		return nil, fmt.Errorf("get user %s: %w", sub.UserID, err)
	}

	sub.ID = ""
	sub.IssuerCIKs = domain.NormalizeCIKs(sub.IssuerCIKs)
	sub.OwnerCIKs = domain.NormalizeCIKs(sub.OwnerCIKs)
	sub.FormTypes = normalizeFormTypes(sub.FormTypes)
	sub.Description = strings.TrimSpace(sub.Description)
	sub.CreatedAt = s.now().UTC()
	sub.LastTriggered = nil

	if err := s.subscriptions.Save(ctx, &sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	return &sub, nil
}

// List returns every subscription grouped by user.
func (s *SubscriptionService) List(ctx context.Context) ([]domain.UserSubscriptions, error) {
	return s.subscriptions.ListGroupedByUser(ctx)
}

// Unsubscribe deletes a subscription.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}
	return s.subscriptions.Delete(ctx, id)
}

func normalizeFormTypes(formTypes []string) []string {
	if len(formTypes) == 0 {
		return nil
	}
	out := make([]string, 0, len(formTypes))
	for _, ft := range formTypes {
		if ft = strings.ToUpper(strings.TrimSpace(ft)); ft != "" {
			out = append(out, ft)
		}
	}
	return out
}
