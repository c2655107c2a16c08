package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driven"
)

// Ensure the stores implement the interfaces.
var (
	_ driven.SubscriptionStore = (*SubscriptionStore)(nil)
	_ driven.UserStore         = (*UserStore)(nil)
)

// SubscriptionStore is an in-memory implementation of driven.SubscriptionStore.
type SubscriptionStore struct {
	mu   sync.RWMutex
	subs map[string]domain.Subscription
}

// NewSubscriptionStore creates a new in-memory subscription store.
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{
		subs: make(map[string]domain.Subscription),
	}
}

// Save stores or updates a subscription.
func (s *SubscriptionStore) Save(_ context.Context, sub *domain.Subscription) error {
	if sub.UserID == "" {
		return domain.ErrInvalidInput
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.ID] = cloneSubscription(*sub)
	return nil
}

// Get retrieves a subscription by ID.
func (s *SubscriptionStore) Get(_ context.Context, id string) (*domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneSubscription(sub)
	return &out, nil
}

// Delete removes a subscription.
func (s *SubscriptionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.subs, id)
	return nil
}

// ListGroupedByUser returns subscriptions grouped by user.
func (s *SubscriptionStore) ListGroupedByUser(_ context.Context) ([]domain.UserSubscriptions, error) {
	s.mu.RLock()
	byUser := make(map[string][]domain.Subscription)
	for _, sub := range s.subs {
		byUser[sub.UserID] = append(byUser[sub.UserID], cloneSubscription(sub))
	}
	s.mu.RUnlock()

	groups := make([]domain.UserSubscriptions, 0, len(byUser))
	for userID, subs := range byUser {
		sort.Slice(subs, func(i, j int) bool {
			if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
				return subs[i].ID < subs[j].ID
			}
			return subs[i].CreatedAt.Before(subs[j].CreatedAt)
		})
		groups = append(groups, domain.UserSubscriptions{UserID: userID, Subscriptions: subs})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].UserID < groups[j].UserID
	})
	return groups, nil
}

// UpdateLastTriggered advances LastTriggered, never moving it backwards.
func (s *SubscriptionStore) UpdateLastTriggered(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if sub.LastTriggered != nil && !at.After(*sub.LastTriggered) {
		return nil
	}
	sub.LastTriggered = &at
	s.subs[id] = sub
	return nil
}

func cloneSubscription(sub domain.Subscription) domain.Subscription {
	sub.IssuerCIKs = append([]string(nil), sub.IssuerCIKs...)
	sub.OwnerCIKs = append([]string(nil), sub.OwnerCIKs...)
	sub.FormTypes = append([]string(nil), sub.FormTypes...)
	if sub.LastTriggered != nil {
		t := *sub.LastTriggered
		sub.LastTriggered = &t
	}
	return sub
}

// UserStore is an in-memory implementation of driven.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[string]domain.User),
	}
}

// Get retrieves a user by ID.
func (s *UserStore) Get(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

// Save stores or updates a user.
func (s *UserStore) Save(_ context.Context, user *domain.User) error {
	if user.Email == "" {
		return domain.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	return nil
}
