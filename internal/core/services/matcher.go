package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driven"
	"github.com/custodia-labs/filingwatch/internal/logger"
)

// SubscriptionMatcher finds newly stored filings for each subscription
// and sends one digest per user.
type SubscriptionMatcher struct {
	subscriptions driven.SubscriptionStore
	users         driven.UserStore
	filings       driven.FilingStore
	mailer        driven.Mailer
	composer      *DigestComposer
}

// NewSubscriptionMatcher creates a matcher.
func NewSubscriptionMatcher(
	subscriptions driven.SubscriptionStore,
	users driven.UserStore,
	filings driven.FilingStore,
	mailer driven.Mailer,
	composer *DigestComposer,
) *SubscriptionMatcher {
	if composer == nil {
		composer = NewDigestComposer("")
	}
	return &SubscriptionMatcher{
		subscriptions: subscriptions,
		users:         users,
		filings:       filings,
		mailer:        mailer,
		composer:      composer,
	}
}

// Notify evaluates every subscription and returns the number of users
// sent a digest. Store failures are returned; a failed send is logged
// and leaves that user's subscriptions untouched for the next run.
func (m *SubscriptionMatcher) Notify(ctx context.Context) (int, error) {
	if m.mailer == nil || !m.mailer.Enabled() {
		logger.Warn("matcher: mail relay not configured, notifications disabled for this run")
		return 0, nil
	}

	groups, err := m.subscriptions.ListGroupedByUser(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}

	notified := 0
	var errs []error
	for _, group := range groups {
		sent, err := m.notifyUser(ctx, group)
		if sent {
			notified++
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return notified, errors.Join(errs...)
}

// Match returns the digest sections for one user's subscriptions.
// Subscriptions with no new filings produce no section.
func (m *SubscriptionMatcher) Match(ctx context.Context, subs []domain.Subscription) ([]domain.DigestSection, error) {
	var sections []domain.DigestSection
	for _, sub := range subs {
		filings, err := m.filings.Query(ctx, QueryFor(sub))
		if err != nil {
			return nil, fmt.Errorf("query filings for subscription %s: %w", sub.ID, err)
		}
		if len(filings) == 0 {
			continue
		}
		sections = append(sections, domain.DigestSection{Subscription: sub, Filings: filings})
	}
	return sections, nil
}

// QueryFor builds the store query for a subscription's open window.
func QueryFor(sub domain.Subscription) domain.FilingQuery {
	return domain.FilingQuery{
		IngestedAfter: sub.WindowStart(),
		IssuerCIKs:    domain.NormalizeCIKs(sub.IssuerCIKs),
		OwnerCIKs:     domain.NormalizeCIKs(sub.OwnerCIKs),
		FormTypes:     sub.FormTypes,
	}
}

func (m *SubscriptionMatcher) notifyUser(ctx context.Context, group domain.UserSubscriptions) (bool, error) {
	sections, err := m.Match(ctx, group.Subscriptions)
	if err != nil {
		return false, err
	}
	if len(sections) == 0 {
		return false, nil
	}

	user, err := m.users.Get(ctx, group.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("matcher: user %s not found, skipping %d sections", group.UserID, len(sections))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get user %s: %w", group.UserID, err)
	}

	msg, err := m.composer.Compose(user, sections)
	if err != nil {
		return false, fmt.Errorf("compose digest for %s: %w", user.ID, err)
	}
	if err := m.mailer.Send(ctx, msg); err != nil {
		logger.Error("matcher: send digest to %s: %v", user.ID, err)
		return false, nil
	}

	for _, section := range sections {
		at := section.LastIngestedAt()
		if err := m.subscriptions.UpdateLastTriggered(ctx, section.Subscription.ID, at); err != nil {
			return true, fmt.Errorf("update subscription %s: %w", section.Subscription.ID, err)
		}
	}
	logger.Info("Sent digest to user %s with %d sections", user.ID, len(sections))
	return true, nil
}
