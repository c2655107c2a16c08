package domain

import "time"

// User is a subscriber who receives digests.
type User struct {
	ID    string
	Email string
	Name  string
}

// Subscription is a user's saved filter set. An empty list matches
// every value on that dimension.
type Subscription struct {
	// ID is the unique identifier for the subscription.
	ID string

	// UserID links to the owning User.
	UserID string

	// IssuerCIKs restricts matches to these issuers.
	IssuerCIKs []string

	// OwnerCIKs restricts matches to these reporting owners.
	OwnerCIKs []string

	// FormTypes restricts matches to these form types.
	FormTypes []string

	// Description is the human-readable label shown in digests.
	Description string

	// CreatedAt is when the subscription was created.
	CreatedAt time.Time

	// LastTriggered is the ingestion time of the last notified match.
	// It only ever moves forward.
	LastTriggered *time.Time
}

// WindowStart returns the exclusive lower bound of the match window.
func (s *Subscription) WindowStart() time.Time {
	if s.LastTriggered != nil {
		return *s.LastTriggered
	}
	return s.CreatedAt
}

// UserSubscriptions groups the subscriptions of one user.
type UserSubscriptions struct {
	UserID        string
	Subscriptions []Subscription
}

// FilingQuery selects stored filings for subscription matching.
type FilingQuery struct {
	// IngestedAfter is an exclusive lower bound on IngestedAt.
	IngestedAfter time.Time

	IssuerCIKs []string
	OwnerCIKs  []string
	FormTypes  []string
}

// Matches reports whether a filing satisfies the query.
func (q FilingQuery) Matches(f *OwnershipFiling) bool {
	if !f.IngestedAt.After(q.IngestedAfter) {
		return false
	}
	if len(q.FormTypes) > 0 && !contains(q.FormTypes, f.FormType) {
		return false
	}
	if len(q.IssuerCIKs) > 0 && !contains(q.IssuerCIKs, f.IssuerCIK) {
		return false
	}
	if len(q.OwnerCIKs) > 0 {
		found := false
		for _, owner := range f.OwnerCIKs {
			if contains(q.OwnerCIKs, owner) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// DigestSection is the part of a digest produced by one subscription.
type DigestSection struct {
	Subscription Subscription
	Filings      []OwnershipFiling
}

// LastIngestedAt returns the ingestion time of the section's last filing.
func (d DigestSection) LastIngestedAt() time.Time {
	if len(d.Filings) == 0 {
		return time.Time{}
	}
	return d.Filings[len(d.Filings)-1].IngestedAt
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
