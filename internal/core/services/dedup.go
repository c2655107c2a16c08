package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driven"
)

// FilingDeduplicator decides create, update or skip for discovered filings.
type FilingDeduplicator struct {
	store driven.FilingStore
}

// NewFilingDeduplicator creates a deduplicator backed by store.
func NewFilingDeduplicator(store driven.FilingStore) *FilingDeduplicator {
	return &FilingDeduplicator{store: store}
}

// Unique drops repeated filing identifiers, keeping the first occurrence.
func Unique(refs []domain.FilingReference) []domain.FilingReference {
	seen := make(map[string]struct{}, len(refs))
	out := make([]domain.FilingReference, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.FilingID]; ok {
			continue
		}
		seen[ref.FilingID] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// Decide returns the action for one reference, and the stored filed date
// when the action is an update.
func (d *FilingDeduplicator) Decide(ctx context.Context, ref domain.FilingReference) (domain.FilingAction, time.Time, error) {
	stored, err := d.store.FiledDate(ctx, ref.FilingID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ActionCreate, time.Time{}, nil
	}
	if err != nil {
		return domain.ActionNone, time.Time{}, fmt.Errorf("lookup filing %s: %w", ref.FilingID, err)
	}

	if domain.DayOf(stored).Before(domain.DayOf(ref.FiledDate)) {
		return domain.ActionUpdate, stored, nil
	}
	return domain.ActionSkip, time.Time{}, nil
}

// Deduplicate tags every unique reference and returns those that need a
// write. skipped counts references dropped as already current.
func (d *FilingDeduplicator) Deduplicate(ctx context.Context, refs []domain.FilingReference) (pending []domain.FilingReference, skipped int, err error) {
	for _, ref := range Unique(refs) {
		action, stored, err := d.Decide(ctx, ref)
		if err != nil {
			return nil, skipped, err
		}
		if action == domain.ActionSkip {
			skipped++
			continue
		}
		ref.Action = action
		ref.StoredFiledDate = stored
		pending = append(pending, ref)
	}
	return pending, skipped, nil
}
