package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driven"
)

// Ensure FilingStore implements the interface.
var _ driven.FilingStore = (*FilingStore)(nil)

// FilingStore is an in-memory implementation of driven.FilingStore.
type FilingStore struct {
	mu      sync.RWMutex
	filings map[string]domain.OwnershipFiling
}

// NewFilingStore creates a new in-memory filing store.
func NewFilingStore() *FilingStore {
	return &FilingStore{
		filings: make(map[string]domain.OwnershipFiling),
	}
}

// Get retrieves a filing by ID.
func (s *FilingStore) Get(_ context.Context, id string) (*domain.OwnershipFiling, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.filings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneFiling(f)
	return &out, nil
}

// FiledDate returns the stored filed date of a filing.
func (s *FilingStore) FiledDate(_ context.Context, id string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.filings[id]
	if !ok {
		return time.Time{}, domain.ErrNotFound
	}
	return f.FiledDate, nil
}

// Insert stores a new filing.
func (s *FilingStore) Insert(_ context.Context, filing *domain.OwnershipFiling) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.filings[filing.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.filings[filing.ID] = cloneFiling(*filing)
	return nil
}

// Replace overwrites a filing, keeping its original IngestedAt.
func (s *FilingStore) Replace(_ context.Context, filing *domain.OwnershipFiling) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.filings[filing.ID]
	if !ok {
		return domain.ErrNotFound
	}
	f := cloneFiling(*filing)
	f.IngestedAt = existing.IngestedAt
	s.filings[filing.ID] = f
	return nil
}

// LatestFiledDate returns the most recent filed date.
func (s *FilingStore) LatestFiledDate(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest time.Time
	for _, f := range s.filings {
		if f.FiledDate.After(latest) {
			latest = f.FiledDate
		}
	}
	return latest, nil
}

// Query returns matching filings ordered by IngestedAt ascending.
func (s *FilingStore) Query(_ context.Context, q domain.FilingQuery) ([]domain.OwnershipFiling, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.OwnershipFiling
	for _, f := range s.filings {
		if q.Matches(&f) {
			out = append(out, cloneFiling(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IngestedAt.Equal(out[j].IngestedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].IngestedAt.Before(out[j].IngestedAt)
	})
	return out, nil
}

// Count returns the number of stored filings.
func (s *FilingStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filings)
}

func cloneFiling(f domain.OwnershipFiling) domain.OwnershipFiling {
	f.OwnerCIKs = append([]string(nil), f.OwnerCIKs...)
	f.Documents = append([]domain.EmbeddedDocument(nil), f.Documents...)
	return f
}
