package services

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/filingwatch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driven"
)

// --- Shared fakes for service tests ---

// fakeArchive implements driven.Fetcher over an in-memory file tree.
// Directories are implied by the paths of the files added to it.
type fakeArchive struct {
	mu       sync.Mutex
	files    map[string]string
	fetchErr map[string]error
	listErr  map[string]error
	// flaky answers 503 for a path while its count is positive.
	flaky    map[string]int
	listed   []string
	fetched  map[string]int
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{
		files:    make(map[string]string),
		fetchErr: make(map[string]error),
		listErr:  make(map[string]error),
		flaky:    make(map[string]int),
		fetched:  make(map[string]int),
	}
}

func (a *fakeArchive) add(p, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[p] = body
}

func (a *fakeArchive) Fetch(_ context.Context, p string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetched[p]++
	if err := a.fetchErr[p]; err != nil {
		return nil, err
	}
	if a.flaky[p] > 0 {
		a.flaky[p]--
		return nil, &domain.RemoteFetchError{Path: p, StatusCode: 503}
	}
	body, ok := a.files[p]
	if !ok {
		return nil, &domain.RemoteFetchError{Path: p, StatusCode: 404}
	}
	return []byte(body), nil
}

func (a *fakeArchive) ListDirectory(_ context.Context, dir string) (*driven.DirectoryListing, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listed = append(a.listed, dir)
	if err := a.listErr[dir]; err != nil {
		return nil, err
	}

	prefix := strings.TrimSuffix(dir, "/") + "/"
	seen := make(map[string]bool)
	listing := &driven.DirectoryListing{}
	listing.Directory.Name = dir
	for p := range a.files {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok {
			continue
		}
		name, _, nested := strings.Cut(rest, "/")
		if seen[name] {
			continue
		}
		seen[name] = true
		item := driven.DirectoryItem{Name: name, Href: path.Join(dir, name), Type: "file"}
		if nested {
			item.Type = "dir"
		}
		listing.Directory.Items = append(listing.Directory.Items, item)
	}
	return listing, nil
}

func (a *fakeArchive) listedDirs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.listed...)
}

func (a *fakeArchive) fetchCount(p string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fetched[p]
}

// countingFilingStore wraps the memory store, counts writes and can be
// told to reject writes.
type countingFilingStore struct {
	*memory.FilingStore

	mu     sync.Mutex
	writes int

	// rejectForms fails writes of filings that carry FormData.
	rejectForms bool
	// rejectAll fails every write.
	rejectAll bool
	// latestErr fails LatestFiledDate.
	latestErr error
}

func newCountingFilingStore() *countingFilingStore {
	return &countingFilingStore{FilingStore: memory.NewFilingStore()}
}

func (s *countingFilingStore) check(filing *domain.OwnershipFiling) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectAll {
		return errors.New("disk full")
	}
	if s.rejectForms && filing.FormData != nil {
		return errors.New("form payload too large")
	}
	s.writes++
	return nil
}

func (s *countingFilingStore) Insert(ctx context.Context, filing *domain.OwnershipFiling) error {
	if err := s.check(filing); err != nil {
		return err
	}
	return s.FilingStore.Insert(ctx, filing)
}

func (s *countingFilingStore) Replace(ctx context.Context, filing *domain.OwnershipFiling) error {
	if err := s.check(filing); err != nil {
		return err
	}
	return s.FilingStore.Replace(ctx, filing)
}

func (s *countingFilingStore) LatestFiledDate(ctx context.Context) (time.Time, error) {
	if s.latestErr != nil {
		return time.Time{}, s.latestErr
	}
	return s.FilingStore.LatestFiledDate(ctx)
}

func (s *countingFilingStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// fakeMailer implements driven.Mailer and records sent messages.
type fakeMailer struct {
	mu       sync.Mutex
	disabled bool
	sendErr  error
	sent     []driven.Message
}

func (m *fakeMailer) Enabled() bool {
	return !m.disabled
}

func (m *fakeMailer) Send(_ context.Context, msg driven.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disabled {
		return domain.ErrMailDisabled
	}
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) messages() []driven.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driven.Message(nil), m.sent...)
}

// fixedClock returns successive instants one second apart from start.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}
