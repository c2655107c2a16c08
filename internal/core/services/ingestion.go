package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driven"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driving"
	"github.com/custodia-labs/filingwatch/internal/logger"
	"github.com/custodia-labs/filingwatch/internal/normalisers/idx"
	"github.com/custodia-labs/filingwatch/internal/normalisers/ownership"
	"github.com/custodia-labs/filingwatch/internal/normalisers/submission"
)

// Ensure IngestionOrchestrator implements the interface.
var _ driving.Ingestor = (*IngestionOrchestrator)(nil)

// DefaultFormTypes are the ownership forms and their amendments.
var DefaultFormTypes = []string{"3", "3/A", "4", "4/A", "5", "5/A"}

const (
	defaultConcurrency = 4

	// batchSize bounds how many fetched submissions are held before they
	// are written.
	batchSize = 64
)

// IngestionOptions tunes an orchestrator.
type IngestionOptions struct {
	// FormTypes keeps only index lines with these form types.
	// Empty keeps every line.
	FormTypes []string

	// Concurrency bounds in-flight submission fetches.
	Concurrency int

	// IndexRoot is the archive directory of daily indexes.
	IndexRoot string
}

// IngestionOrchestrator runs discovery, fetch, dedup, extraction,
// parsing and persistence, then hands over to subscription matching.
type IngestionOrchestrator struct {
	fetcher   driven.Fetcher
	filings   driven.FilingStore
	discovery *Discovery
	dedup     *FilingDeduplicator
	matcher   *SubscriptionMatcher

	formTypes   map[string]struct{}
	concurrency int
	now         func() time.Time

	mu    sync.RWMutex
	state domain.RunState
}

// NewIngestionOrchestrator creates an orchestrator. matcher is optional;
// when nil, runs end after persistence.
func NewIngestionOrchestrator(
	fetcher driven.Fetcher,
	filings driven.FilingStore,
	matcher *SubscriptionMatcher,
	opts IngestionOptions,
) *IngestionOrchestrator {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var formTypes map[string]struct{}
	if len(opts.FormTypes) > 0 {
		formTypes = make(map[string]struct{}, len(opts.FormTypes))
		for _, ft := range opts.FormTypes {
			formTypes[strings.ToUpper(strings.TrimSpace(ft))] = struct{}{}
		}
	}

	return &IngestionOrchestrator{
		fetcher:     fetcher,
		filings:     filings,
		discovery:   NewDiscovery(fetcher, opts.IndexRoot),
		dedup:       NewFilingDeduplicator(filings),
		matcher:     matcher,
		formTypes:   formTypes,
		concurrency: concurrency,
		now:         time.Now,
		state:       domain.StateIdle,
	}
}

// State returns the current step of the run state machine.
func (o *IngestionOrchestrator) State() domain.RunState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *IngestionOrchestrator) setState(state domain.RunState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
	logger.Debug("ingestion: state %s", state)
}

// RunOnce performs one full run.
func (o *IngestionOrchestrator) RunOnce(ctx context.Context) (*domain.RunReport, error) {
	started := o.now()
	report := &domain.RunReport{
		ID:        ulid.MustNew(ulid.Timestamp(started), rand.Reader).String(),
		StartedAt: started,
	}
	logger.Section("Ingestion run " + report.ID)

	fail := func(stage domain.RunState, err error) (*domain.RunReport, error) {
		o.setState(domain.StateFailed)
		report.EndedAt = o.now()
		logger.Error("ingestion: run %s failed while %s: %v", report.ID, stage, err)
		return report, &domain.RunError{RunID: report.ID, Stage: stage, Err: err}
	}

	// 1. Discover index files from the last known filed date.
	o.setState(domain.StateDiscovering)
	since, err := o.referenceDate(ctx)
	if err != nil {
		return fail(domain.StateDiscovering, err)
	}
	report.Since = since

	files, err := o.discovery.IndexFiles(ctx, since)
	if err != nil {
		return fail(domain.StateDiscovering, err)
	}
	report.IndexFiles = len(files)
	logger.Info("Found %d index files since %s", len(files), since.Format(time.DateOnly))

	// 2. Fetch and parse the index files.
	o.setState(domain.StateFetching)
	var refs []domain.FilingReference
	for _, file := range files {
		body, err := o.fetcher.Fetch(ctx, file.Path)
		if err != nil {
			logFetchFailure(file.Path, err)
			return fail(domain.StateFetching, err)
		}
		for _, ref := range idx.Parse(string(body)) {
			if o.wantForm(ref.FormType) {
				refs = append(refs, ref)
			}
		}
	}
	report.Discovered = len(refs)

	// 3. Decide create, update or skip.
	o.setState(domain.StateDeduplicating)
	pending, skipped, err := o.dedup.Deduplicate(ctx, refs)
	if err != nil {
		return fail(domain.StateDeduplicating, err)
	}
	report.Skipped = skipped
	logger.Info("Discovered %d filings: %d pending, %d already stored", len(refs), len(pending), skipped)

	// 4-5. Extract and persist in batches, oldest filed date first. The
	// next run starts from the latest stored filed date, so nothing dated
	// after a failed fetch may be stored by this run.
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].FiledDate.Before(pending[j].FiledDate)
	})
	for start := 0; start < len(pending); start += batchSize {
		end := min(start+batchSize, len(pending))
		batch := pending[start:end]

		o.setState(domain.StateExtracting)
		built, err := o.buildFilings(ctx, batch)
		if err != nil {
			return fail(domain.StateExtracting, err)
		}

		cutoff, fetchErr := fetchCutoff(batch, built)

		o.setState(domain.StatePersisting)
		deferred := 0
		for i, ref := range batch {
			switch {
			case built[i].err != nil:
				report.Failed++
				logFetchFailure(ref.Path, built[i].err)
			case fetchErr != nil && domain.DayOf(ref.FiledDate).After(cutoff):
				deferred++
			default:
				o.record(ctx, report, ref, built[i].filing)
			}
		}

		if fetchErr != nil {
			deferred += len(pending) - end
			logger.Warn("ingestion: %d filings filed after %s deferred to the retry",
				deferred, cutoff.Format(time.DateOnly))
			return fail(domain.StateFetching, fetchErr)
		}
	}

	// 6. Notify subscribers.
	if o.matcher != nil {
		o.setState(domain.StateNotifying)
		notified, err := o.matcher.Notify(ctx)
		report.Notified = notified
		if err != nil {
			return fail(domain.StateNotifying, err)
		}
	}

	o.setState(domain.StateIdle)
	report.EndedAt = o.now()
	logger.Info("Run %s complete: %d created, %d updated, %d degraded, %d failed, %d skipped, %d notified",
		report.ID, report.Created, report.Updated, report.Degraded, report.Failed, report.Skipped, report.Notified)
	return report, nil
}

// referenceDate is the latest stored filed date, or yesterday when the
// store is empty.
func (o *IngestionOrchestrator) referenceDate(ctx context.Context) (time.Time, error) {
	latest, err := o.filings.LatestFiledDate(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest filed date: %w", err)
	}
	if latest.IsZero() {
		return domain.DayOf(o.now()).AddDate(0, 0, -1), nil
	}
	return domain.DayOf(latest), nil
}

func (o *IngestionOrchestrator) wantForm(formType string) bool {
	if o.formTypes == nil {
		return true
	}
	_, ok := o.formTypes[strings.ToUpper(strings.TrimSpace(formType))]
	return ok
}

type builtFiling struct {
	filing *domain.OwnershipFiling
	err    error
}

// buildFilings fetches and extracts a batch concurrently. Per-filing
// fetch failures are reported in the result so the rest of the batch can
// still be stored; only cancellation aborts the batch.
func (o *IngestionOrchestrator) buildFilings(ctx context.Context, batch []domain.FilingReference) ([]builtFiling, error) {
	results := make([]builtFiling, len(batch))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(o.concurrency)
	for i := range batch {
		eg.Go(func() error {
			raw, err := o.fetcher.Fetch(gctx, batch[i].Path)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				results[i].err = err
				return nil
			}
			results[i].filing = BuildFiling(batch[i], string(raw))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// fetchCutoff returns the earliest filed date among failed fetches of a
// batch and the joined fetch errors, or a nil error when every fetch
// succeeded.
func fetchCutoff(batch []domain.FilingReference, built []builtFiling) (time.Time, error) {
	var cutoff time.Time
	var errs []error
	for i, ref := range batch {
		if built[i].err == nil {
			continue
		}
		errs = append(errs, built[i].err)
		filed := domain.DayOf(ref.FiledDate)
		if len(errs) == 1 || filed.Before(cutoff) {
			cutoff = filed
		}
	}
	if len(errs) == 0 {
		return time.Time{}, nil
	}
	return cutoff, fmt.Errorf("%d submission fetches failed: %w", len(errs), errors.Join(errs...))
}

// logFetchFailure logs a failed archive request, calling out throttling
// and missing paths.
func logFetchFailure(path string, err error) {
	switch {
	case domain.IsRemoteThrottled(err):
		logger.Warn("ingestion: archive throttled %s; lower FILINGWATCH_RATE_LIMIT if this persists", path)
	case domain.IsRemoteNotFound(err):
		logger.Warn("ingestion: %s is not in the archive yet", path)
	default:
		logger.Error("ingestion: fetch %s: %v", path, err)
	}
}

// BuildFiling turns a raw submission into a filing. The form is parsed
// best-effort: a missing primary document or a parse failure leaves
// FormData nil.
func BuildFiling(ref domain.FilingReference, raw string) *domain.OwnershipFiling {
	parties := submission.ParseHeader(raw)
	filing := &domain.OwnershipFiling{
		ID:         ref.FilingID,
		FormType:   ref.FormType,
		FiledDate:  domain.DayOf(ref.FiledDate),
		SourcePath: ref.Path,
		IssuerCIK:  parties.IssuerCIK,
		IssuerName: parties.IssuerName,
		OwnerCIKs:  parties.OwnerCIKs,
		Documents:  submission.Extract(raw),
	}

	doc := filing.PrimaryDocument()
	if doc == nil {
		logger.Debug("ingestion: filing %s has no primary document", filing.ID)
		return filing
	}

	form, err := ownership.Parse(doc.Content)
	if err != nil {
		logger.Warn("ingestion: filing %s: %v", filing.ID, err)
		return filing
	}
	filing.FormData = form
	filing.ApplyParties()
	return filing
}

// record persists one filing and updates the report counters.
func (o *IngestionOrchestrator) record(ctx context.Context, report *domain.RunReport, ref domain.FilingReference, filing *domain.OwnershipFiling) {
	action := ref.Action
	if action != domain.ActionCreate && action != domain.ActionUpdate {
		report.Skipped++
		logger.Debug("ingestion: filing %s has action %q, skipping", filing.ID, action)
		return
	}
	state, err := o.persist(ctx, action, filing)
	switch {
	case err != nil:
		report.Failed++
		logger.Error("ingestion: %v", err)
		return
	case state == domain.PersistWithoutForm:
		report.Degraded++
	}

	if action == domain.ActionCreate {
		report.Created++
	} else {
		report.Updated++
	}
}

// persist writes a filing with its form, then once more without it if
// the first write failed.
func (o *IngestionOrchestrator) persist(ctx context.Context, action domain.FilingAction, filing *domain.OwnershipFiling) (domain.PersistState, error) {
	now := o.now()
	filing.UpdatedAt = now
	if filing.IngestedAt.IsZero() {
		filing.IngestedAt = now
	}

	state := domain.PersistWithForm
	var errs []error
	for state != domain.PersistAbandoned {
		err := o.write(ctx, action, filing)
		if err == nil {
			return state, nil
		}
		errs = append(errs, err)
		logger.Warn("ingestion: write %s (%s) failed: %v", filing.ID, state, err)

		state = nextPersistState(state, filing.FormData != nil)
		if state == domain.PersistWithoutForm {
			degraded := *filing
			degraded.FormData = nil
			filing = &degraded
		}
	}
	return domain.PersistAbandoned, &domain.PersistenceError{FilingID: filing.ID, Err: errors.Join(errs...)}
}

// nextPersistState is the transition taken after a failed write.
func nextPersistState(state domain.PersistState, hasForm bool) domain.PersistState {
	if state == domain.PersistWithForm && hasForm {
		return domain.PersistWithoutForm
	}
	return domain.PersistAbandoned
}

func (o *IngestionOrchestrator) write(ctx context.Context, action domain.FilingAction, filing *domain.OwnershipFiling) error {
	if action == domain.ActionUpdate {
		return o.filings.Replace(ctx, filing)
	}
	return o.filings.Insert(ctx, filing)
}
