package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filingwatch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

const (
	testIndexPath = "edgar/daily-index/2024/QTR1/master.20240102.idx"
	formFilingID  = "0001000045-24-000001"
	formPath      = "edgar/data/1000045/0001000045-24-000001.txt"
	plainFilingID = "0000000999-24-000003"
	plainPath     = "edgar/data/999/0000000999-24-000003.txt"
)

const testIndex = `Description:           Daily Index of EDGAR Dissemination Feed by Company Name
Last Data Received:    Jan 02, 2024

CIK|Company Name|Form Type|Date Filed|File Name
--------------------------------------------------------------------------------
1000045|NICHOLAS FINANCIAL INC|4|20240102|edgar/data/1000045/0001000045-24-000001.txt
1234567|DOE JOHN|4|20240102|edgar/data/1234567/0001000045-24-000001.txt
1318605|TESLA INC|8-K|20240102|edgar/data/1318605/0001318605-24-000002.txt
999|SMALL HOLDINGS LLC|4|20240102|edgar/data/999/0000000999-24-000003.txt
`

const formSubmission = `<SEC-DOCUMENT>0001000045-24-000001.txt : 20240102
<SEC-HEADER>0001000045-24-000001.hdr.sgml : 20240102
CONFORMED SUBMISSION TYPE:	4

REPORTING-OWNER:

	OWNER DATA:
		COMPANY CONFORMED NAME:			DOE JOHN
		CENTRAL INDEX KEY:			0001234567

ISSUER:

	COMPANY DATA:
		COMPANY CONFORMED NAME:			NICHOLAS FINANCIAL INC
		CENTRAL INDEX KEY:			0001000045
</SEC-HEADER>
<DOCUMENT>
<TYPE>4
<SEQUENCE>1
<FILENAME>form4.xml
<TEXT>
<XML>
<?xml version="1.0"?>
<ownershipDocument>
  <schemaVersion>X0508</schemaVersion>
  <documentType>4</documentType>
  <periodOfReport>2023-12-29</periodOfReport>
  <issuer>
    <issuerCik>0001000045</issuerCik>
    <issuerName>Nicholas Financial Inc</issuerName>
    <issuerTradingSymbol>NICK</issuerTradingSymbol>
  </issuer>
  <reportingOwner>
    <reportingOwnerId>
      <rptOwnerCik>0001234567</rptOwnerCik>
      <rptOwnerName>Doe John</rptOwnerName>
    </reportingOwnerId>
  </reportingOwner>
</ownershipDocument>
</XML>
</TEXT>
</DOCUMENT>
</SEC-DOCUMENT>
`

const plainSubmission = `<SEC-DOCUMENT>0000000999-24-000003.txt : 20240102
<SEC-HEADER>0000000999-24-000003.hdr.sgml : 20240102
ISSUER:

	COMPANY DATA:
		COMPANY CONFORMED NAME:			SMALL HOLDINGS LLC
		CENTRAL INDEX KEY:			0000000999
</SEC-HEADER>
</SEC-DOCUMENT>
`

var runStart = time.Date(2024, 1, 3, 6, 0, 0, 0, time.UTC)

func newIngestionArchive() *fakeArchive {
	archive := newFakeArchive()
	archive.add(testIndexPath, testIndex)
	archive.add(formPath, formSubmission)
	archive.add(plainPath, plainSubmission)
	return archive
}

func newTestOrchestrator(archive *fakeArchive, store *countingFilingStore, matcher *SubscriptionMatcher) *IngestionOrchestrator {
	o := NewIngestionOrchestrator(archive, store, matcher, IngestionOptions{
		FormTypes:   DefaultFormTypes,
		Concurrency: 2,
	})
	o.now = fixedClock(runStart)
	return o
}

func TestIngestionOrchestrator_RunOnce(t *testing.T) {
	archive := newIngestionArchive()
	store := newCountingFilingStore()
	o := newTestOrchestrator(archive, store, nil)

	report, err := o.RunOnce(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, day(2024, 1, 2), report.Since)
	assert.Equal(t, 1, report.IndexFiles)
	assert.Equal(t, 3, report.Discovered)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 0, report.Degraded)
	assert.Equal(t, domain.StateIdle, o.State())

	// The 8-K line is filtered before any fetch.
	assert.Equal(t, 0, archive.fetchCount("edgar/data/1318605/0001318605-24-000002.txt"))
	// The filing listed twice is fetched once.
	assert.Equal(t, 1, archive.fetchCount(formPath))

	filing, err := store.Get(context.Background(), formFilingID)
	require.NoError(t, err)
	assert.Equal(t, "4", filing.FormType)
	assert.Equal(t, day(2024, 1, 2), filing.FiledDate)
	assert.Equal(t, formPath, filing.SourcePath)
	assert.Equal(t, "1000045", filing.IssuerCIK)
	assert.Equal(t, "Nicholas Financial Inc", filing.IssuerName)
	assert.Equal(t, []string{"1234567"}, filing.OwnerCIKs)
	require.Len(t, filing.Documents, 1)
	require.NotNil(t, filing.FormData)
	require.NotNil(t, filing.FormData.Issuer.IssuerTradingSymbol)
	assert.Equal(t, "NICK", *filing.FormData.Issuer.IssuerTradingSymbol)
	assert.False(t, filing.IngestedAt.IsZero())
}

func TestIngestionOrchestrator_SubmissionWithoutDocuments(t *testing.T) {
	archive := newIngestionArchive()
	store := newCountingFilingStore()
	o := newTestOrchestrator(archive, store, nil)

	_, err := o.RunOnce(context.Background())
	require.NoError(t, err)

	filing, err := store.Get(context.Background(), plainFilingID)
	require.NoError(t, err)
	assert.Empty(t, filing.Documents)
	assert.Nil(t, filing.FormData)
	assert.Equal(t, "999", filing.IssuerCIK)
	assert.Equal(t, "SMALL HOLDINGS LLC", filing.IssuerName)
}

func TestIngestionOrchestrator_SecondRunWritesNothing(t *testing.T) {
	archive := newIngestionArchive()
	store := newCountingFilingStore()
	o := newTestOrchestrator(archive, store, nil)

	_, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	writes := store.writeCount()
	first, err := store.Get(context.Background(), formFilingID)
	require.NoError(t, err)

	report, err := o.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.Written())
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, writes, store.writeCount())

	second, err := store.Get(context.Background(), formFilingID)
	require.NoError(t, err)
	assert.Equal(t, first.IngestedAt, second.IngestedAt)
}

func TestIngestionOrchestrator_AmendmentKeepsIngestedAt(t *testing.T) {
	archive := newIngestionArchive()
	store := newCountingFilingStore()
	original := time.Date(2023, 12, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(context.Background(), &domain.OwnershipFiling{
		ID:         formFilingID,
		FormType:   "4",
		FiledDate:  day(2023, 12, 1),
		IngestedAt: original,
	}))
	o := newTestOrchestrator(archive, store, nil)

	report, err := o.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, day(2023, 12, 1), report.Since)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Created)

	filing, err := store.Get(context.Background(), formFilingID)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 2), filing.FiledDate)
	assert.Equal(t, original, filing.IngestedAt)
	assert.NotNil(t, filing.FormData)
}

func TestIngestionOrchestrator_DegradesWhenFormWriteFails(t *testing.T) {
	archive := newIngestionArchive()
	store := newCountingFilingStore()
	store.rejectForms = true
	o := newTestOrchestrator(archive, store, nil)

	report, err := o.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Degraded)
	assert.Equal(t, 0, report.Failed)

	filing, err := store.Get(context.Background(), formFilingID)
	require.NoError(t, err)
	assert.Nil(t, filing.FormData)
	assert.Equal(t, "1000045", filing.IssuerCIK)
}

func TestIngestionOrchestrator_AbandonsWhenEveryWriteFails(t *testing.T) {
	archive := newIngestionArchive()
	store := newCountingFilingStore()
	store.rejectAll = true
	o := newTestOrchestrator(archive, store, nil)

	report, err := o.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.Written())
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 0, store.Count())
	assert.Equal(t, domain.StateIdle, o.State())
}

func TestIngestionOrchestrator_SubmissionFetchFailureFailsRun(t *testing.T) {
	archive := newIngestionArchive()
	archive.fetchErr[plainPath] = &domain.RemoteFetchError{Path: plainPath, StatusCode: 500}
	store := newCountingFilingStore()
	o := newTestOrchestrator(archive, store, nil)

	report, err := o.RunOnce(context.Background())

	var runErr *domain.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, domain.StateFetching, runErr.Stage)
	assert.True(t, domain.IsRemoteFetchError(err))
	assert.Equal(t, domain.StateFailed, o.State())

	// Filings from the same day are still stored.
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Failed)
	_, err = store.Get(context.Background(), formFilingID)
	require.NoError(t, err)
	_, err = store.Get(context.Background(), plainFilingID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

const (
	laterIndexPath = "edgar/daily-index/2024/QTR1/master.20240103.idx"
	laterFilingID  = "0000000555-24-000009"
	laterPath      = "edgar/data/555/0000000555-24-000009.txt"
)

const laterIndex = `Description:           Daily Index of EDGAR Dissemination Feed by Company Name

CIK|Company Name|Form Type|Date Filed|File Name
--------------------------------------------------------------------------------
555|LATE FILER INC|4|20240103|edgar/data/555/0000000555-24-000009.txt
`

const laterSubmission = `<SEC-DOCUMENT>0000000555-24-000009.txt : 20240103
<SEC-HEADER>0000000555-24-000009.hdr.sgml : 20240103
ISSUER:

	COMPANY DATA:
		COMPANY CONFORMED NAME:			LATE FILER INC
		CENTRAL INDEX KEY:			0000000555
</SEC-HEADER>
</SEC-DOCUMENT>
`

// newTwoDayArchive serves index days 2024-01-02 and 2024-01-03 with their
// submissions.
func newTwoDayArchive() *fakeArchive {
	archive := newFakeArchive()
	archive.add(testIndexPath, testIndex)
	archive.add(laterIndexPath, laterIndex)
	archive.add(formPath, formSubmission)
	archive.add(plainPath, plainSubmission)
	archive.add(laterPath, laterSubmission)
	return archive
}

func TestIngestionOrchestrator_FailedFetchIsRecoveredNextRun(t *testing.T) {
	archive := newTwoDayArchive()
	archive.flaky[plainPath] = 1
	store := newCountingFilingStore()
	o := newTestOrchestrator(archive, store, nil)
	ctx := context.Background()

	first, err := o.RunOnce(ctx)

	require.Error(t, err)
	assert.Equal(t, 1, first.Created)
	assert.Equal(t, 1, first.Failed)
	_, err = store.Get(ctx, laterFilingID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "a later day must not be stored past a failed fetch")
	latest, err := store.LatestFiledDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 2), latest)

	second, err := o.RunOnce(ctx)

	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 2), second.Since)
	assert.Equal(t, 2, second.Created)
	assert.Equal(t, 1, second.Skipped)
	for _, id := range []string{formFilingID, plainFilingID, laterFilingID} {
		_, err := store.Get(ctx, id)
		assert.NoError(t, err, id)
	}
}

func TestIngestionOrchestrator_SchedulerRetryRecoversFailedFetch(t *testing.T) {
	archive := newTwoDayArchive()
	archive.flaky[plainPath] = 1
	store := newCountingFilingStore()
	o := newTestOrchestrator(archive, store, nil)

	s := NewScheduler(domain.DefaultSchedulerConfig(), memory.NewSchedulerStore(), o)
	s.now = fixedClock(runStart)
	s.sleep = func(context.Context, time.Duration) error { return nil }

	result, err := s.Trigger(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 3, store.Count())
	assert.Equal(t, 2, archive.fetchCount(plainPath))
}

func TestIngestionOrchestrator_IndexFetchFailureFailsRun(t *testing.T) {
	archive := newIngestionArchive()
	archive.fetchErr[testIndexPath] = errors.New("connection reset")
	store := newCountingFilingStore()
	o := newTestOrchestrator(archive, store, nil)

	report, err := o.RunOnce(context.Background())

	require.Error(t, err)
	var runErr *domain.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, domain.StateFetching, runErr.Stage)
	assert.Equal(t, report.ID, runErr.RunID)
	assert.Equal(t, domain.StateFailed, o.State())
	assert.Equal(t, 0, store.writeCount())
}

func TestIngestionOrchestrator_ReferenceDateFailureFailsRun(t *testing.T) {
	store := newCountingFilingStore()
	store.latestErr = errors.New("database locked")
	o := newTestOrchestrator(newIngestionArchive(), store, nil)

	_, err := o.RunOnce(context.Background())

	var runErr *domain.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, domain.StateDiscovering, runErr.Stage)
}

func TestIngestionOrchestrator_Cancelled(t *testing.T) {
	store := newCountingFilingStore()
	o := newTestOrchestrator(newIngestionArchive(), store, nil)
	archive := &cancellingArchive{fakeArchive: newIngestionArchive()}
	o.fetcher = archive
	ctx, cancel := context.WithCancel(context.Background())
	archive.cancel = cancel

	_, err := o.RunOnce(ctx)

	var runErr *domain.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, domain.StateExtracting, runErr.Stage)
	assert.ErrorIs(t, err, context.Canceled)
}

// cancellingArchive cancels the run on the first submission fetch.
type cancellingArchive struct {
	*fakeArchive
	cancel context.CancelFunc
}

func (a *cancellingArchive) Fetch(ctx context.Context, p string) ([]byte, error) {
	if p == testIndexPath {
		return a.fakeArchive.Fetch(ctx, p)
	}
	a.cancel()
	return nil, context.Canceled
}

func TestIngestionOrchestrator_FormFilterDisabled(t *testing.T) {
	archive := newIngestionArchive()
	store := newCountingFilingStore()
	o := NewIngestionOrchestrator(archive, store, nil, IngestionOptions{})
	o.now = fixedClock(runStart)

	report, err := o.RunOnce(context.Background())

	// The 8-K submission is absent from the archive.
	require.Error(t, err)
	assert.True(t, domain.IsRemoteNotFound(err))
	assert.Equal(t, 4, report.Discovered)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Created)
}

func TestBuildFiling_UnparsableForm(t *testing.T) {
	raw := `<DOCUMENT>
<TYPE>4
<SEQUENCE>1
<TEXT>
<XML>
<ownershipDocument><issuer><issuerCik>1</issuerCik></issuer></ownershipDocument>
</XML>
</TEXT>
</DOCUMENT>`
	ref := domain.FilingReference{FilingID: "X", FormType: "4", FiledDate: day(2024, 1, 2), Path: "p/X.txt"}

	filing := BuildFiling(ref, raw)

	assert.Equal(t, "X", filing.ID)
	require.Len(t, filing.Documents, 1)
	assert.Equal(t, domain.FormatXML, filing.Documents[0].Format)
	assert.Nil(t, filing.FormData)
}

func TestNextPersistState(t *testing.T) {
	assert.Equal(t, domain.PersistWithoutForm, nextPersistState(domain.PersistWithForm, true))
	assert.Equal(t, domain.PersistAbandoned, nextPersistState(domain.PersistWithForm, false))
	assert.Equal(t, domain.PersistAbandoned, nextPersistState(domain.PersistWithoutForm, false))
}
