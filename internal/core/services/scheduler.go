package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driven"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driving"
	"github.com/custodia-labs/filingwatch/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyRetention is how many results are kept per task.
const historyRetention = 100

// Scheduler triggers ingestion at a fixed daily time. At most one run is
// in flight; triggers arriving during a run are dropped.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	ingestor driving.Ingestor

	// inFlight is the single-flight flag, owned by acquire and release.
	inFlight atomic.Bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. store may be nil, in which case task
// state and history are not recorded.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	ingestor driving.Ingestor,
) *Scheduler {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	return &Scheduler{
		config:   config,
		store:    store,
		ingestor: ingestor,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Start runs the scheduler loop. It blocks until Stop is called or ctx
// is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if !s.config.Enabled {
		logger.Info("Scheduler disabled")
		<-stopCh
		return nil
	}

	task, err := s.ensureTask(ctx)
	if err != nil {
		logger.Error("scheduler: failed to initialise task: %v", err)
	}
	logger.Info("Scheduler started, next run at %s", task.NextRun.Format(time.RFC3339))

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkDue(ctx, task)
		}
	}
}

// Stop ends the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// ensureTask loads the ingestion task or creates it, and schedules the
// next daily trigger. A stored NextRun in the past is kept so a missed
// trigger runs on the first tick.
func (s *Scheduler) ensureTask(ctx context.Context) (*domain.ScheduledTask, error) {
	now := s.now()
	task := &domain.ScheduledTask{
		ID:       domain.TaskIDIngestion,
		Name:     "Filing Ingestion",
		Interval: 24 * time.Hour,
		Enabled:  true,
		NextRun:  s.config.NextRunAfter(now),
	}
	if s.store == nil {
		return task, nil
	}

	stored, err := s.store.GetTask(ctx, domain.TaskIDIngestion)
	if err != nil {
		return task, err
	}
	if stored != nil {
		stored.Enabled = true
		stored.Interval = task.Interval
		if stored.NextRun.IsZero() {
			stored.NextRun = task.NextRun
		}
		task = stored
	}
	return task, s.store.SaveTask(ctx, task)
}

// checkDue launches a run when the task is due. NextRun advances before
// the run starts so later ticks do not trigger it again.
func (s *Scheduler) checkDue(ctx context.Context, task *domain.ScheduledTask) {
	now := s.now()
	if now.Before(task.NextRun) {
		return
	}
	task.NextRun = s.config.NextRunAfter(now)
	next := task.NextRun

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result, err := s.Trigger(ctx)
		switch {
		case errors.Is(err, domain.ErrRunInProgress):
			return
		case err != nil:
			logger.Error("scheduler: run failed after %d attempts, next run at %s: %v",
				result.Attempts, next.Format(time.RFC3339), err)
		default:
			logger.Info("Scheduled run complete, %d filings written", result.ItemsProcessed)
		}
	}()
}

// Trigger runs ingestion with bounded retries. It returns
// domain.ErrRunInProgress without running when a run is in flight.
func (s *Scheduler) Trigger(ctx context.Context) (*domain.TaskResult, error) {
	if !s.acquire() {
		logger.Warn("scheduler: run already in progress, trigger dropped")
		return nil, domain.ErrRunInProgress
	}
	defer s.release()

	result := &domain.TaskResult{
		TaskID:    domain.TaskIDIngestion,
		StartedAt: s.now(),
	}

	var err error
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		result.Attempts = attempt

		var report *domain.RunReport
		report, err = s.ingestor.RunOnce(ctx)
		result.Report = report
		if err == nil {
			result.ItemsProcessed = report.Written()
			break
		}

		logger.Warn("scheduler: attempt %d/%d failed: %v", attempt, s.config.MaxAttempts, err)
		if attempt == s.config.MaxAttempts {
			break
		}
		if sleepErr := s.sleep(ctx, s.config.RetryDelay); sleepErr != nil {
			err = fmt.Errorf("retry wait: %w", sleepErr)
			break
		}
	}

	result.EndedAt = s.now()
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
	}
	s.record(ctx, result)

	return result, err
}

func (s *Scheduler) acquire() bool {
	return s.inFlight.CompareAndSwap(false, true)
}

func (s *Scheduler) release() {
	s.inFlight.Store(false)
}

// record saves task state and history. Failures are logged only.
func (s *Scheduler) record(ctx context.Context, result *domain.TaskResult) {
	if s.store == nil {
		return
	}
	// Recording outlives a cancelled run.
	ctx = context.WithoutCancel(ctx)

	task, err := s.store.GetTask(ctx, result.TaskID)
	if err != nil {
		logger.Error("scheduler: failed to load task %s: %v", result.TaskID, err)
	}
	if task == nil {
		task = &domain.ScheduledTask{
			ID:       result.TaskID,
			Name:     "Filing Ingestion",
			Interval: 24 * time.Hour,
			Enabled:  true,
		}
	}

	task.LastRun = result.StartedAt
	task.NextRun = s.config.NextRunAfter(result.EndedAt)
	if result.Success {
		task.LastError = ""
		task.LastSuccess = result.EndedAt
	} else {
		task.LastError = result.Error
	}

	if err := s.store.SaveTask(ctx, task); err != nil {
		logger.Error("scheduler: failed to save task %s: %v", task.ID, err)
	}
	if err := s.store.RecordResult(ctx, result); err != nil {
		logger.Error("scheduler: failed to record result for %s: %v", task.ID, err)
	}
	if err := s.store.PruneHistory(ctx, historyRetention); err != nil {
		logger.Error("scheduler: failed to prune history: %v", err)
	}
}

// Status reads the ingestion task and its latest runs from the store.
func (s *Scheduler) Status(ctx context.Context, limit int) (*domain.TaskStatus, error) {
	if s.store == nil {
		return &domain.TaskStatus{}, nil
	}
	task, err := s.store.GetTask(ctx, domain.TaskIDIngestion)
	if err != nil {
		return nil, fmt.Errorf("loading task: %w", err)
	}
	history, err := s.store.GetTaskHistory(ctx, domain.TaskIDIngestion, limit)
	if err != nil {
		return nil, fmt.Errorf("loading run history: %w", err)
	}
	return &domain.TaskStatus{Task: task, History: history}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
