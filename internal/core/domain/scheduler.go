package domain

import (
	"fmt"
	"time"
)

// ScheduledTask represents a recurring background task.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	// TaskID identifies which task was run.
	TaskID string

	// StartedAt is when the task started.
	StartedAt time.Time

	// EndedAt is when the task completed.
	EndedAt time.Time

	// Success indicates whether the task completed without error.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// Attempts is how many attempts the run took.
	Attempts int

	// ItemsProcessed is a count of filings written.
	ItemsProcessed int

	// Report is the report of the last attempt. It is not persisted.
	Report *RunReport
}

// TaskStatus is a task's stored state with its most recent runs.
type TaskStatus struct {
	// Task is nil until the scheduler has saved the task once.
	Task *ScheduledTask

	// History is newest first.
	History []TaskResult
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// Hour and Minute give the daily trigger time.
	Hour   int
	Minute int

	// Location is the time zone of the daily trigger.
	Location *time.Location

	// MaxAttempts bounds the attempts of one triggered run.
	MaxAttempts int

	// RetryDelay is the pause between failed attempts.
	RetryDelay time.Duration

	// PollInterval is how often the loop checks for a due task.
	PollInterval time.Duration
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:      true,
		Hour:         6,
		Minute:       0,
		Location:     time.UTC,
		MaxAttempts:  3,
		RetryDelay:   5 * time.Minute,
		PollInterval: time.Minute,
	}
}

// NextRunAfter returns the first daily trigger time strictly after t.
func (c SchedulerConfig) NextRunAfter(t time.Time) time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), c.Hour, c.Minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// ParseClock parses an "HH:MM" daily time.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: clock %q: %v", ErrInvalidInput, s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// Task IDs for built-in tasks.
const (
	TaskIDIngestion = "filing-ingestion"
)
