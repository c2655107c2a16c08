package domain

import "time"

// RunState is a step of the ingestion state machine.
type RunState string

// Ingestion run states.
const (
	StateIdle          RunState = "idle"
	StateDiscovering   RunState = "discovering"
	StateFetching      RunState = "fetching"
	StateDeduplicating RunState = "deduplicating"
	StateExtracting    RunState = "extracting"
	StatePersisting    RunState = "persisting"
	StateNotifying     RunState = "notifying"
	StateFailed        RunState = "failed"
)

// PersistState tracks the two-phase write of one filing.
type PersistState int

const (
	// PersistWithForm writes the filing including its parsed form.
	PersistWithForm PersistState = iota

	// PersistWithoutForm writes the filing with FormData forced to nil.
	PersistWithoutForm

	// PersistAbandoned means both attempts failed.
	PersistAbandoned
)

// String returns the state name used in logs.
func (s PersistState) String() string {
	switch s {
	case PersistWithForm:
		return "with-form"
	case PersistWithoutForm:
		return "without-form"
	case PersistAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// RunReport summarises one ingestion run.
type RunReport struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time

	// Since is the reference filed date discovery started from.
	Since time.Time

	IndexFiles int
	Discovered int
	Skipped    int
	Created    int
	Updated    int

	// Degraded counts filings stored without their form after a failed write.
	Degraded int

	// Failed counts filings that could not be fetched or stored.
	Failed int

	// Notified counts users that received a digest.
	Notified int
}

// Written returns the number of successful store writes.
func (r *RunReport) Written() int {
	return r.Created + r.Updated
}
