// Package sqlite is the durable store behind filingwatch.
//
// One database file, opened with the pure-Go modernc.org/sqlite driver,
// backs every persistence port:
//
//   - FilingStore over filings and filing_owners
//   - UserStore over users
//   - SubscriptionStore over subscriptions (each row references a user)
//   - SchedulerStore over scheduled_tasks and task_runs
//
// The schema lives in migrations/ and is applied on open. Timestamps are
// stored as Unix nanoseconds in UTC and filed dates as YYYY-MM-DD text.
//
// A filing and its owner rows are written in one transaction. The
// database runs in WAL mode, so readers do not block the ingestion writer.
package sqlite
