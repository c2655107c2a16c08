// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The ingestion pipeline runs discovery, deduplication, extraction,
// parsing and persistence in that order, then hands over to the
// subscription matcher. The scheduler wraps a pipeline run with
// retries and single-flight protection.
package services
