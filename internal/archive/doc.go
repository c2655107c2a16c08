// Package archive implements driven.Fetcher against the public filing
// archive over HTTP.
//
// Every request carries the operator identification header and passes
// through one shared token bucket, so the configured request budget
// holds no matter how many goroutines call Fetch. Non-success statuses
// are returned as *domain.RemoteFetchError and are never retried here;
// retrying is the caller's decision.
package archive
