// Package driven declares what the ingestion core needs from the outside
// world. Services hold these interfaces; adapters under internal/adapters
// and internal/archive satisfy them.
//
//   - Fetcher reads paths from the remote filing archive under a shared
//     request budget.
//   - FilingStore, UserStore and SubscriptionStore persist filings and
//     the people watching them.
//   - SchedulerStore keeps the daily task and its run history.
//   - Mailer delivers digests. A mailer that reports itself disabled
//     leaves subscriptions untouched.
//
// Nothing here imports an adapter; the only internal dependency is domain.
package driven
