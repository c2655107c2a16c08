// Package domain holds the types every other filingwatch package speaks.
//
// Filings move through it in order: a FilingReference is read from a
// daily index, its raw submission splits into EmbeddedDocument values,
// the primary XML becomes an OwnershipForm, and the result is stored as
// an OwnershipFiling. Subscriptions and Users decide who hears about it;
// RunReport and RunError describe how an ingestion run went.
//
// The package imports only the standard library.
package domain
