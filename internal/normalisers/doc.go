// Package normalisers holds the parsers that turn raw archive content into
// domain values. Each subpackage handles one format:
//
//   - idx: daily index listings into FilingReferences
//   - submission: raw submissions into EmbeddedDocuments and header parties
//   - ownership: ownership form XML into a typed OwnershipForm
//
// Parsers are pure functions of their input and perform no I/O.
package normalisers
