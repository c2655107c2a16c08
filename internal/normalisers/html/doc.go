// Package html converts HTML into readable plain text. It is used for the
// plain-text alternative of digest emails.
package html
