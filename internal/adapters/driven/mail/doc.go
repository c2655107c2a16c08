// Package mail provides an SMTP implementation of driven.Mailer.
//
// Messages are sent as multipart/alternative with a plain-text and an
// HTML part. The relay is considered disabled when any of host, from
// address, from name or server name is missing.
package mail
