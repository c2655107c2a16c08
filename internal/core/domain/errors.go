package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRunInProgress indicates an ingestion run is already in flight.
	ErrRunInProgress = errors.New("run in progress")

	// ErrMailDisabled indicates outbound mail is not configured.
	ErrMailDisabled = errors.New("mail disabled")
)

// ConfigurationError reports a missing or invalid setting.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration: %s is required", e.Setting)
	}
	return fmt.Sprintf("configuration: %s: %s", e.Setting, e.Reason)
}

// RemoteFetchError reports a failed request to the filing archive.
// StatusCode is zero for transport failures.
type RemoteFetchError struct {
	Path       string
	StatusCode int
	Err        error
}

func (e *RemoteFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Path, e.Err)
}

func (e *RemoteFetchError) Unwrap() error {
	return e.Err
}

// FormParseError reports an ownership document that could not be parsed.
type FormParseError struct {
	Reason string
	Err    error
}

func (e *FormParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse form: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse form: %s", e.Reason)
}

func (e *FormParseError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a filing that could not be written.
type PersistenceError struct {
	FilingID string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist filing %s: %v", e.FilingID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// RunError reports a failure that aborted a whole ingestion run.
type RunError struct {
	RunID string
	Stage RunState
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed while %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsRemoteFetchError reports whether err is or wraps a RemoteFetchError.
func IsRemoteFetchError(err error) bool {
	var fetchErr *RemoteFetchError
	return errors.As(err, &fetchErr)
}

// IsRemoteNotFound reports whether the archive answered 404 for the path.
func IsRemoteNotFound(err error) bool {
	var fetchErr *RemoteFetchError
	return errors.As(err, &fetchErr) && fetchErr.StatusCode == http.StatusNotFound
}

// IsRemoteThrottled reports whether the archive rejected a request for
// exceeding its request budget. The archive answers 403 as well as 429.
func IsRemoteThrottled(err error) bool {
	var fetchErr *RemoteFetchError
	if !errors.As(err, &fetchErr) {
		return false
	}
	return fetchErr.StatusCode == http.StatusTooManyRequests || fetchErr.StatusCode == http.StatusForbidden
}

// IsFormParseError reports whether err is or wraps a FormParseError.
func IsFormParseError(err error) bool {
	var parseErr *FormParseError
	return errors.As(err, &parseErr)
}
