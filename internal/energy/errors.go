package energy

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for year data retrieval.
var (
	// ErrNotFound matches any *DataNotFoundError via errors.Is.
	ErrNotFound = errors.New("data not found")
	// ErrMalformed indicates a payload that decoded but failed validation.
	ErrMalformed = errors.New("malformed year record")
)

// FetchError reports a failure to reach the data source or a transport-level
// rejection from it. Transport failures are worth retrying; see Temporary.
type FetchError struct {
	Year       int
	Source     string // "dir", "sql", "http"
	StatusCode int    // HTTP status, zero for non-HTTP failures
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("energy: fetch %d from %s", e.Year, e.Source)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Temporary reports whether a retry could succeed. Network failures, request
// timeouts, rate limiting and server errors are temporary; other HTTP client
// errors are not.
func (e *FetchError) Temporary() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// DataNotFoundError reports a year, or a facility within a year, that the
// source does not have. It is terminal: retrying will not help.
type DataNotFoundError struct {
	Year     int
	Facility string // empty when the whole year is missing
}

func (e *DataNotFoundError) Error() string {
	if e.Facility != "" {
		return fmt.Sprintf("energy: facility %q not found in %d", e.Facility, e.Year)
	}
	return fmt.Sprintf("energy: year %d not found", e.Year)
}

// Is makes errors.Is(err, ErrNotFound) true for every DataNotFoundError.
func (e *DataNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
