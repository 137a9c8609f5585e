package queue

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by Queue.
var (
	// ErrCircuitOpen matches any *CircuitOpenError via errors.Is.
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrQueueClosed is returned for work submitted after Close.
	ErrQueueClosed = errors.New("request queue closed")
)

// TimeoutError reports an attempt that exceeded the per-attempt deadline.
// Timeouts are retried like any other transport failure.
type TimeoutError struct {
	Label   string
	Attempt int
	After   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("queue: %s: attempt %d timed out after %s", e.Label, e.Attempt, e.After)
}

// Timeout reports true, matching the net.Error convention.
func (e *TimeoutError) Timeout() bool { return true }

// Temporary reports true: a later attempt may succeed.
func (e *TimeoutError) Temporary() bool { return true }

// CircuitOpenError is returned without attempting any I/O while the breaker
// is open. Last carries the failure that caused a mid-retry rejection, if any.
type CircuitOpenError struct {
	Label      string
	RetryAfter time.Duration
	Last       error
}

func (e *CircuitOpenError) Error() string {
	msg := fmt.Sprintf("queue: %s: circuit open, retry after %s", e.Label, e.RetryAfter.Round(time.Millisecond))
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrCircuitOpen) true.
func (e *CircuitOpenError) Is(target error) bool { return target == ErrCircuitOpen }

// Unwrap exposes the last transport failure.
func (e *CircuitOpenError) Unwrap() error { return e.Last }

// Retryable is the default retry classifier: timeouts and errors whose chain
// contains a Temporary() bool method returning true. Semantic errors such as
// missing data or malformed payloads are never retried.
func Retryable(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var tmp interface{ Temporary() bool }
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}
	return false
}
