// Package queue throttles, retries and circuit-breaks calls to a remote
// data source. Callers are admitted in FIFO order, at most MaxConcurrent at
// a time, with successive dispatches at least MinInterval apart.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papapumpkin/stripes/internal/telemetry"
)

// Task is a unit of queued work producing a T.
type Task[T any] func(ctx context.Context) (T, error)

// Stats is a point-in-time snapshot of queue activity.
type Stats struct {
	Active    int
	Waiting   int
	Completed int
	Failed    int
	Retries   int
	Rejected  int
	Circuit   State
}

// Queue serializes access to one upstream. It is safe for concurrent use.
type Queue struct {
	name      string
	cfg       Config
	breaker   *Breaker
	log       *slog.Logger
	events    *telemetry.Emitter
	retryable func(error) bool
	now       func() time.Time

	mu           sync.Mutex
	active       int
	waiters      []chan struct{}
	nextDispatch time.Time
	closed       bool
	stats        Stats
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(q *Queue) { q.log = log }
}

// WithEmitter sets the telemetry sink. A nil emitter disables telemetry.
func WithEmitter(e *telemetry.Emitter) Option {
	return func(q *Queue) { q.events = e }
}

// WithRetryable replaces the default Retryable classifier.
func WithRetryable(fn func(error) bool) Option {
	return func(q *Queue) { q.retryable = fn }
}

// WithClock sets the time source for pacing and the circuit breaker.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// New creates a queue. Non-positive MaxConcurrent is treated as 1.
func New(name string, cfg Config, opts ...Option) *Queue {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	q := &Queue{
		name:      name,
		cfg:       cfg,
		breaker:   NewBreaker(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerResetTime),
		log:       slog.Default(),
		retryable: Retryable,
		now:       time.Now,
	}
	for _, o := range opts {
		o(q)
	}
	q.log = q.log.With("component", "queue", "queue", name)
	q.breaker.now = q.now
	q.breaker.onChange = q.circuitChanged
	return q
}

// Enqueue runs task through q and returns its result.
func Enqueue[T any](ctx context.Context, q *Queue, label string, task Task[T]) (T, error) {
	var out T
	err := q.Do(ctx, label, func(ctx context.Context) error {
		v, err := task(ctx)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}

// Do runs fn once a slot is free, retrying transport failures with
// exponential backoff. While the circuit is open Do returns a
// *CircuitOpenError without waiting for a slot or calling fn.
func (q *Queue) Do(ctx context.Context, label string, fn func(context.Context) error) error {
	if wait, ok := q.breaker.Check(); !ok {
		q.reject()
		return &CircuitOpenError{Label: label, RetryAfter: wait}
	}
	if err := q.acquire(ctx); err != nil {
		return err
	}
	defer q.release()

	reqID := uuid.NewString()
	var last error
	for attempt := 1; ; attempt++ {
		wait, ok := q.breaker.Allow()
		if !ok {
			q.reject()
			return &CircuitOpenError{Label: label, RetryAfter: wait, Last: last}
		}
		if err := q.pace(ctx); err != nil {
			q.breaker.Release()
			return fmt.Errorf("queue: %s: %w", label, err)
		}

		q.emit(telemetry.KindFetchStart, reqID, map[string]any{"label": label, "attempt": attempt})
		start := q.now()
		err := q.attempt(ctx, label, attempt, fn)
		if err == nil {
			q.breaker.Success()
			q.finish(true)
			q.emit(telemetry.KindFetchDone, reqID, map[string]any{
				"label": label, "attempts": attempt, "ms": q.now().Sub(start).Milliseconds(),
			})
			return nil
		}
		if ctx.Err() != nil {
			q.breaker.Release()
			q.finish(false)
			return fmt.Errorf("queue: %s: %w", label, ctx.Err())
		}
		if !q.retryable(err) {
			// The upstream answered; only the request was bad.
			q.breaker.Success()
			q.finish(false)
			q.emit(telemetry.KindFetchDone, reqID, map[string]any{"label": label, "attempts": attempt, "error": err.Error()})
			return err
		}

		q.breaker.Failure()
		last = err
		if attempt > q.cfg.MaxRetries {
			q.finish(false)
			q.emit(telemetry.KindFetchDone, reqID, map[string]any{"label": label, "attempts": attempt, "error": err.Error()})
			return fmt.Errorf("queue: %s: giving up after %d attempts: %w", label, attempt, err)
		}
		if q.breaker.State() == StateOpen {
			q.finish(false)
			wait, _ := q.breaker.Check()
			return &CircuitOpenError{Label: label, RetryAfter: wait, Last: err}
		}

		delay := q.cfg.Backoff(attempt)
		q.log.Warn("queue: attempt failed, retrying",
			"label", label, "attempt", attempt, "delay", delay, "error", err)
		q.mu.Lock()
		q.stats.Retries++
		q.mu.Unlock()
		q.emit(telemetry.KindFetchRetry, reqID, map[string]any{
			"label": label, "attempt": attempt, "delay_ms": delay.Milliseconds(), "error": err.Error(),
		})
		if err := sleep(ctx, delay); err != nil {
			q.finish(false)
			return fmt.Errorf("queue: %s: %w", label, err)
		}
	}
}

// attempt runs fn under the per-attempt deadline, converting an expired
// deadline into a *TimeoutError.
func (q *Queue) attempt(ctx context.Context, label string, n int, fn func(context.Context) error) error {
	if q.cfg.Timeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, q.cfg.Timeout)
	defer cancel()
	err := fn(actx)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Label: label, Attempt: n, After: q.cfg.Timeout}
	}
	return err
}

// acquire takes a concurrency slot, queueing behind earlier callers.
func (q *Queue) acquire(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if q.active < q.cfg.MaxConcurrent && len(q.waiters) == 0 {
		q.active++
		q.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	q.waiters = append(q.waiters, ch)
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		for i, w := range q.waiters {
			if w == ch {
				q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
				q.mu.Unlock()
				return ctx.Err()
			}
		}
		q.mu.Unlock()
		// The slot was handed over while we were cancelling.
		q.release()
		return ctx.Err()
	}
}

// release hands the slot to the oldest waiter, if any.
func (q *Queue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.waiters) > 0 {
		ch := q.waiters[0]
		q.waiters = q.waiters[1:]
		close(ch)
		return
	}
	q.active--
}

// pace reserves the next dispatch time and sleeps until it.
func (q *Queue) pace(ctx context.Context) error {
	if q.cfg.MinInterval <= 0 {
		return nil
	}
	q.mu.Lock()
	now := q.now()
	at := q.nextDispatch
	if at.Before(now) {
		at = now
	}
	q.nextDispatch = at.Add(q.cfg.MinInterval)
	q.mu.Unlock()
	return sleep(ctx, at.Sub(now))
}

func (q *Queue) finish(ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if ok {
		q.stats.Completed++
	} else {
		q.stats.Failed++
	}
}

func (q *Queue) reject() {
	q.mu.Lock()
	q.stats.Rejected++
	q.mu.Unlock()
}

func (q *Queue) circuitChanged(from, to State) {
	q.log.Warn("queue: circuit state changed", "from", from, "to", to)
	q.emit(telemetry.KindCircuitState, "", map[string]any{"from": from.String(), "to": to.String()})
}

func (q *Queue) emit(kind, reqID string, data map[string]any) {
	if q.events == nil {
		return
	}
	data["queue"] = q.name
	if err := q.events.Emit(telemetry.Event{Kind: kind, RequestID: reqID, Data: data}); err != nil {
		q.log.Debug("queue: telemetry write failed", "error", err)
	}
}

// Stats returns a snapshot of queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	s := q.stats
	s.Active = q.active
	s.Waiting = len(q.waiters)
	q.mu.Unlock()
	s.Circuit = q.breaker.State()
	return s
}

// Close stops admitting new work. Calls already admitted run to completion.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
