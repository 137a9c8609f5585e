package queue

import (
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Breaker opens after threshold consecutive failures, rejects work until the
// reset cooldown elapses, then admits a single half-open probe whose outcome
// closes or reopens it. A threshold <= 0 disables the breaker.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	reset     time.Duration
	state     State
	failures  int
	openedAt  time.Time
	probing   bool

	now      func() time.Time
	onChange func(from, to State)
}

// NewBreaker creates a closed breaker.
func NewBreaker(threshold int, reset time.Duration) *Breaker {
	return &Breaker{threshold: threshold, reset: reset, now: time.Now}
}

// State returns the current state, accounting for an elapsed cooldown only
// once Allow is called.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Check reports whether Allow would admit an attempt, without claiming the
// half-open probe. It returns the remaining cooldown when it would not.
func (b *Breaker) Check() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.checkLocked()
}

func (b *Breaker) checkLocked() (time.Duration, bool) {
	if b.threshold <= 0 {
		return 0, true
	}
	switch b.state {
	case StateOpen:
		if wait := b.reset - b.now().Sub(b.openedAt); wait > 0 {
			return wait, false
		}
	case StateHalfOpen:
		if b.probing {
			return 0, false
		}
	}
	return 0, true
}

// Allow admits an attempt. An open breaker whose cooldown has elapsed moves
// to half-open and the caller becomes the probe; every other caller is
// rejected until the probe reports back.
func (b *Breaker) Allow() (time.Duration, bool) {
	b.mu.Lock()
	wait, ok := b.checkLocked()
	var from State
	changed := false
	if ok && b.threshold > 0 {
		if b.state == StateOpen {
			from, changed = b.state, true
			b.state = StateHalfOpen
		}
		if b.state == StateHalfOpen {
			b.probing = true
		}
	}
	b.mu.Unlock()
	if changed {
		b.notify(from, StateHalfOpen)
	}
	return wait, ok
}

// Success records an attempt that reached the remote side.
func (b *Breaker) Success() {
	b.mu.Lock()
	b.failures = 0
	b.probing = false
	from := b.state
	b.state = StateClosed
	b.mu.Unlock()
	if from != StateClosed {
		b.notify(from, StateClosed)
	}
}

// Failure records a transport failure.
func (b *Breaker) Failure() {
	if b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	b.failures++
	from := b.state
	open := b.state == StateHalfOpen || (b.state == StateClosed && b.failures >= b.threshold)
	if open {
		b.state = StateOpen
		b.openedAt = b.now()
	}
	b.probing = false
	b.mu.Unlock()
	if open && from != StateOpen {
		b.notify(from, StateOpen)
	}
}

// Release gives up a half-open probe without a verdict, for example when the
// caller's context was cancelled mid-attempt.
func (b *Breaker) Release() {
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

func (b *Breaker) notify(from, to State) {
	if b.onChange != nil {
		b.onChange(from, to)
	}
}
