// Package gesture turns pointer drags, wheel scrolls and two-finger touch
// into an integer calendar position. All three channels feed one state
// machine: elastic resistance past the data bounds while a gesture is
// active, then snap-back, momentum or nothing on release.
package gesture

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papapumpkin/stripes/internal/calendar"
	"github.com/papapumpkin/stripes/internal/telemetry"
)

// Phase is what is currently driving the position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhaseMomentum
	PhaseSnapBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDragging:
		return "dragging"
	case PhaseMomentum:
		return "momentum"
	case PhaseSnapBack:
		return "snapback"
	}
	return "unknown"
}

// Channel is an input source.
type Channel int

const (
	ChannelNone Channel = iota
	ChannelPointer
	ChannelWheel
	ChannelTouch
)

func (c Channel) String() string {
	switch c {
	case ChannelPointer:
		return "pointer"
	case ChannelWheel:
		return "wheel"
	case ChannelTouch:
		return "touch"
	}
	return "none"
}

// Bounds is the valid position range.
type Bounds struct {
	Min, Max calendar.Position
}

// NavigateFunc receives every delivered position change.
type NavigateFunc func(date calendar.Date, dragging bool)

// releaseStale zeroes the release velocity when the last movement is older
// than this, so a pause before letting go never throws.
const releaseStale = 100 * time.Millisecond

// session is the transient state of one gesture.
type session struct {
	channel  Channel
	startPos calendar.Position
	deltaPx  float64 // accumulated drag-equivalent pixels
	lastX    float64
	lastT    time.Time
	velocity float64 // px/ms, drag-equivalent
}

type delivery struct {
	pos      calendar.Position
	dragging bool
}

// Navigator is the gesture state machine. It is safe for concurrent use;
// the navigate callback is always invoked without internal locks held.
type Navigator struct {
	cfg        Config
	epoch      calendar.Date
	onNavigate NavigateFunc
	log        *slog.Logger
	events     *telemetry.Emitter

	mu       sync.Mutex
	bounds   Bounds
	ppd      float64
	position calendar.Position
	phase    Phase
	sess     *session
	anim     spring
	momentum bool
	wheelAt  time.Time
	touches  map[int]float64

	lastPos calendar.Position
	lastAt  time.Time
	pending *delivery
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(n *Navigator) { n.log = log }
}

// WithEmitter records release decisions as navigate telemetry events.
func WithEmitter(e *telemetry.Emitter) Option {
	return func(n *Navigator) { n.events = e }
}

// New creates a navigator over data from epoch to latest, positioned at
// latest. The starting position counts as already delivered.
func New(epoch, latest calendar.Date, cfg Config, onNavigate NavigateFunc, opts ...Option) *Navigator {
	if cfg.WindowDays < 1 {
		cfg.WindowDays = 1
	}
	if onNavigate == nil {
		onNavigate = func(calendar.Date, bool) {}
	}
	n := &Navigator{
		cfg:        cfg,
		epoch:      epoch,
		onNavigate: onNavigate,
		log:        slog.Default(),
		ppd:        1,
		touches:    make(map[int]float64),
	}
	for _, o := range opts {
		o(n)
	}
	n.log = n.log.With("component", "gesture")
	n.bounds = n.boundsFor(latest)
	n.position = n.bounds.Max
	n.lastPos = n.position
	return n
}

func (n *Navigator) boundsFor(latest calendar.Date) Bounds {
	hi := calendar.PositionOf(n.epoch, latest)
	lo := calendar.Position(n.cfg.WindowDays - 1)
	if lo > hi {
		lo = hi
	}
	return Bounds{Min: lo, Max: hi}
}

// SetDataWindow recomputes the bounds for a new latest data date. An idle
// navigator left outside the new bounds springs back inside.
func (n *Navigator) SetDataWindow(latest calendar.Date, at time.Time) {
	n.mu.Lock()
	n.bounds = n.boundsFor(latest)
	if n.phase == PhaseIdle && n.outOfBounds(n.position) {
		n.startAnimLocked(n.nearestBound(n.position), false, at)
	}
	n.mu.Unlock()
}

// SetTileWidth derives pixels-per-day from a tile measured px wide that
// covers days days.
func (n *Navigator) SetTileWidth(px float64, days int) {
	if px <= 0 || days <= 0 {
		return
	}
	n.mu.Lock()
	n.ppd = px / float64(days)
	n.mu.Unlock()
}

// Position returns the current integer position.
func (n *Navigator) Position() calendar.Position {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.position
}

// Date returns the current position as a date.
func (n *Navigator) Date() calendar.Date {
	return n.Position().Date(n.epoch)
}

// Phase returns what is driving the position.
func (n *Navigator) Phase() Phase {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.phase
}

// Bounds returns the valid position range.
func (n *Navigator) Bounds() Bounds {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bounds
}

// Active returns the channel of the running gesture, if any.
func (n *Navigator) Active() Channel {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sess == nil {
		return ChannelNone
	}
	return n.sess.channel
}

// Jump animates by days, clamped to the bounds. Used for keyboard stepping.
func (n *Navigator) Jump(days int, at time.Time) {
	n.mu.Lock()
	n.sess = nil
	target := (n.position + calendar.Position(days)).Clamp(n.bounds.Min, n.bounds.Max)
	n.startAnimLocked(target, true, at)
	n.mu.Unlock()
}

// Tick steps any running animation to now, ends an idle wheel session and
// flushes a throttled delivery once a frame interval has passed.
func (n *Navigator) Tick(now time.Time) {
	n.mu.Lock()
	if s := n.sess; s != nil && s.channel == ChannelWheel && now.Sub(n.wheelAt) >= n.cfg.WheelIdle {
		n.mu.Unlock()
		n.endChannel(ChannelWheel, now)
		n.mu.Lock()
	}

	var ds []delivery
	switch n.phase {
	case PhaseMomentum, PhaseSnapBack:
		done := n.anim.step(now)
		pos := calendar.Position(math.Round(n.anim.x))
		if n.momentum {
			pos = pos.Clamp(n.bounds.Min, n.bounds.Max)
		}
		n.position = pos
		if done {
			n.phase = PhaseIdle
			ds = n.deliverLocked(pos, false, now, true)
		} else {
			ds = n.deliverLocked(pos, false, now, false)
		}
	default:
		ds = n.flushLocked(now, false)
	}
	n.mu.Unlock()
	n.fire(ds)
}

// Run ticks every frame interval until ctx is done.
func (n *Navigator) Run(ctx context.Context) error {
	interval := n.cfg.FrameInterval
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			n.Tick(now)
		}
	}
}

// beginLocked starts a session on ch. Any running animation and any other
// channel's session are cancelled unconditionally.
func (n *Navigator) beginLocked(ch Channel, x float64, at time.Time) {
	if n.sess != nil && n.sess.channel != ch {
		n.log.Debug("gesture: session cancelled by new channel", "from", n.sess.channel, "to", ch)
	}
	n.sess = &session{channel: ch, startPos: n.unelastic(n.position), lastX: x, lastT: at}
	n.phase = PhaseDragging
	n.momentum = false
}

// moveLocked applies a drag-equivalent pixel delta. Positive dx moves back
// in time.
func (n *Navigator) moveLocked(dx float64, at time.Time) []delivery {
	s := n.sess
	s.deltaPx += dx
	if ms := float64(at.Sub(s.lastT)) / float64(time.Millisecond); ms > 0 {
		s.velocity = 0.8*(dx/ms) + 0.2*s.velocity
	}
	s.lastT = at

	raw := s.startPos - calendar.Position(math.Round(s.deltaPx/n.ppd))
	n.position = n.elastic(raw)
	return n.deliverLocked(n.position, true, at, false)
}

// elastic compresses overshoot past either bound. Flooring guarantees the
// result is strictly closer to the bound than raw.
func (n *Navigator) elastic(raw calendar.Position) calendar.Position {
	compress := func(over calendar.Position) calendar.Position {
		eff := math.Min(float64(over)*n.cfg.ElasticityFactor, float64(n.cfg.MaxElasticDays))
		return calendar.Position(math.Floor(eff))
	}
	switch {
	case raw < n.bounds.Min:
		return n.bounds.Min - compress(n.bounds.Min-raw)
	case raw > n.bounds.Max:
		return n.bounds.Max + compress(raw-n.bounds.Max)
	}
	return raw
}

// unelastic returns a raw position that elastic maps back to p, so a session
// begun past a bound resumes without a jump.
func (n *Navigator) unelastic(p calendar.Position) calendar.Position {
	f := n.cfg.ElasticityFactor
	if f <= 0 || !n.outOfBounds(p) {
		return p
	}
	bound, dir := n.bounds.Max, calendar.Position(1)
	if p < n.bounds.Min {
		bound, dir = n.bounds.Min, -1
	}
	eff := (p - bound) * dir
	raw := bound + dir*calendar.Position(math.Ceil(float64(eff)/f))
	// Float rounding can leave raw one day short of mapping back to p.
	for i := 0; i < 2 && (n.elastic(raw)-bound)*dir < eff; i++ {
		raw += dir
	}
	return raw
}

func (n *Navigator) outOfBounds(p calendar.Position) bool {
	return p < n.bounds.Min || p > n.bounds.Max
}

func (n *Navigator) nearestBound(p calendar.Position) calendar.Position {
	if p < n.bounds.Min {
		return n.bounds.Min
	}
	return n.bounds.Max
}

// deliverLocked dedupes pos against the last delivered position and
// throttles to one delivery per frame interval. force bypasses the throttle.
func (n *Navigator) deliverLocked(pos calendar.Position, dragging bool, at time.Time, force bool) []delivery {
	if pos == n.lastPos {
		n.pending = nil
		return nil
	}
	if force || at.Sub(n.lastAt) >= n.cfg.FrameInterval {
		n.pending = nil
		n.lastPos, n.lastAt = pos, at
		return []delivery{{pos: pos, dragging: dragging}}
	}
	n.pending = &delivery{pos: pos, dragging: dragging}
	return nil
}

func (n *Navigator) flushLocked(at time.Time, force bool) []delivery {
	if n.pending == nil {
		return nil
	}
	p := *n.pending
	dragging := p.dragging && n.phase == PhaseDragging
	return n.deliverLocked(p.pos, dragging, at, force)
}

func (n *Navigator) fire(ds []delivery) {
	for _, d := range ds {
		n.onNavigate(d.pos.Date(n.epoch), d.dragging)
	}
}
