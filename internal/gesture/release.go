package gesture

import (
	"math"
	"time"

	"github.com/papapumpkin/stripes/internal/calendar"
	"github.com/papapumpkin/stripes/internal/telemetry"
)

// endChannel releases the session on ch, choosing snap-back, momentum or
// nothing in that order of precedence.
func (n *Navigator) endChannel(ch Channel, at time.Time) {
	n.mu.Lock()
	s := n.sess
	if s == nil || s.channel != ch {
		n.mu.Unlock()
		return
	}
	n.sess = nil
	n.phase = PhaseIdle

	v := s.velocity
	if at.Sub(s.lastT) > releaseStale {
		v = 0
	}
	pos := n.position
	outcome := "none"
	var ds []delivery
	switch {
	case n.outOfBounds(pos):
		outcome = "snapback"
		n.startAnimLocked(n.nearestBound(pos), false, at)
	case math.Abs(v) > n.cfg.VelocityThreshold:
		target := (pos - calendar.Position(math.Round(v*n.cfg.MomentumScale/n.ppd))).Clamp(n.bounds.Min, n.bounds.Max)
		if target != pos {
			outcome = "momentum"
			n.startAnimLocked(target, true, at)
		} else {
			ds = n.flushLocked(at, true)
		}
	default:
		ds = n.flushLocked(at, true)
	}
	n.mu.Unlock()

	n.log.Debug("gesture: release", "channel", ch, "outcome", outcome, "position", pos, "velocity", v)
	if err := n.events.Emit(telemetry.Event{
		Kind: telemetry.KindNavigate,
		Data: map[string]any{"channel": ch.String(), "outcome": outcome, "position": int(pos), "velocity": v},
	}); err != nil {
		n.log.Debug("gesture: telemetry write failed", "error", err)
	}
	n.fire(ds)
}

func (n *Navigator) startAnimLocked(target calendar.Position, momentum bool, at time.Time) {
	if target == n.position {
		n.phase = PhaseIdle
		return
	}
	n.anim = newSpring(n.cfg.SpringTension, n.cfg.SpringFriction, float64(n.position), float64(target), at)
	n.momentum = momentum
	if momentum {
		n.phase = PhaseMomentum
	} else {
		n.phase = PhaseSnapBack
	}
}
