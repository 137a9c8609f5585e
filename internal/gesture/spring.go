package gesture

import (
	"math"
	"time"
)

const (
	springStep   = time.Millisecond
	maxFrameStep = 100 * time.Millisecond
	settleDist   = 0.5 // days
	settleSpeed  = 1.0 // days per second
)

// spring is a unit-mass damped spring in day units, integrated with
// semi-implicit Euler at a fixed 1ms sub-step.
type spring struct {
	tension, friction float64
	x, v, target      float64
	last              time.Time
}

func newSpring(tension, friction, from, to float64, at time.Time) spring {
	return spring{tension: tension, friction: friction, x: from, target: to, last: at}
}

// step advances to now and reports whether the spring has come to rest, in
// which case x equals target exactly.
func (s *spring) step(now time.Time) bool {
	elapsed := now.Sub(s.last)
	s.last = now
	if elapsed <= 0 {
		return s.settled()
	}
	elapsed = min(elapsed, maxFrameStep)
	dt := springStep.Seconds()
	for n := int(elapsed / springStep); n > 0; n-- {
		a := -s.tension*(s.x-s.target) - s.friction*s.v
		s.v += a * dt
		s.x += s.v * dt
	}
	return s.settled()
}

func (s *spring) settled() bool {
	if math.Abs(s.x-s.target) < settleDist && math.Abs(s.v) < settleSpeed {
		s.x, s.v = s.target, 0
		return true
	}
	return false
}
