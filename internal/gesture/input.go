package gesture

import (
	"math"
	"time"
)

// DragStart begins a pointer gesture at pixel x.
func (n *Navigator) DragStart(x float64, at time.Time) {
	n.mu.Lock()
	n.beginLocked(ChannelPointer, x, at)
	n.mu.Unlock()
}

// DragMove moves the pointer to x.
func (n *Navigator) DragMove(x float64, at time.Time) {
	n.mu.Lock()
	var ds []delivery
	if s := n.sess; s != nil && s.channel == ChannelPointer {
		ds = n.moveLocked(x-s.lastX, at)
		s.lastX = x
	}
	n.mu.Unlock()
	n.fire(ds)
}

// DragEnd releases the pointer.
func (n *Navigator) DragEnd(at time.Time) {
	n.endChannel(ChannelPointer, at)
}

// Wheel feeds one wheel or trackpad event. The dominant axis is used;
// positive deltas scroll forward in time. The session ends after WheelIdle
// without events, detected by Tick.
func (n *Navigator) Wheel(dx, dy float64, at time.Time) {
	d := dx
	if math.Abs(dy) > math.Abs(dx) {
		d = dy
	}
	n.mu.Lock()
	if n.sess == nil || n.sess.channel != ChannelWheel {
		n.beginLocked(ChannelWheel, 0, at)
	}
	n.wheelAt = at
	ds := n.moveLocked(-d, at)
	n.mu.Unlock()
	n.fire(ds)
}

// TouchStart registers finger id at x. A two-finger gesture begins when
// the second finger lands.
func (n *Navigator) TouchStart(id int, x float64, at time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.touches[id] = x
	if s := n.sess; s != nil && s.channel == ChannelTouch {
		s.lastX = centroid(n.touches)
		return
	}
	if len(n.touches) >= 2 {
		n.beginLocked(ChannelTouch, centroid(n.touches), at)
	}
}

// TouchMove moves finger id to x; the gesture follows the centroid.
func (n *Navigator) TouchMove(id int, x float64, at time.Time) {
	n.mu.Lock()
	var ds []delivery
	if _, ok := n.touches[id]; ok {
		n.touches[id] = x
		if s := n.sess; s != nil && s.channel == ChannelTouch {
			c := centroid(n.touches)
			ds = n.moveLocked(c-s.lastX, at)
			s.lastX = c
		}
	}
	n.mu.Unlock()
	n.fire(ds)
}

// TouchEnd lifts finger id. Dropping below two fingers releases.
func (n *Navigator) TouchEnd(id int, at time.Time) {
	n.mu.Lock()
	delete(n.touches, id)
	s := n.sess
	if s == nil || s.channel != ChannelTouch {
		n.mu.Unlock()
		return
	}
	if len(n.touches) >= 2 {
		s.lastX = centroid(n.touches)
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()
	n.endChannel(ChannelTouch, at)
}

func centroid(touches map[int]float64) float64 {
	if len(touches) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range touches {
		sum += x
	}
	return sum / float64(len(touches))
}
