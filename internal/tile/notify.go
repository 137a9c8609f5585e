package tile

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papapumpkin/stripes/internal/raster"
)

// StatusEvent is published on every tile status change.
type StatusEvent struct {
	Key  raster.TileKey
	From Status
	To   Status
	Err  error
	At   time.Time
}

// subscriberBuffer bounds each subscriber's backlog. Events beyond it are
// dropped so a slow reader never stalls the render loop.
const subscriberBuffer = 64

type bus struct {
	mu      sync.Mutex
	subs    map[uint64]chan StatusEvent
	nextID  uint64
	closed  bool
	dropped atomic.Uint64
}

func newBus() *bus {
	return &bus{subs: make(map[uint64]chan StatusEvent)}
}

func (b *bus) add() (uint64, chan StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan StatusEvent, subscriberBuffer)
	if b.closed {
		close(ch)
		return 0, ch
	}
	b.nextID++
	b.subs[b.nextID] = ch
	return b.nextID, ch
}

func (b *bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *bus) publish(ev StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *bus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Subscribe returns a channel of status events that is closed when ctx is
// done or the manager is closed. There is nothing to unsubscribe.
func (m *Manager) Subscribe(ctx context.Context) <-chan StatusEvent {
	id, ch := m.bus.add()
	if id == 0 {
		return ch
	}
	go func() {
		select {
		case <-ctx.Done():
		case <-m.ctx.Done():
		}
		m.bus.remove(id)
	}()
	return ch
}
