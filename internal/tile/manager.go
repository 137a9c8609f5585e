// Package tile runs the fetch -> render pipeline that keeps a scrolling
// stripes viewport populated. A Manager owns the tile status map and a
// priority render queue drained by at most one goroutine at a time.
package tile

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/papapumpkin/stripes/internal/cache"
	"github.com/papapumpkin/stripes/internal/energy"
	"github.com/papapumpkin/stripes/internal/queue"
	"github.com/papapumpkin/stripes/internal/raster"
	"github.com/papapumpkin/stripes/internal/telemetry"
)

// Priorities used by callers. Larger values are further from view.
const (
	PriorityVisible  = 0
	PriorityAdjacent = 1
)

// Info is the viewport geometry the manager renders for.
type Info struct {
	Width   int
	Height  int
	Visible []raster.TileKey
}

// Deps are the collaborators a Manager is built from. Fetcher, Queue,
// Years, Tiles and Registry are required.
type Deps struct {
	Fetcher  energy.Fetcher
	Queue    *queue.Queue
	Years    *cache.YearDataCache
	Tiles    *cache.TileCache
	Registry *energy.Registry
	Renderer raster.Renderer
	Logger   *slog.Logger
	Events   *telemetry.Emitter
}

// Stats summarises pipeline state for display.
type Stats struct {
	Years    cache.Stats
	Tiles    cache.TileStats
	Queue    queue.Stats
	Pending  int
	Draining bool
	Fetches  int64
	ByStatus map[Status]int
	Dropped  uint64
}

type item struct {
	key      raster.TileKey
	priority int
	seq      uint64
}

// Manager coordinates the year cache, the tile cache and the request queue.
// It is safe for concurrent use.
type Manager struct {
	fetcher  energy.Fetcher
	queue    *queue.Queue
	years    *cache.YearDataCache
	tiles    *cache.TileCache
	registry *energy.Registry
	renderer raster.Renderer
	log      *slog.Logger
	events   *telemetry.Emitter
	bus      *bus
	group    singleflight.Group
	fetches  atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	width    int
	height   int
	visible  []raster.TileKey
	status   map[raster.TileKey]Status
	errs     map[raster.TileKey]error
	pending  []item
	seq      uint64
	draining bool
	idle     chan struct{}
	closed   bool
}

// New validates deps and returns a Manager. Close releases it.
func New(d Deps) (*Manager, error) {
	switch {
	case d.Fetcher == nil:
		return nil, errors.New("tile: new manager: nil fetcher")
	case d.Queue == nil:
		return nil, errors.New("tile: new manager: nil queue")
	case d.Years == nil || d.Tiles == nil:
		return nil, errors.New("tile: new manager: nil cache")
	case d.Registry == nil:
		return nil, errors.New("tile: new manager: nil registry")
	}
	if d.Renderer == nil {
		d.Renderer = raster.NewStripeRenderer()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &Manager{
		fetcher:  d.Fetcher,
		queue:    d.Queue,
		years:    d.Years,
		tiles:    d.Tiles,
		registry: d.Registry,
		renderer: d.Renderer,
		log:      d.Logger.With("component", "tile"),
		events:   d.Events,
		bus:      newBus(),
		ctx:      ctx,
		cancel:   cancel,
		status:   make(map[raster.TileKey]Status),
		errs:     make(map[raster.TileKey]error),
		idle:     idle,
	}, nil
}

// SetViewport records the current geometry. When the width differs from a
// previous call every rendered tile is discarded, since pixel buffers are
// width-specific, and the visible tiles are queued again. Year data is kept.
func (m *Manager) SetViewport(info Info) {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := m.width != 0 && info.Width != m.width
	m.width, m.height = info.Width, info.Height
	m.visible = slices.Clone(info.Visible)
	if !changed {
		return
	}

	m.tiles.Clear()
	for key, st := range m.status {
		if st == StatusReady {
			m.setStatusLocked(key, StatusEmpty, nil)
		}
	}
	m.log.Info("tile: viewport width changed, tile cache cleared", "width", info.Width, "requeued", len(info.Visible))
	m.emit(telemetry.Event{Kind: telemetry.KindCacheClear, Data: map[string]any{"cache": "tiles", "width": info.Width}})
	for _, key := range info.Visible {
		if m.status[key] == StatusEmpty {
			m.enqueueLocked(key, PriorityVisible)
		}
	}
}

// GetTile returns the rendered tile for key without blocking. On a miss it
// queues the tile at visible priority unless work is already outstanding or
// the tile has failed; failed tiles need an explicit Request.
func (m *Manager) GetTile(key raster.TileKey) (*raster.RenderedTile, bool) {
	if t, ok := m.tiles.Get(key); ok {
		return t, true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.status[key] {
	case StatusReady:
		// Evicted from the tile cache since it was rendered.
		m.setStatusLocked(key, StatusEmpty, nil)
		m.enqueueLocked(key, PriorityVisible)
	case StatusEmpty:
		m.enqueueLocked(key, PriorityVisible)
	}
	return nil, false
}

// Request queues key at priority. It is the only way to restart a tile in
// the error state. Re-requesting a queued key can only improve its priority.
func (m *Manager) Request(key raster.TileKey, priority int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLocked(key, priority)
}

func (m *Manager) requestLocked(key raster.TileKey, priority int) {
	switch m.status[key] {
	case StatusError:
		m.setStatusLocked(key, StatusEmpty, nil)
	case StatusReady:
		if m.tiles.Has(key) {
			return
		}
		m.setStatusLocked(key, StatusEmpty, nil)
	case StatusEmpty:
	default:
		return
	}
	m.enqueueLocked(key, priority)
}

// Preload queues keys at basePriority. Cached, in-flight and failed tiles are
// skipped.
func (m *Manager) Preload(keys []raster.TileKey, basePriority int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		switch m.status[key] {
		case StatusEmpty:
			m.enqueueLocked(key, basePriority)
		case StatusReady:
			if !m.tiles.Has(key) {
				m.setStatusLocked(key, StatusEmpty, nil)
				m.enqueueLocked(key, basePriority)
			}
		}
	}
}

// InvalidateYear drops the cached record for year and every tile rendered
// from it, then queues the visible ones again. Failed tiles of that year are
// reset too, since the data they failed on has changed.
func (m *Manager) InvalidateYear(year int) {
	m.years.Delete(year)

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, st := range m.status {
		if key.Year != year {
			continue
		}
		m.tiles.Delete(key)
		if st == StatusReady || st == StatusError {
			m.setStatusLocked(key, StatusEmpty, nil)
		}
	}
	m.emit(telemetry.Event{Kind: telemetry.KindCacheClear, Year: year, Data: map[string]any{"cache": "years"}})
	for _, key := range m.visible {
		if key.Year == year && m.status[key] == StatusEmpty {
			m.enqueueLocked(key, PriorityVisible)
		}
	}
}

// Status returns the current status of key.
func (m *Manager) Status(key raster.TileKey) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[key]
}

// Err returns the error that put key into the error state, if any.
func (m *Manager) Err(key raster.TileKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[key]
}

// Wait blocks until the render queue has drained or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	for {
		m.mu.Lock()
		idle := m.idle
		draining := m.draining
		m.mu.Unlock()
		if !draining {
			return nil
		}
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the drain loop after the current tile and ends all
// subscriptions. Queued tiles are abandoned.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.pending = nil
	m.mu.Unlock()
	m.cancel()
	m.bus.close()
}

// Stats returns a snapshot of the caches, the queue and the status map.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	byStatus := make(map[Status]int)
	for _, st := range m.status {
		byStatus[st]++
	}
	s := Stats{
		Pending:  len(m.pending),
		Draining: m.draining,
		ByStatus: byStatus,
	}
	m.mu.Unlock()
	s.Years = m.years.Stats()
	s.Tiles = m.tiles.Stats()
	s.Queue = m.queue.Stats()
	s.Fetches = m.fetches.Load()
	s.Dropped = m.bus.dropped.Load()
	return s
}

// setStatusLocked applies a transition, recording err for the error state
// and notifying subscribers. Illegal transitions are logged and ignored.
func (m *Manager) setStatusLocked(key raster.TileKey, to Status, err error) bool {
	from := m.status[key]
	if from == to {
		return true
	}
	if verr := ValidateTransition(from, to); verr != nil {
		m.log.Error("tile: rejected status change", "tile", key, "error", verr)
		return false
	}
	if to == StatusEmpty {
		delete(m.status, key)
	} else {
		m.status[key] = to
	}
	if to == StatusError {
		m.errs[key] = err
	} else {
		delete(m.errs, key)
	}
	ev := StatusEvent{Key: key, From: from, To: to, Err: err, At: time.Now()}
	m.bus.publish(ev)
	data := map[string]any{"from": from.String(), "to": to.String()}
	if err != nil {
		data["error"] = err.Error()
	}
	m.emit(telemetry.Event{Kind: telemetry.KindTileStatus, Tile: key.String(), Year: key.Year, Data: data})
	return true
}

func (m *Manager) emit(evt telemetry.Event) {
	if err := m.events.Emit(evt); err != nil {
		m.log.Debug("tile: telemetry write failed", "error", err)
	}
}

// Keys returns every key with a non-empty status, sorted.
func (m *Manager) Keys() []raster.TileKey {
	m.mu.Lock()
	keys := slices.Collect(maps.Keys(m.status))
	m.mu.Unlock()
	slices.SortFunc(keys, func(a, b raster.TileKey) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return strings.Compare(a.Facility, b.Facility)
	})
	return keys
}
