package tile

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/papapumpkin/stripes/internal/energy"
	"github.com/papapumpkin/stripes/internal/queue"
	"github.com/papapumpkin/stripes/internal/raster"
)

// Year returns the record for year from the year cache, fetching it through
// the request queue on a miss. Concurrent misses for one year share a single
// fetch.
func (m *Manager) Year(ctx context.Context, year int) (*energy.YearRecord, error) {
	if rec, ok := m.years.Get(year); ok {
		return rec, nil
	}
	v, err, _ := m.group.Do(strconv.Itoa(year), func() (any, error) {
		if rec, ok := m.years.Get(year); ok {
			return rec, nil
		}
		rec, err := queue.Enqueue(ctx, m.queue, fmt.Sprintf("year %d", year), func(ctx context.Context) (*energy.YearRecord, error) {
			m.fetches.Add(1)
			return m.fetcher.FetchYear(ctx, year)
		})
		if err != nil {
			return nil, err
		}
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		m.years.Set(rec)
		m.log.Debug("tile: year cached", "year", year, "units", len(rec.Units))
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*energy.YearRecord), nil
}

// enqueueLocked inserts key keeping pending sorted by (priority, arrival).
func (m *Manager) enqueueLocked(key raster.TileKey, priority int) {
	if m.closed {
		return
	}
	if i := slices.IndexFunc(m.pending, func(it item) bool { return it.key == key }); i >= 0 {
		if priority >= m.pending[i].priority {
			return
		}
		m.pending[i].priority = priority
	} else {
		m.seq++
		m.pending = append(m.pending, item{key: key, priority: priority, seq: m.seq})
	}
	slices.SortStableFunc(m.pending, func(a, b item) int {
		if c := cmp.Compare(a.priority, b.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	if !m.draining {
		m.draining = true
		m.idle = make(chan struct{})
		go m.drain()
	}
}

// drain renders pending tiles one at a time in priority order until the
// queue is empty.
func (m *Manager) drain() {
	for {
		m.mu.Lock()
		if len(m.pending) == 0 || m.closed {
			m.draining = false
			close(m.idle)
			m.mu.Unlock()
			return
		}
		it := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()

		m.process(it.key)
	}
}

func (m *Manager) process(key raster.TileKey) {
	m.mu.Lock()
	if m.status[key] != StatusEmpty || !m.setStatusLocked(key, StatusLoading, nil) {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	rec, err := m.Year(m.ctx, key.Year)
	if err != nil {
		m.fail(key, err)
		return
	}
	units, err := rec.Facility(key.Facility)
	if err != nil {
		m.fail(key, err)
		return
	}

	m.mu.Lock()
	m.setStatusLocked(key, StatusLoaded, nil)
	m.setStatusLocked(key, StatusRendering, nil)
	width := m.width
	m.mu.Unlock()

	t, err := m.renderer.Render(raster.Input{
		Key:     key,
		Units:   units,
		Heights: m.registry.UnitHeights(key.Facility, units),
		Width:   width,
	})
	if err != nil {
		m.fail(key, err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.width != width {
		// Resized mid-render; these pixels are already stale.
		m.setStatusLocked(key, StatusEmpty, nil)
		if slices.Contains(m.visible, key) {
			m.enqueueLocked(key, PriorityVisible)
		}
		return
	}
	m.tiles.Set(t)
	m.setStatusLocked(key, StatusReady, nil)
	m.log.Debug("tile: rendered", "tile", key, "width", t.Width, "height", t.Height, "took", t.RenderDuration)
}

func (m *Manager) fail(key raster.TileKey, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log.Warn("tile: pipeline failed", "tile", key, "status", m.status[key], "error", err)
	m.setStatusLocked(key, StatusError, err)
}
