package cache

import (
	"sort"
	"time"

	"github.com/papapumpkin/stripes/internal/raster"
)

// TileCache holds rendered tiles keyed by "Facility-Year".
type TileCache struct {
	lru *LRU[string, *raster.RenderedTile]
}

// TileStats extends Stats with the distinct years currently cached.
type TileStats struct {
	Stats
	YearList []int
}

// NewTileCache keeps at most maxTiles rendered tiles.
func NewTileCache(maxTiles int, opts ...Option[string, *raster.RenderedTile]) *TileCache {
	return &TileCache{lru: NewLRU(maxTiles, opts...)}
}

// Get returns the tile for key.
func (c *TileCache) Get(key raster.TileKey) (*raster.RenderedTile, bool) {
	return c.lru.Get(key.String())
}

// Set stores tile, charging width*height*4 bytes.
func (c *TileCache) Set(tile *raster.RenderedTile) {
	c.lru.Set(tile.Key.String(), tile, tile.Bytes(), tile.Key.String(), time.Time{})
}

// Has reports whether key is cached.
func (c *TileCache) Has(key raster.TileKey) bool { return c.lru.Has(key.String()) }

// Delete drops the tile for key.
func (c *TileCache) Delete(key raster.TileKey) bool { return c.lru.Delete(key.String()) }

// Clear drops every tile.
func (c *TileCache) Clear() { c.lru.Clear() }

// Len returns the number of cached tiles.
func (c *TileCache) Len() int { return c.lru.Len() }

// Stats returns LRU stats plus the sorted distinct years parsed from labels.
func (c *TileCache) Stats() TileStats {
	s := c.lru.Stats()
	seen := make(map[int]bool)
	var years []int
	for _, label := range s.Labels {
		key, err := raster.ParseTileKey(label)
		if err != nil || seen[key.Year] {
			continue
		}
		seen[key.Year] = true
		years = append(years, key.Year)
	}
	sort.Ints(years)
	return TileStats{Stats: s, YearList: years}
}
