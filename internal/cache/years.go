package cache

import (
	"fmt"
	"time"

	"github.com/papapumpkin/stripes/internal/energy"
)

// YearDataCache holds whole-year records keyed by year.
type YearDataCache struct {
	lru *LRU[int, *energy.YearRecord]
	ttl time.Duration
	now func() time.Time
}

// NewYearDataCache keeps at most maxYears records. A positive ttl expires
// records so a partially complete current year gets refetched.
func NewYearDataCache(maxYears int, ttl time.Duration, opts ...Option[int, *energy.YearRecord]) *YearDataCache {
	lru := NewLRU(maxYears, opts...)
	return &YearDataCache{lru: lru, ttl: ttl, now: lru.now}
}

// Get returns the cached record for year.
func (c *YearDataCache) Get(year int) (*energy.YearRecord, bool) {
	return c.lru.Get(year)
}

// Set stores rec, replacing any previous record for the same year wholesale.
func (c *YearDataCache) Set(rec *energy.YearRecord) {
	var expires time.Time
	if c.ttl > 0 {
		expires = c.now().Add(c.ttl)
	}
	label := fmt.Sprintf("%d (%d units)", rec.Year, len(rec.Units))
	c.lru.Set(rec.Year, rec, rec.SizeBytes(), label, expires)
}

// Has reports whether year is cached.
func (c *YearDataCache) Has(year int) bool { return c.lru.Has(year) }

// Delete drops the record for year.
func (c *YearDataCache) Delete(year int) bool { return c.lru.Delete(year) }

// Clear drops every record.
func (c *YearDataCache) Clear() { c.lru.Clear() }

// Stats returns the underlying LRU stats.
func (c *YearDataCache) Stats() Stats { return c.lru.Stats() }
