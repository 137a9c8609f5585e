package cache

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/stripes/internal/calendar"
	"github.com/papapumpkin/stripes/internal/energy"
	"github.com/papapumpkin/stripes/internal/raster"
)

func record(year int) *energy.YearRecord {
	return &energy.YearRecord{
		Year: year,
		Units: []energy.Unit{{
			Code:     "ER01",
			Facility: "Eraring",
			Values:   energy.NewSeries(calendar.DaysInYear(year)),
		}},
	}
}

func tile(facility string, year, w, h int) *raster.RenderedTile {
	return &raster.RenderedTile{
		Key:    raster.TileKey{Facility: facility, Year: year},
		Width:  w,
		Height: h,
		Pix:    make([]byte, w*h*4),
	}
}

func TestTileCache_MemoryAndYearList(t *testing.T) {
	t.Parallel()

	c := NewTileCache(10)
	c.Set(tile("Eraring", 2023, 100, 10))
	c.Set(tile("Bayswater", 2021, 50, 4))
	c.Set(tile("Mt Piper", 2023, 10, 10))

	s := c.Stats()
	if want := int64(100*10*4 + 50*4*4 + 10*10*4); s.TotalBytes != want {
		t.Errorf("TotalBytes = %d, want %d", s.TotalBytes, want)
	}
	if diff := cmp.Diff([]int{2021, 2023}, s.YearList); diff != "" {
		t.Errorf("YearList mismatch (-want +got):\n%s", diff)
	}
	if got, ok := c.Get(raster.TileKey{Facility: "Bayswater", Year: 2021}); !ok || got.Width != 50 {
		t.Errorf("Get(Bayswater-2021) = %v, %v", got, ok)
	}
}

func TestCachesClearIndependently(t *testing.T) {
	t.Parallel()

	years := NewYearDataCache(5, 0)
	tiles := NewTileCache(5)
	years.Set(record(2022))
	years.Set(record(2023))
	tiles.Set(tile("Eraring", 2023, 10, 10))

	before := years.Stats()
	tiles.Clear()
	if diff := cmp.Diff(before, years.Stats()); diff != "" {
		t.Errorf("clearing tiles changed year stats (-before +after):\n%s", diff)
	}
	if tiles.Len() != 0 {
		t.Errorf("tiles.Len() = %d after Clear", tiles.Len())
	}

	tiles.Set(tile("Eraring", 2022, 10, 10))
	tileBefore := tiles.Stats()
	years.Clear()
	if diff := cmp.Diff(tileBefore, tiles.Stats()); diff != "" {
		t.Errorf("clearing years changed tile stats (-before +after):\n%s", diff)
	}
	if years.Has(2022) {
		t.Error("year cache should be empty")
	}
}

func TestYearDataCache_ReplaceAndTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	c := NewYearDataCache(2, time.Hour, WithClock[int, *energy.YearRecord](func() time.Time { return now }))

	first := record(2024)
	c.Set(first)
	second := record(2024)
	c.Set(second)

	got, ok := c.Get(2024)
	if !ok || got != second {
		t.Fatal("Set should replace the record wholesale")
	}
	if n := c.Stats().NumItems; n != 1 {
		t.Errorf("NumItems = %d, want 1", n)
	}
	if want := "2024 (1 units)"; c.Stats().Labels[0] != want {
		t.Errorf("label = %q, want %q", c.Stats().Labels[0], want)
	}

	now = now.Add(2 * time.Hour)
	if _, ok := c.Get(2024); ok {
		t.Error("record should expire after ttl")
	}
}
