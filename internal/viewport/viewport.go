// Package viewport is the pure geometry between a visible date window and
// pixels: where each (facility, year) tile lands and which tiles are needed.
package viewport

import (
	"math"

	"github.com/papapumpkin/stripes/internal/calendar"
	"github.com/papapumpkin/stripes/internal/raster"
)

// Facility is one stripe row and its pixel height.
type Facility struct {
	Name   string
	Height int
}

// Rect is a tile's placement in viewport pixels. X may be negative or past
// the right edge for partially visible tiles.
type Rect struct {
	X      float64
	Y      int
	Width  float64
	Height int
}

// Want pairs a tile with its render priority.
type Want struct {
	Key      raster.TileKey
	Priority int
}

// Viewport shows WindowDays days ending at End across Width pixels. It holds
// no caches and does no I/O.
type Viewport struct {
	End        calendar.Date
	WindowDays int
	Width      int
	Height     int
	ScrollX    float64
	Facilities []Facility
}

// New returns a viewport showing windowDays days ending at end.
func New(end calendar.Date, windowDays, width, height int) *Viewport {
	if windowDays < 1 {
		windowDays = 1
	}
	return &Viewport{End: end, WindowDays: windowDays, Width: width, Height: height}
}

// Start is the first visible day.
func (v *Viewport) Start() calendar.Date {
	return v.End.SubtractDays(v.WindowDays - 1)
}

// PixelsPerDay is the container width divided by the visible day count.
func (v *Viewport) PixelsPerDay() float64 {
	return float64(v.Width) / float64(v.WindowDays)
}

// TilePosition places key. ok is false when the facility is not shown.
func (v *Viewport) TilePosition(key raster.TileKey) (r Rect, ok bool) {
	y := 0
	for _, f := range v.Facilities {
		if f.Name == key.Facility {
			ppd := v.PixelsPerDay()
			days := calendar.DaysBetween(v.Start(), calendar.YearStart(key.Year))
			return Rect{
				X:      float64(days)*ppd - v.ScrollX,
				Y:      y,
				Width:  float64(calendar.DaysInYear(key.Year)) * ppd,
				Height: f.Height,
			}, true
		}
		y += f.Height
	}
	return Rect{}, false
}

// TotalHeight sums every facility row.
func (v *Viewport) TotalHeight() int {
	h := 0
	for _, f := range v.Facilities {
		h += f.Height
	}
	return h
}

// VisibleYears lists the years the window touches, oldest first.
func (v *Viewport) VisibleYears() []int {
	first, last := v.Start().Year, v.End.Year
	years := make([]int, 0, last-first+1)
	for y := first; y <= last; y++ {
		years = append(years, y)
	}
	return years
}

// visibleFacilities returns the rows that intersect [0, Height). A
// non-positive Height shows every row.
func (v *Viewport) visibleFacilities() []Facility {
	if v.Height <= 0 {
		return v.Facilities
	}
	var out []Facility
	y := 0
	for _, f := range v.Facilities {
		if y >= v.Height {
			break
		}
		out = append(out, f)
		y += f.Height
	}
	return out
}

// VisibleTiles lists every tile covering the window, row by row.
func (v *Viewport) VisibleTiles() []raster.TileKey {
	years := v.VisibleYears()
	var keys []raster.TileKey
	for _, f := range v.visibleFacilities() {
		for _, y := range years {
			keys = append(keys, raster.TileKey{Facility: f.Name, Year: y})
		}
	}
	return keys
}

// PreloadTiles lists tiles up to margin years either side of the window.
// Priority is the distance in years from the nearest visible year, so
// adjacent years get 1.
func (v *Viewport) PreloadTiles(margin int) []Want {
	years := v.VisibleYears()
	first, last := years[0], years[len(years)-1]
	var wants []Want
	for d := 1; d <= margin; d++ {
		for _, f := range v.visibleFacilities() {
			wants = append(wants,
				Want{Key: raster.TileKey{Facility: f.Name, Year: first - d}, Priority: d},
				Want{Key: raster.TileKey{Facility: f.Name, Year: last + d}, Priority: d},
			)
		}
	}
	return wants
}

// DateAtX returns the day under pixel column x.
func (v *Viewport) DateAtX(x float64) calendar.Date {
	ppd := v.PixelsPerDay()
	if ppd <= 0 {
		return v.Start()
	}
	return v.Start().AddDays(int(math.Floor((x + v.ScrollX) / ppd)))
}
