package tui

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/papapumpkin/stripes/internal/calendar"
	"github.com/papapumpkin/stripes/internal/raster"
)

// cellKind says what a chart cell shows.
type cellKind int

const (
	cellPending cellKind = iota
	cellColor
	cellError
)

// cell is one terminal column of one facility row.
type cell struct {
	kind  cellKind
	color colorful.Color
}

// sampleDay averages the tile's pixel column for day d into a single colour.
// Transparent pixels are skipped; ok is false when nothing opaque remains.
func sampleDay(t *raster.RenderedTile, d calendar.Date) (colorful.Color, bool) {
	if t == nil || t.Days <= 0 || t.Width <= 0 || d.Year != t.Key.Year {
		return colorful.Color{}, false
	}
	x := calendar.DayIndex(d) * t.Width / t.Days
	var r, g, b float64
	n := 0
	for y := 0; y < t.Height; y++ {
		px := t.At(x, y)
		if px.A == 0 {
			continue
		}
		c, _ := colorful.MakeColor(px)
		r += c.R
		g += c.G
		b += c.B
		n++
	}
	if n == 0 {
		return colorful.Color{}, false
	}
	f := float64(n)
	return colorful.Color{R: r / f, G: g / f, B: b / f}.Clamped(), true
}
