// Package raster turns one facility's year of capacity factors into a pixel
// buffer. A RenderedTile is derived data: it can always be recomputed from its
// YearRecord, which is what makes it safe to evict.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strconv"
	"strings"
	"time"
)

// TileKey identifies a tile: one facility over one calendar year.
type TileKey struct {
	Facility string
	Year     int
}

// String renders the composite cache key "Facility-Year".
func (k TileKey) String() string {
	return k.Facility + "-" + strconv.Itoa(k.Year)
}

// ParseTileKey splits "Facility-Year" at the last hyphen, so facility names
// that contain hyphens survive.
func ParseTileKey(s string) (TileKey, error) {
	i := strings.LastIndex(s, "-")
	if i <= 0 || i == len(s)-1 {
		return TileKey{}, fmt.Errorf("raster: malformed tile key %q", s)
	}
	year, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return TileKey{}, fmt.Errorf("raster: malformed tile key %q: %w", s, err)
	}
	return TileKey{Facility: s[:i], Year: year}, nil
}

// RenderedTile is an RGBA pixel buffer with its provenance.
type RenderedTile struct {
	Key            TileKey
	Width          int
	Height         int
	Days           int
	Pix            []byte // row-major RGBA, len = Width*Height*4
	RenderDuration time.Duration
	CreatedAt      time.Time
}

// Bytes is the memory charged to the tile cache: one 32-bit pixel each.
func (t *RenderedTile) Bytes() int64 {
	return int64(t.Width) * int64(t.Height) * 4
}

// At returns the pixel at (x, y). Out-of-range coordinates are transparent.
func (t *RenderedTile) At(x, y int) color.RGBA {
	if x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return color.RGBA{}
	}
	i := (y*t.Width + x) * 4
	return color.RGBA{R: t.Pix[i], G: t.Pix[i+1], B: t.Pix[i+2], A: t.Pix[i+3]}
}

// Image wraps the buffer without copying.
func (t *RenderedTile) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    t.Pix,
		Stride: t.Width * 4,
		Rect:   image.Rect(0, 0, t.Width, t.Height),
	}
}

// WritePNG encodes the tile as PNG.
func WritePNG(w io.Writer, t *RenderedTile) error {
	if err := png.Encode(w, t.Image()); err != nil {
		return fmt.Errorf("raster: encode png %s: %w", t.Key, err)
	}
	return nil
}
