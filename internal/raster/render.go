package raster

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/papapumpkin/stripes/internal/calendar"
	"github.com/papapumpkin/stripes/internal/energy"
)

// RenderError reports a pixel synthesis failure on otherwise valid data.
type RenderError struct {
	Key    TileKey
	Reason string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("raster: render %s: %s", e.Key, e.Reason)
}

// Input is everything a renderer needs for one tile.
type Input struct {
	Key     TileKey
	Units   []energy.Unit
	Heights map[string]int // unit code -> band height in pixels
	Width   int            // total pixel width for the whole year
}

// Renderer synthesizes a tile. Implementations must be safe to call from the
// tile manager's render goroutine.
type Renderer interface {
	Render(in Input) (*RenderedTile, error)
}

// StripeRenderer draws one horizontal band per unit and one column span per
// day, coloured by capacity factor. Days without data use Placeholder.
type StripeRenderer struct {
	Low         colorful.Color // 0% capacity factor
	High        colorful.Color // 100% capacity factor
	Placeholder color.RGBA

	now func() time.Time
}

// NewStripeRenderer returns a renderer with the default pale-to-charcoal ramp.
func NewStripeRenderer() *StripeRenderer {
	low, _ := colorful.Hex("#fdf6e3")
	high, _ := colorful.Hex("#1f1d1a")
	return &StripeRenderer{
		Low:         low,
		High:        high,
		Placeholder: color.RGBA{R: 0xe4, G: 0xe4, B: 0xe7, A: 0xff},
		now:         time.Now,
	}
}

// Color maps a capacity factor to its stripe colour.
func (r *StripeRenderer) Color(cf float64) color.RGBA {
	t := math.Max(0, math.Min(100, cf)) / 100
	c := r.Low.BlendHcl(r.High, t).Clamped()
	red, green, blue := c.RGB255()
	return color.RGBA{R: red, G: green, B: blue, A: 0xff}
}

// Render implements Renderer.
func (r *StripeRenderer) Render(in Input) (*RenderedTile, error) {
	start := r.now()
	if in.Width <= 0 {
		return nil, &RenderError{Key: in.Key, Reason: fmt.Sprintf("width %d", in.Width)}
	}
	if len(in.Units) == 0 {
		return nil, &RenderError{Key: in.Key, Reason: "no units"}
	}
	days := calendar.DaysInYear(in.Key.Year)
	height := 0
	for _, u := range in.Units {
		if len(u.Values) != days {
			return nil, &RenderError{Key: in.Key, Reason: fmt.Sprintf("unit %s has %d days, want %d", u.Code, len(u.Values), days)}
		}
		height += in.Heights[u.Code]
	}
	if height <= 0 {
		return nil, &RenderError{Key: in.Key, Reason: "zero total height"}
	}

	pix := make([]byte, in.Width*height*4)
	// Column x shows the day whose span [d*W/days, (d+1)*W/days) contains it.
	dayOf := make([]int, in.Width)
	for x := range dayOf {
		dayOf[x] = min(x*days/in.Width, days-1)
	}

	y0 := 0
	for _, u := range in.Units {
		h := in.Heights[u.Code]
		for x := 0; x < in.Width; x++ {
			c := r.Placeholder
			if v, ok := u.Values.At(dayOf[x]); ok {
				c = r.Color(v)
			}
			for y := y0; y < y0+h; y++ {
				i := (y*in.Width + x) * 4
				pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
			}
		}
		y0 += h
	}

	return &RenderedTile{
		Key:            in.Key,
		Width:          in.Width,
		Height:         height,
		Days:           days,
		Pix:            pix,
		RenderDuration: r.now().Sub(start),
		CreatedAt:      r.now(),
	}, nil
}
