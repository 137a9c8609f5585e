// Package ui prints human-facing CLI output. Structured diagnostics go
// through slog instead.
package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/papapumpkin/stripes/internal/cache"
	"github.com/papapumpkin/stripes/internal/calendar"
	"github.com/papapumpkin/stripes/internal/gesture"
	"github.com/papapumpkin/stripes/internal/queue"
	"github.com/papapumpkin/stripes/internal/raster"
	"github.com/papapumpkin/stripes/internal/tile"
)

type Printer struct {
	w io.Writer

	bold, dim, cyan, green, yellow, red *color.Color
}

// New returns a Printer writing to stderr, coloured when stderr is a terminal.
func New() *Printer {
	return NewWriter(os.Stderr, color.NoColor)
}

// NewWriter returns a Printer writing to w.
func NewWriter(w io.Writer, noColor bool) *Printer {
	p := &Printer{
		w:      w,
		bold:   color.New(color.Bold),
		dim:    color.New(color.Faint),
		cyan:   color.New(color.FgCyan, color.Bold),
		green:  color.New(color.FgGreen, color.Bold),
		yellow: color.New(color.FgYellow, color.Bold),
		red:    color.New(color.FgRed, color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.bold, p.dim, p.cyan, p.green, p.yellow, p.red} {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) Banner() {
	fmt.Fprintln(p.w, p.cyan.Sprint("stripes")+" "+p.dim.Sprint("coal capacity factors, one stripe per day"))
}

func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w, "%s %s\n", p.red.Sprint("error:"), msg)
}

func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w, p.dim.Sprint(msg))
}

// TileWritten reports a rendered tile saved to path.
func (p *Printer) TileWritten(t *raster.RenderedTile, path string) {
	fmt.Fprintf(p.w, "%s %s %dx%d, %d days, %s in %s -> %s\n",
		p.green.Sprint("✓"), t.Key, t.Width, t.Height, t.Days,
		humanize.IBytes(uint64(t.Bytes())), t.RenderDuration.Round(time.Microsecond), path)
}

// TileFailed reports a tile that ended in the error state.
func (p *Printer) TileFailed(key raster.TileKey, err error) {
	fmt.Fprintf(p.w, "%s %s: %v\n", p.red.Sprint("✗"), key, err)
}

// TileEvent prints one status change.
func (p *Printer) TileEvent(ev tile.StatusEvent) {
	c := p.dim
	switch ev.To {
	case tile.StatusReady:
		c = p.green
	case tile.StatusError:
		c = p.red
	}
	line := fmt.Sprintf("  %-22s %s -> %s", ev.Key, ev.From, c.Sprint(ev.To))
	if ev.Err != nil {
		line += " " + p.dim.Sprint(ev.Err.Error())
	}
	fmt.Fprintln(p.w, line)
}

// CacheStats prints one cache's counters and its MRU-first labels.
func (p *Printer) CacheStats(name string, s cache.Stats, maxLabels int) {
	ratio := 0.0
	if total := s.Hits + s.Misses; total > 0 {
		ratio = float64(s.Hits) / float64(total) * 100
	}
	fmt.Fprintf(p.w, "%s %s entries, %s, hit rate %.0f%%, %s evictions\n",
		p.bold.Sprintf("%-6s", name), humanize.Comma(int64(s.NumItems)),
		humanize.IBytes(uint64(s.TotalBytes)), ratio, humanize.Comma(int64(s.Evictions)))
	for i, l := range s.Labels {
		if i == maxLabels {
			fmt.Fprintf(p.w, "  %s\n", p.dim.Sprintf("… %d more", len(s.Labels)-maxLabels))
			break
		}
		fmt.Fprintf(p.w, "  %s\n", p.dim.Sprint(l))
	}
}

// QueueStats prints request queue counters and circuit state.
func (p *Printer) QueueStats(name string, s queue.Stats) {
	circuit := p.green.Sprint(s.Circuit)
	if s.Circuit != queue.StateClosed {
		circuit = p.yellow.Sprint(s.Circuit)
	}
	fmt.Fprintf(p.w, "%s completed %d, failed %d, retries %d, rejected %d, circuit %s\n",
		p.bold.Sprintf("queue %s", name), s.Completed, s.Failed, s.Retries, s.Rejected, circuit)
}

// ManagerStats prints the tile pipeline summary.
func (p *Printer) ManagerStats(s tile.Stats) {
	statuses := make([]tile.Status, 0, len(s.ByStatus))
	for st := range s.ByStatus {
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
	fmt.Fprintf(p.w, "%s fetches %d, pending %d", p.bold.Sprint("tiles "), s.Fetches, s.Pending)
	for _, st := range statuses {
		fmt.Fprintf(p.w, ", %s %d", st, s.ByStatus[st])
	}
	fmt.Fprintln(p.w)
	if len(s.Tiles.YearList) > 0 {
		fmt.Fprintf(p.w, "  %s\n", p.dim.Sprintf("years rendered: %v", s.Tiles.YearList))
	}
}

// Bounds prints the navigation window.
func (p *Printer) Bounds(epoch, first, last calendar.Date, b gesture.Bounds) {
	fmt.Fprintf(p.w, "%s %s .. %s (%s days)\n", p.bold.Sprint("data   "), first, last,
		humanize.Comma(int64(calendar.DaysBetween(first, last)+1)))
	fmt.Fprintf(p.w, "%s %d .. %d (%s .. %s)\n", p.bold.Sprint("bounds "),
		b.Min, b.Max, b.Min.Date(epoch), b.Max.Date(epoch))
}

// Imported reports one year loaded into the SQL source.
func (p *Printer) Imported(year, units int, took time.Duration) {
	fmt.Fprintf(p.w, "%s %d: %d units in %s\n", p.green.Sprint("✓"), year, units, took.Round(time.Millisecond))
}
