package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/papapumpkin/stripes/internal/calendar"
	"github.com/papapumpkin/stripes/internal/queue"
	"github.com/papapumpkin/stripes/internal/raster"
	"github.com/papapumpkin/stripes/internal/tile"
)

// View renders the header, one row per facility, the status bar and the
// footer.
func (m Model) View() string {
	if m.Width == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteByte('\n')

	rows := m.chartRows()
	for i, f := range m.View.Facilities {
		if i >= rows {
			break
		}
		b.WriteString(m.row(f.Name))
		b.WriteByte('\n')
	}
	b.WriteString(m.statusBar())
	b.WriteByte('\n')
	b.WriteString(Footer{Width: m.Width, Bindings: footerBindings(m.Keys)}.View())
	return b.String()
}

func (m Model) header() string {
	span := fmt.Sprintf("%s → %s", m.View.Start(), m.View.End)
	return styleHeader.Render(fmt.Sprintf("%-*s%s", LabelWidth, "", span))
}

func (m Model) row(facility string) string {
	var b strings.Builder
	b.WriteString(styleLabel.Render(fmt.Sprintf("%-*.*s", LabelWidth, LabelWidth-1, facility)))

	tiles := make(map[int]*raster.RenderedTile)
	for c := range m.chartWidth() {
		d := m.View.DateAtX(float64(c))
		b.WriteString(m.renderCell(m.cellAt(facility, d, tiles)))
	}
	return b.String()
}

// cellAt resolves one chart cell. tiles memoizes lookups for the row.
func (m Model) cellAt(facility string, d calendar.Date, tiles map[int]*raster.RenderedTile) cell {
	if !m.hasData(d.Year) {
		return cell{kind: cellPending}
	}
	key := raster.TileKey{Facility: facility, Year: d.Year}
	t, seen := tiles[d.Year]
	if !seen {
		t, _ = m.Manager.GetTile(key)
		tiles[d.Year] = t
	}
	if t == nil {
		if m.Manager.Status(key) == tile.StatusError {
			return cell{kind: cellError}
		}
		return cell{kind: cellPending}
	}
	c, ok := sampleDay(t, d)
	if !ok {
		return cell{kind: cellPending}
	}
	return cell{kind: cellColor, color: c}
}

func (m Model) renderCell(c cell) string {
	switch c.kind {
	case cellColor:
		return lipgloss.NewStyle().Background(lipgloss.Color(c.color.Hex())).Render(" ")
	case cellError:
		return styleError.Render(string(glyphError))
	default:
		return stylePending.Render(string(glyphPending))
	}
}

func (m Model) statusBar() string {
	s := m.Manager.Stats()
	ready := s.ByStatus[tile.StatusReady]
	label := styleStatusLabel.Render("stripes")
	if s.Pending > 0 || s.Draining {
		label = m.Spinner.View() + " " + label
	}
	parts := []string{
		label,
		styleStatusValue.Render(m.Nav.Date().String()),
		styleStatusValue.Render(m.Nav.Phase().String()),
		styleReadyCount.Render(fmt.Sprintf("%d ready", ready)),
		styleStatusValue.Render(fmt.Sprintf("%d queued", s.Pending)),
		styleStatusValue.Render(humanize.IBytes(uint64(s.Tiles.TotalBytes))),
	}
	if s.Queue.Circuit != queue.StateClosed {
		parts = append(parts, styleStatusWarn.Render("circuit "+s.Queue.Circuit.String()))
	}
	if m.Message != "" {
		parts = append(parts, styleStatusWarn.Render(m.Message))
	}
	return styleStatusBar.Width(m.Width).Render(strings.Join(parts, "  "))
}
