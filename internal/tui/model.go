package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/papapumpkin/stripes/internal/calendar"
	"github.com/papapumpkin/stripes/internal/energy"
	"github.com/papapumpkin/stripes/internal/gesture"
	"github.com/papapumpkin/stripes/internal/raster"
	"github.com/papapumpkin/stripes/internal/telemetry"
	"github.com/papapumpkin/stripes/internal/tile"
	"github.com/papapumpkin/stripes/internal/viewport"
)

// Layout constants.
const (
	// LabelWidth is the facility name column.
	LabelWidth = 16
	// CompactWidth is the terminal width below which the footer drops
	// binding descriptions.
	CompactWidth = 60
	// chromeRows is the header, status bar and footer.
	chromeRows = 3
	// wheelStepDays is how far one wheel notch scrolls.
	wheelStepDays = 7
)

// Options configures a Model.
type Options struct {
	Manager    *tile.Manager
	Facilities []string
	Epoch      calendar.Date
	Latest     calendar.Date
	Gesture    gesture.Config
	Margin     int

	// Changes, when set, delivers year-file updates. Each one invalidates
	// that year and calls Refresh for a new latest date.
	Changes <-chan energy.DataChange
	Refresh func(ctx context.Context) (calendar.Date, error)

	Logger *slog.Logger
	Events *telemetry.Emitter
}

// Message types.
type (
	tickMsg      time.Time
	statusMsg    tile.StatusEvent
	changeMsg    energy.DataChange
	refreshedMsg struct {
		latest calendar.Date
		err    error
	}
)

// Model is the root BubbleTea model for the stripes viewer. Collaborators are
// held by pointer so the value receiver can be copied freely.
type Model struct {
	Manager *tile.Manager
	Nav     *gesture.Navigator
	View    *viewport.Viewport
	Keys    KeyMap
	Spinner spinner.Model
	Margin  int
	Frame   time.Duration
	Width   int
	Height  int
	Message string

	ctx      context.Context
	epoch    calendar.Date
	lastYear int
	events   <-chan tile.StatusEvent
	changes  <-chan energy.DataChange
	refresh  func(ctx context.Context) (calendar.Date, error)
	log      *slog.Logger
	synced   calendar.Date
	syncedW  int
	dragging bool
	now      func() time.Time
}

// New builds a model positioned at opts.Latest. ctx bounds the status
// subscription and any refresh calls.
func New(ctx context.Context, opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	cfg := opts.Gesture
	vp := viewport.New(opts.Latest, cfg.WindowDays, 0, 0)
	for _, name := range opts.Facilities {
		vp.Facilities = append(vp.Facilities, viewport.Facility{Name: name, Height: 1})
	}
	nav := gesture.New(opts.Epoch, opts.Latest, cfg, func(d calendar.Date, _ bool) {
		vp.End = d
	}, gesture.WithLogger(log), gesture.WithEmitter(opts.Events))

	frame := cfg.FrameInterval
	if frame <= 0 {
		frame = 16 * time.Millisecond
	}
	return Model{
		Manager:  opts.Manager,
		Nav:      nav,
		View:     vp,
		Keys:     DefaultKeyMap(),
		Spinner:  spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(styleStatusWarn)),
		Margin:   opts.Margin,
		Frame:    frame,
		ctx:      ctx,
		epoch:    opts.Epoch,
		lastYear: opts.Latest.Year,
		events:   opts.Manager.Subscribe(ctx),
		changes:  opts.Changes,
		refresh:  opts.Refresh,
		log:      log.With("component", "tui"),
		now:      time.Now,
	}
}

// Init starts the frame ticker and the event listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.Spinner.Tick, waitStatus(m.events), waitChange(m.changes))
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.Frame, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitStatus(ch <-chan tile.StatusEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return statusMsg(ev)
	}
}

func waitChange(ch <-chan energy.DataChange) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return changeMsg(c)
	}
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.Nav.SetTileWidth(float64(m.chartWidth()), m.View.WindowDays)
		return m.sync(), nil

	case tickMsg:
		m.Nav.Tick(time.Time(msg))
		return m.sync(), m.tickCmd()

	case statusMsg:
		if msg.To == tile.StatusError && msg.Err != nil {
			m.Message = fmt.Sprintf("%s: %v", msg.Key, msg.Err)
		}
		return m, waitStatus(m.events)

	case changeMsg:
		return m.handleChange(energy.DataChange(msg))

	case refreshedMsg:
		if msg.err != nil {
			m.Message = "refresh: " + msg.err.Error()
			return m, nil
		}
		m.lastYear = msg.latest.Year
		m.Nav.SetDataWindow(msg.latest, m.now())
		m.syncedW = 0
		return m.sync(), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouse(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleChange(c energy.DataChange) (tea.Model, tea.Cmd) {
	m.log.Info("tui: data changed", "year", c.Year, "file", c.File, "removed", c.Removed)
	m.Manager.InvalidateYear(c.Year)
	m.Message = fmt.Sprintf("reloaded %d", c.Year)
	cmds := []tea.Cmd{waitChange(m.changes)}
	if m.refresh != nil {
		refresh, ctx := m.refresh, m.ctx
		cmds = append(cmds, func() tea.Msg {
			latest, err := refresh(ctx)
			return refreshedMsg{latest: latest, err: err}
		})
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleMouse(msg tea.MouseMsg) Model {
	now := m.now()
	x := float64(msg.X - LabelWidth)
	step := wheelStepDays * m.View.PixelsPerDay()

	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelLeft:
		m.Nav.Wheel(-step, 0, now)
		return m
	case tea.MouseButtonWheelDown, tea.MouseButtonWheelRight:
		m.Nav.Wheel(step, 0, now)
		return m
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft && x >= 0 {
			m.Nav.DragStart(x, now)
			m.dragging = true
		}
	case tea.MouseActionMotion:
		if m.dragging {
			m.Nav.DragMove(x, now)
		}
	case tea.MouseActionRelease:
		if m.dragging {
			m.Nav.DragEnd(now)
			m.dragging = false
		}
	}
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	now := m.now()
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Back):
		m.Nav.Jump(-7, now)
	case key.Matches(msg, m.Keys.Forward):
		m.Nav.Jump(7, now)
	case key.Matches(msg, m.Keys.PageBack):
		m.Nav.Jump(-30, now)
	case key.Matches(msg, m.Keys.PageFwd):
		m.Nav.Jump(30, now)
	case key.Matches(msg, m.Keys.YearBack):
		m.Nav.Jump(-365, now)
	case key.Matches(msg, m.Keys.YearFwd):
		m.Nav.Jump(365, now)
	case key.Matches(msg, m.Keys.Oldest):
		m.Nav.Jump(int(m.Nav.Bounds().Min-m.Nav.Position()), now)
	case key.Matches(msg, m.Keys.Latest):
		m.Nav.Jump(int(m.Nav.Bounds().Max-m.Nav.Position()), now)
	case key.Matches(msg, m.Keys.Retry):
		n := 0
		for _, k := range m.View.VisibleTiles() {
			if m.Manager.Status(k) == tile.StatusError {
				m.Manager.Request(k, tile.PriorityVisible)
				n++
			}
		}
		m.Message = fmt.Sprintf("retrying %d tiles", n)
	}
	return m, nil
}

func (m Model) chartWidth() int {
	return max(m.Width-LabelWidth, 1)
}

func (m Model) chartRows() int {
	return max(m.Height-chromeRows, 0)
}

// sync pushes the current window to the tile manager when the end date or
// chart width has moved since the last push.
func (m Model) sync() Model {
	if m.Width == 0 {
		return m
	}
	cols := m.chartWidth()
	if m.View.End == m.synced && cols == m.syncedW {
		return m
	}
	m.View.Width = cols
	m.View.Height = m.chartRows()

	visible := m.inRange(m.View.VisibleTiles())
	m.Manager.SetViewport(tile.Info{Width: cols, Height: m.View.Height, Visible: visible})
	for _, k := range visible {
		m.Manager.GetTile(k)
	}
	for _, w := range m.View.PreloadTiles(m.Margin) {
		if m.hasData(w.Key.Year) {
			m.Manager.Preload([]raster.TileKey{w.Key}, w.Priority)
		}
	}
	m.synced, m.syncedW = m.View.End, cols
	return m
}

func (m Model) hasData(year int) bool {
	return year >= m.epoch.Year && year <= m.lastYear
}

func (m Model) inRange(keys []raster.TileKey) []raster.TileKey {
	out := keys[:0:0]
	for _, k := range keys {
		if m.hasData(k.Year) {
			out = append(out, k)
		}
	}
	return out
}
