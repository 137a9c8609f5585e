package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/papapumpkin/stripes/internal/cache"
	"github.com/papapumpkin/stripes/internal/calendar"
	"github.com/papapumpkin/stripes/internal/energy"
	"github.com/papapumpkin/stripes/internal/gesture"
	"github.com/papapumpkin/stripes/internal/queue"
	"github.com/papapumpkin/stripes/internal/raster"
	"github.com/papapumpkin/stripes/internal/tile"
)

var (
	epoch  = calendar.New(2020, 1, 1)
	latest = calendar.New(2023, 12, 31)
	t0     = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
)

// yearFetcher serves a flat 50% record for Eraring and counts calls.
type yearFetcher struct {
	mu    sync.Mutex
	calls map[int]int
}

func (f *yearFetcher) FetchYear(_ context.Context, year int) (*energy.YearRecord, error) {
	f.mu.Lock()
	f.calls[year]++
	f.mu.Unlock()
	rec := &energy.YearRecord{Year: year}
	for _, code := range []string{"ER01", "ER02", "ER03", "ER04"} {
		s := energy.NewSeries(calendar.DaysInYear(year))
		for d := range s {
			s[d] = 50
		}
		rec.Units = append(rec.Units, energy.Unit{Code: code, Facility: "Eraring", Values: s})
	}
	return rec, nil
}

func (f *yearFetcher) Calls(year int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[year]
}

func newTestModel(t *testing.T) (Model, *yearFetcher) {
	t.Helper()
	reg, err := energy.LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	f := &yearFetcher{calls: make(map[int]int)}
	mgr, err := tile.New(tile.Deps{
		Fetcher:  f,
		Queue:    queue.New("test", queue.Config{MaxConcurrent: 2, Timeout: 5 * time.Second}),
		Years:    cache.NewYearDataCache(8, 0),
		Tiles:    cache.NewTileCache(32),
		Registry: reg,
	})
	if err != nil {
		t.Fatalf("tile.New: %v", err)
	}
	t.Cleanup(mgr.Close)

	m := New(t.Context(), Options{
		Manager:    mgr,
		Facilities: []string{"Eraring"},
		Epoch:      epoch,
		Latest:     latest,
		Gesture:    gesture.DefaultConfig(),
		Margin:     0,
		Refresh: func(context.Context) (calendar.Date, error) {
			return calendar.New(2024, 1, 10), nil
		},
	})
	m.now = func() time.Time { return t0 }
	return m, f
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return out, cmd
}

func drain(t *testing.T, m Model) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Manager.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

// settle ticks frames from t0 until the navigator is idle.
func settle(t *testing.T, m Model) Model {
	t.Helper()
	at := t0
	for range 1000 {
		at = at.Add(16 * time.Millisecond)
		m, _ = update(t, m, tickMsg(at))
		if m.Nav.Phase() == gesture.PhaseIdle {
			return m
		}
	}
	t.Fatalf("navigator still %s after 16s", m.Nav.Phase())
	return m
}

func sized(t *testing.T) (Model, *yearFetcher) {
	t.Helper()
	m, f := newTestModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: LabelWidth + 73, Height: 12})
	drain(t, m)
	return m, f
}

func TestWindowSizeRequestsVisibleTiles(t *testing.T) {
	t.Parallel()

	m, f := sized(t)
	for _, year := range []int{2023} {
		key := raster.TileKey{Facility: "Eraring", Year: year}
		if got := m.Manager.Status(key); got != tile.StatusReady {
			t.Errorf("%s status = %s, want ready", key, got)
		}
	}
	if m.View.Width != 73 {
		t.Errorf("chart width = %d, want 73", m.View.Width)
	}
	if f.Calls(2023) != 1 {
		t.Errorf("fetches for 2023 = %d, want 1", f.Calls(2023))
	}

	view := m.View()
	if !strings.Contains(view, "Eraring") {
		t.Error("view missing facility label")
	}
	if !strings.Contains(view, "2023-01-01") || !strings.Contains(view, "2023-12-31") {
		t.Errorf("view missing window dates:\n%s", view)
	}
}

func TestSyncSkipsYearsWithoutData(t *testing.T) {
	t.Parallel()

	m, f := sized(t)
	if f.Calls(2024) != 0 {
		t.Errorf("fetched 2024 past the latest data")
	}
	if got := m.inRange([]raster.TileKey{{Facility: "Eraring", Year: 2019}, {Facility: "Eraring", Year: 2021}}); len(got) != 1 {
		t.Errorf("inRange kept %v, want only 2021", got)
	}
}

func TestKeysJump(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  tea.KeyMsg
		want calendar.Date
	}{
		{name: "week back", msg: tea.KeyMsg{Type: tea.KeyLeft}, want: latest.SubtractDays(7)},
		{name: "month back", msg: tea.KeyMsg{Type: tea.KeyPgUp}, want: latest.SubtractDays(30)},
		{name: "year back", msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("[")}, want: latest.SubtractDays(365)},
		{name: "forward clamps", msg: tea.KeyMsg{Type: tea.KeyRight}, want: latest},
		{name: "oldest", msg: tea.KeyMsg{Type: tea.KeyHome}, want: epoch.AddDays(364)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, _ := sized(t)
			m, _ = update(t, m, tt.msg)
			m = settle(t, m)
			if m.View.End != tt.want {
				t.Errorf("window end = %s, want %s", m.View.End, tt.want)
			}
			if m.Nav.Date() != tt.want {
				t.Errorf("navigator date = %s, want %s", m.Nav.Date(), tt.want)
			}
		})
	}
}

func TestQuit(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("quit key returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key did not produce tea.QuitMsg")
	}
}

func TestWheelStartsSession(t *testing.T) {
	t.Parallel()

	m, _ := sized(t)
	m, _ = update(t, m, tea.MouseMsg{X: LabelWidth + 5, Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	if got := m.Nav.Active(); got != gesture.ChannelWheel {
		t.Errorf("active channel = %s, want wheel", got)
	}
	m = settle(t, m)
	if !m.View.End.Before(latest) {
		t.Errorf("wheel up should move back from %s, got %s", latest, m.View.End)
	}
}

func TestDragMovesBack(t *testing.T) {
	t.Parallel()

	m, _ := sized(t)
	m.now = func() time.Time { return t0 }
	m, _ = update(t, m, tea.MouseMsg{X: LabelWidth + 10, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if got := m.Nav.Active(); got != gesture.ChannelPointer {
		t.Fatalf("active channel = %s, want pointer", got)
	}
	m.now = func() time.Time { return t0.Add(50 * time.Millisecond) }
	m, _ = update(t, m, tea.MouseMsg{X: LabelWidth + 40, Button: tea.MouseButtonLeft, Action: tea.MouseActionMotion})
	if got := m.Nav.Position(); got >= m.Nav.Bounds().Max {
		t.Errorf("position %d did not move back from %d", got, m.Nav.Bounds().Max)
	}
	m.now = func() time.Time { return t0.Add(500 * time.Millisecond) }
	m, _ = update(t, m, tea.MouseMsg{X: LabelWidth + 40, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})
	if m.dragging {
		t.Error("still dragging after release")
	}
	if got := m.Nav.Active(); got != gesture.ChannelNone {
		t.Errorf("active channel after release = %s, want none", got)
	}
}

func TestPressOnLabelIgnored(t *testing.T) {
	t.Parallel()

	m, _ := sized(t)
	m, _ = update(t, m, tea.MouseMsg{X: 3, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if m.dragging || m.Nav.Active() != gesture.ChannelNone {
		t.Error("press on the label column started a drag")
	}
}

func TestDataChangeInvalidatesAndRefreshes(t *testing.T) {
	t.Parallel()

	m, f := sized(t)
	m, cmd := update(t, m, changeMsg{Year: 2023, File: "2023.json"})
	if cmd == nil {
		t.Fatal("data change returned no command")
	}
	drain(t, m)
	if f.Calls(2023) != 2 {
		t.Errorf("fetches for 2023 = %d, want 2 after invalidation", f.Calls(2023))
	}

	m, _ = update(t, m, refreshedMsg{latest: calendar.New(2024, 1, 10)})
	want := calendar.PositionOf(epoch, calendar.New(2024, 1, 10))
	if got := m.Nav.Bounds().Max; got != want {
		t.Errorf("bounds max = %d, want %d", got, want)
	}
	if m.lastYear != 2024 {
		t.Errorf("lastYear = %d, want 2024", m.lastYear)
	}
}
