package tile

import (
	"context"
	"testing"
	"time"

	"github.com/papapumpkin/stripes/internal/raster"
)

func TestSubscribe(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, newFakeFetcher(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	events := m.Subscribe(ctx)

	m.SetViewport(Info{Width: 365})
	key := raster.TileKey{Facility: "Eraring", Year: 2024}
	m.GetTile(key)
	wait(t, m)

	var got []Status
	for len(got) < 4 {
		select {
		case ev := <-events:
			if ev.Key == key {
				got = append(got, ev.To)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out; saw %v", got)
		}
	}
	want := []Status{StatusLoading, StatusLoaded, StatusRendering, StatusReady}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}

	cancel()
	select {
	case _, ok := <-events:
		for ok {
			_, ok = <-events
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusEmpty, StatusLoading, true},
		{StatusLoading, StatusLoaded, true},
		{StatusLoaded, StatusRendering, true},
		{StatusRendering, StatusReady, true},
		{StatusLoading, StatusError, true},
		{StatusRendering, StatusError, true},
		{StatusError, StatusEmpty, true},
		{StatusReady, StatusEmpty, true},
		{StatusError, StatusLoading, false},
		{StatusEmpty, StatusReady, false},
		{StatusReady, StatusLoading, false},
		{StatusLoaded, StatusReady, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestInvalidateYearRefetches(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	m := newTestManager(t, f, nil)
	visible := raster.TileKey{Facility: "Eraring", Year: 2024}
	other := raster.TileKey{Facility: "Eraring", Year: 2023}
	m.SetViewport(Info{Width: 366, Visible: []raster.TileKey{visible}})
	m.GetTile(visible)
	m.GetTile(other)
	wait(t, m)

	m.InvalidateYear(2024)
	wait(t, m)

	if f.Calls(2024) != 2 {
		t.Errorf("2024 fetches = %d, want 2", f.Calls(2024))
	}
	if f.Calls(2023) != 1 {
		t.Errorf("2023 fetches = %d, want 1", f.Calls(2023))
	}
	if _, ok := m.GetTile(visible); !ok {
		t.Error("visible tile not re-rendered")
	}
	if m.Status(other) != StatusReady {
		t.Errorf("untouched year status = %s, want ready", m.Status(other))
	}
}
