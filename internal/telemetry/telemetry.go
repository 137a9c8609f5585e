// Package telemetry records fetch, render and navigation activity as a JSONL
// event stream. Each fetch attempt, circuit transition, tile status change and
// settled navigation is one line, so a session can be replayed or graphed
// after the fact.
package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Event kinds identify the type of telemetry event.
const (
	KindFetchStart   = "fetch_start"
	KindFetchRetry   = "fetch_retry"
	KindFetchDone    = "fetch_done"
	KindCircuitState = "circuit_state"
	KindTileStatus   = "tile_status"
	KindCacheClear   = "cache_clear"
	KindNavigate     = "navigate"
)

// Event is a single telemetry record. RequestID ties together the attempts
// of one queued fetch; Tile and Year locate the work in the chart.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	RequestID string    `json:"req,omitempty"`
	Tile      string    `json:"tile,omitempty"`
	Year      int       `json:"year,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes events as JSON lines. It is safe for concurrent use. A nil
// *Emitter is a valid no-op emitter.
type Emitter struct {
	c   io.Closer
	enc *json.Encoder
	mu  sync.Mutex
	now func() time.Time
}

// NewEmitter appends events to the file at path, creating it if needed.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	em := NewWriterEmitter(f)
	em.c = f
	return em, nil
}

// NewWriterEmitter writes events to w. Close does not close w.
func NewWriterEmitter(w io.Writer) *Emitter {
	return &Emitter{enc: json.NewEncoder(w), now: time.Now}
}

// Emit writes evt, stamping it with the current time when Timestamp is zero.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now()
	}
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Close closes the underlying file if the emitter owns one.
func (e *Emitter) Close() error {
	if e == nil || e.c == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.c.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}
