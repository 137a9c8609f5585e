package tile

import "fmt"

// Status is the lifecycle state of one tile.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusLoaded
	StatusRendering
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusRendering:
		return "rendering"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// transition is a (from, to) pair.
type transition struct {
	From Status
	To   Status
}

var validTransitions = map[transition]bool{
	// Pipeline
	{StatusEmpty, StatusLoading}:    true,
	{StatusLoading, StatusLoaded}:   true,
	{StatusLoaded, StatusRendering}: true,
	{StatusRendering, StatusReady}:  true,
	{StatusLoading, StatusError}:    true,
	{StatusLoaded, StatusError}:     true,
	{StatusRendering, StatusError}:  true,

	// Invalidation: a resize or eviction discards pixels, never data.
	{StatusReady, StatusEmpty}:     true,
	{StatusRendering, StatusEmpty}: true,

	// Explicit re-request
	{StatusError, StatusEmpty}: true,
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	return validTransitions[transition{From: from, To: to}]
}

// ValidateTransition returns an error for an illegal status change.
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("tile: invalid status transition from %s to %s", from, to)
	}
	return nil
}

// InFlight reports whether a tile in s has pipeline work under way.
func InFlight(s Status) bool {
	return s == StatusLoading || s == StatusLoaded || s == StatusRendering
}
