// Package tui is an interactive terminal viewer for capacity-factor stripes.
// Each facility is one terminal row and each column one day sampled from
// the rendered tile for that year. Dragging, wheel scrolling and the keyboard
// drive a gesture navigator; the tile manager fills cells in as tiles land.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Program is an alias for tea.Program, exposed so callers don't need
// to import bubbletea directly.
type Program = tea.Program

// NewProgram creates a viewer program on the alternate screen with mouse
// motion reporting enabled.
func NewProgram(ctx context.Context, opts Options, extra ...tea.ProgramOption) *Program {
	all := []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	}
	all = append(all, extra...)
	return tea.NewProgram(New(ctx, opts), all...)
}

// Run creates and runs a viewer, blocking until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	if _, err := NewProgram(ctx, opts).Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
