package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/stripes/internal/raster"
	"github.com/papapumpkin/stripes/internal/tile"
	"github.com/papapumpkin/stripes/internal/ui"
)

var tileCmd = &cobra.Command{
	Use:   "tile",
	Short: "Fetch, render and save one facility-year tile as PNG",
	Args:  cobra.NoArgs,
	RunE:  runTile,
}

func init() {
	tileCmd.Flags().String("facility", "", "facility name from the registry (required)")
	tileCmd.Flags().Int("year", 0, "calendar year (required)")
	tileCmd.Flags().String("out", "", "output path (default <facility>-<year>.png)")
	tileCmd.Flags().Int("width", 0, "tile width in pixels (default viewport.width)")
	_ = tileCmd.MarkFlagRequired("facility")
	_ = tileCmd.MarkFlagRequired("year")
	rootCmd.AddCommand(tileCmd)
}

func runTile(cmd *cobra.Command, _ []string) error {
	printer := ui.New()
	ctx, cancel := setupSignalContext(cmd.Context(), printer)
	defer cancel()

	st, err := loadStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	facility, _ := cmd.Flags().GetString("facility")
	year, _ := cmd.Flags().GetInt("year")
	if _, ok := st.registry.Lookup(facility); !ok {
		return fmt.Errorf("unknown facility %q", facility)
	}
	width, _ := cmd.Flags().GetInt("width")
	if width <= 0 {
		width = st.cfg.Viewport.Width
	}
	key := raster.TileKey{Facility: facility, Year: year}

	t, err := renderOne(ctx, st.manager, key, width)
	if err != nil {
		printer.TileFailed(key, err)
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = key.String() + ".png"
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := raster.WritePNG(f, t); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}
	printer.TileWritten(t, out)
	return nil
}

// renderOne drives a single key through the manager and waits for it.
func renderOne(ctx context.Context, m *tile.Manager, key raster.TileKey, width int) (*raster.RenderedTile, error) {
	m.SetViewport(tile.Info{Width: width, Visible: []raster.TileKey{key}})
	if t, ok := m.GetTile(key); ok {
		return t, nil
	}
	if err := m.Wait(ctx); err != nil {
		return nil, err
	}
	if t, ok := m.GetTile(key); ok {
		return t, nil
	}
	if err := m.Err(key); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%s: ended in status %s", key, m.Status(key))
}
