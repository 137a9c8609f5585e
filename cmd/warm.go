package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/papapumpkin/stripes/internal/raster"
	"github.com/papapumpkin/stripes/internal/tile"
	"github.com/papapumpkin/stripes/internal/ui"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Prefetch years and render every facility tile, then print cache stats",
	Long: `Warm fetches each year in the range through the request queue, renders a
tile for every registry facility and reports cache, queue and tile
counters. Without --from/--to the source's data span is used.`,
	Args: cobra.NoArgs,
	RunE: runWarm,
}

func init() {
	warmCmd.Flags().Int("from", 0, "first year (default: first year of data)")
	warmCmd.Flags().Int("to", 0, "last year (default: latest year of data)")
	warmCmd.Flags().Bool("events", false, "print every tile status change")
	rootCmd.AddCommand(warmCmd)
}

func runWarm(cmd *cobra.Command, _ []string) error {
	printer := ui.New()
	printer.Banner()
	ctx, cancel := setupSignalContext(cmd.Context(), printer)
	defer cancel()

	st, err := loadStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")
	if from == 0 || to == 0 {
		first, last, err := st.span(ctx)
		if err != nil {
			return err
		}
		if from == 0 {
			from = max(first.Year, st.cfg.EpochDate().Year)
		}
		if to == 0 {
			to = last.Year
		}
	}
	if from > to {
		return fmt.Errorf("--from %d is after --to %d", from, to)
	}

	if showEvents, _ := cmd.Flags().GetBool("events"); showEvents {
		events := st.manager.Subscribe(ctx)
		go func() {
			for ev := range events {
				printer.TileEvent(ev)
			}
		}()
	}

	start := time.Now()
	_, qcfg := st.cfg.QueueFor()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(qcfg.MaxConcurrent)
	for year := from; year <= to; year++ {
		g.Go(func() error {
			if _, err := st.manager.Year(gctx, year); err != nil {
				printer.Error(fmt.Sprintf("%d: %v", year, err))
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var keys []raster.TileKey
	for _, name := range st.registry.Names() {
		for year := from; year <= to; year++ {
			keys = append(keys, raster.TileKey{Facility: name, Year: year})
		}
	}
	st.manager.SetViewport(tile.Info{Width: st.cfg.Viewport.Width, Height: st.cfg.Viewport.Height})
	st.manager.Preload(keys, tile.PriorityAdjacent)
	if err := st.manager.Wait(ctx); err != nil {
		return err
	}

	for _, key := range keys {
		if st.manager.Status(key) == tile.StatusError {
			printer.TileFailed(key, st.manager.Err(key))
		}
	}
	s := st.manager.Stats()
	printer.CacheStats("years", s.Years, 5)
	printer.CacheStats("tiles", s.Tiles.Stats, 5)
	name, _ := st.cfg.QueueFor()
	printer.QueueStats(name, s.Queue)
	printer.ManagerStats(s)
	printer.Info(fmt.Sprintf("warmed %d tiles in %s", len(keys), time.Since(start).Round(time.Millisecond)))
	return nil
}
