package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/stripes/internal/calendar"
	"github.com/papapumpkin/stripes/internal/config"
	"github.com/papapumpkin/stripes/internal/energy"
	"github.com/papapumpkin/stripes/internal/tui"
	"github.com/papapumpkin/stripes/internal/ui"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Scroll the stripes chart in the terminal",
	Long: `View opens a full-screen chart with one row per facility and one column
per day. Drag or scroll with the mouse, or use the arrow keys, to move
through time. With the dir source, new or updated year files are picked
up while the viewer runs.`,
	Args: cobra.NoArgs,
	RunE: runView,
}

func init() {
	viewCmd.Flags().String("log-file", "", "write logs here while the viewer owns the screen")
	rootCmd.AddCommand(viewCmd)
}

func isStderrTTY() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

func runView(cmd *cobra.Command, _ []string) error {
	if !isStderrTTY() {
		return fmt.Errorf("stripes view requires a TTY (terminal)")
	}
	printer := ui.New()
	ctx, cancel := setupSignalContext(cmd.Context(), printer)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var logOut io.Writer = io.Discard
	if path, _ := cmd.Flags().GetString("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}

	st, err := build(ctx, cfg, logOut)
	if err != nil {
		return err
	}
	defer st.Close()

	_, last, err := st.span(ctx)
	if err != nil {
		return err
	}

	opts := tui.Options{
		Manager:    st.manager,
		Facilities: st.registry.Names(),
		Epoch:      cfg.EpochDate(),
		Latest:     last,
		Gesture:    cfg.Gesture,
		Margin:     cfg.Viewport.PreloadMargin,
		Refresh: func(ctx context.Context) (calendar.Date, error) {
			_, last, err := st.span(ctx)
			return last, err
		},
		Logger: st.log,
		Events: st.events,
	}

	if cfg.Data.Source == config.SourceDir {
		w, err := energy.NewDirWatcher(cfg.Data.Dir, st.log)
		if err != nil {
			return fmt.Errorf("watch %s: %w", cfg.Data.Dir, err)
		}
		if err := w.Start(); err != nil {
			return fmt.Errorf("watch %s: %w", cfg.Data.Dir, err)
		}
		defer w.Stop()
		opts.Changes = w.Changes
	}

	return tui.Run(ctx, opts)
}
