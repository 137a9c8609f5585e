package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/stripes/internal/gesture"
	"github.com/papapumpkin/stripes/internal/ui"
)

var boundsCmd = &cobra.Command{
	Use:   "bounds",
	Short: "Print the data span and the navigation bounds derived from it",
	Args:  cobra.NoArgs,
	RunE:  runBounds,
}

func init() {
	rootCmd.AddCommand(boundsCmd)
}

func runBounds(cmd *cobra.Command, _ []string) error {
	printer := ui.NewWriter(cmd.OutOrStdout(), false)
	st, err := loadStack(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	first, last, err := st.span(cmd.Context())
	if err != nil {
		return err
	}
	epoch := st.cfg.EpochDate()
	nav := gesture.New(epoch, last, st.cfg.Gesture, nil, gesture.WithLogger(st.log))
	printer.Bounds(epoch, first, last, nav.Bounds())
	return nil
}
