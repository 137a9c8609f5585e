package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/stripes/internal/config"
	"github.com/papapumpkin/stripes/internal/energy"
	"github.com/papapumpkin/stripes/internal/ui"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load year files from a directory into the SQL source",
	Long: `Import reads every <year>.json and <year>.msgpack file in --from-dir and
upserts its daily values into the database named by data.dsn. Existing
rows for the same unit and day are replaced.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("from-dir", "", "directory of year files (required)")
	_ = importCmd.MarkFlagRequired("from-dir")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	printer := ui.New()
	ctx, cancel := setupSignalContext(cmd.Context(), printer)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Data.DSN == "" {
		return fmt.Errorf("import needs data.dsn (--dsn or STRIPES_DATA_DSN)")
	}
	log := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	dirPath, _ := cmd.Flags().GetString("from-dir")
	dir := energy.NewDirSource(dirPath, log)
	years, err := dir.Years()
	if err != nil {
		return err
	}
	if len(years) == 0 {
		return fmt.Errorf("no year files in %s", dirPath)
	}

	db, err := energy.OpenSQLSource(ctx, cfg.Data.DSN, log)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, year := range years {
		start := time.Now()
		rec, err := dir.FetchYear(ctx, year)
		if err != nil {
			return err
		}
		if err := db.Import(ctx, rec); err != nil {
			return err
		}
		printer.Imported(year, len(rec.Units), time.Since(start))
	}
	return nil
}
