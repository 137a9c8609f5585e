package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "stripes",
	Short: "Coal capacity-factor stripes: fetch, cache, render and scroll",
	Long: `Stripes draws one coloured column per day for every unit of Australia's
coal fleet. Year data is fetched through a rate-limited request queue,
rendered into per-facility tiles and kept in two LRU caches. The view
command scrolls the chart with the mouse, wheel or keyboard.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .stripes.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("source", "", "data source: dir, sql or http")
	rootCmd.PersistentFlags().String("data-dir", "", "directory of <year>.json/.msgpack files")
	rootCmd.PersistentFlags().String("dsn", "", "sqlite path or postgres:// URL for the sql source")
	rootCmd.PersistentFlags().String("telemetry", "", "append JSONL telemetry events to this file")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("data.source", rootCmd.PersistentFlags().Lookup("source"))
	_ = viper.BindPFlag("data.dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("data.dsn", rootCmd.PersistentFlags().Lookup("dsn"))
	_ = viper.BindPFlag("telemetry_path", rootCmd.PersistentFlags().Lookup("telemetry"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".stripes")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("STRIPES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}
