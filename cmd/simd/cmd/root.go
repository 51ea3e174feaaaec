package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "simd",
	Short: "Synthetic equity price simulator",
	Long: `Simd drives a synthetic equity price engine for demo trading UIs.

It combines three forces into one continuously moving price per instrument:
  - clamped square-root impact from submitted trades
  - news-session drift with exponential half-life decay
  - cumulative flow pressure and uniform noise, applied once per tick

The engine serves snapshots and accepts commands over a websocket gateway,
and journals every executed trade to SQLite for export.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "configs/config.yaml", "path to the configuration file")
}
