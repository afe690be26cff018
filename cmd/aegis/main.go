package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "aegis",
	Short: "AEGIS - Aggregated Ensemble Guided Investment System",
	Long: `AEGIS fuses predictions from multiple models into trading signals,
arbitrates conflicts, gates admissions against portfolio risk limits and
executes the surviving orders against a paper or delegated broker.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
