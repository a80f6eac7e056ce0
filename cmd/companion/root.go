package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hoc_companion/internal/config"
	"hoc_companion/internal/utils"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "HoC Companion - questions and answers over the marketing database",
	Long: `HoC Companion loads a snapshot of the marketing database into the
prompt of an OpenAI model and answers questions about projects and assets.

Configuration comes from an optional YAML file and environment variables
(DB_*, OPENAI_*, REDIS_*, ...). Environment variables win.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file (overrides COMPANION_CONFIG)")
}

// loadConfig loads the configuration and a console logger at its level
func loadConfig() (*config.Config, *utils.Logger, error) {
	if cfgFile != "" {
		if err := os.Setenv("COMPANION_CONFIG", cfgFile); err != nil {
			return nil, nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, utils.NewLogger("companion", cfg.LogLevelValue()), nil
}
