package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bondcurve/config"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bondingctl",
	Short: "bondingctl - operator tooling for a bonding curve node",
	Long: `bondingctl inspects and operates a bonding curve node: offline curve
quotes, audit trail exports, configuration checks and direct settlement
against a stopped node's state directory.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./config.toml", "configuration file path")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configFile, err)
	}
	return cfg, nil
}
