package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/keel/internal/config"
	"github.com/aretw0/keel/internal/logging"
	"github.com/spf13/cobra"
)

// Loaded by the root command before any subcommand runs.
var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "keel",
	Short: "keel translates between visual editors and executable rules and workflows",
	Long: `keel compiles condition trees to boolean expressions and back, and converts
process graphs to declarative state-machine specs and back.

Configuration is read from --config (YAML), then KEEL_* environment variables,
then command-line flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.LogLevel, _ = cmd.Flags().GetString("log-level")
		}
		cfg = loaded
		logger = logging.New(logging.ParseLevel(cfg.LogLevel))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
}
