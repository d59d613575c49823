// Package cmd provides the CLI commands for crossmarket.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"crossmarket/internal/config"
	"crossmarket/internal/logging"
)

// Version is set at build time with -ldflags "-X crossmarket/cmd/cli/cmd.Version=..."
var Version = "0.1.0"

var (
	cfgFile  string
	envFile  string
	logLevel string
	verbose  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "crossmarket",
	Short: "Find cross-market resale opportunities",
	Long: `crossmarket compares the same items across EU marketplaces and ranks
buy-here, sell-there routes by net profit, ROI and a weighted opportunity score.

Examples:
  crossmarket scan --input keepa_it.csv --input keepa_de.csv
  crossmarket scan --dsn listings.db --format csv --out results.csv
  crossmarket scan -i export.csv --discount 0.25 --mode fbm --out s3://deals/today.csv
  crossmarket serve --addr :8080 -i export.csv`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, YAML or JSON (default ./crossmarket.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with CROSSMARKET_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(marketsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	if err := config.LoadDotEnv(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading env file: %v\n", err)
		os.Exit(1)
	}

	path := cfgFile
	if path == "" {
		path = "crossmarket.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error applying environment: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
	config.Set(cfg)
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "crossmarket version %s\n", Version)
	},
}
