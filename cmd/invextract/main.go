package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"invextract/internal/config"
	"invextract/internal/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool

	// Logger, built once per invocation
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "invextract",
	Short: "invextract - GST invoice PDF extraction and Grist loading",
	Long: `invextract watches an inbox directory for tax-invoice PDFs, extracts
the header fields from each invoice, appends them to per-month CSV
files, and periodically uploads the accumulated rows to a Grist
document.

Processed PDFs are archived; PDFs that cannot be parsed are moved to
the error directory for manual review. Run without arguments to see
the available commands.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadConfig loads the configuration file named by --config. A missing
// file is not fatal: the tool proceeds on defaults plus environment
// overrides, with a warning once the logger exists.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// warnIfNoConfigFile logs the defaults fallback. Separate from
// loadConfig because the logger is not up yet when config is first
// read.
func warnIfNoConfigFile() {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		logger.Warn("config file not found, using defaults and environment",
			zap.String("path", cfgFile))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultFileName, "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(gristCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
