package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"invextract/internal/config"
	"invextract/internal/csvout"
	"invextract/internal/pipeline"
	"invextract/internal/store"
)

// watchCmd runs the extractor alone, no uploads.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the inbox and extract incoming invoice PDFs",
	RunE: func(cmd *cobra.Command, args []string) error {
		warnIfNoConfigFile()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		proc, ledger, err := buildProcessor(cfg)
		if err != nil {
			return err
		}
		defer ledger.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return extractLoop(cfg, proc)(ctx)
	},
}

// extractCmd processes PDFs once and exits.
var extractCmd = &cobra.Command{
	Use:   "extract [pdf...]",
	Short: "Extract invoice headers once, from the inbox or named files",
	Long: `Without arguments, processes every PDF currently in the input
directory. With arguments, processes the named PDF files. Either way
each file is archived on success or moved to the error directory on
failure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		warnIfNoConfigFile()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		proc, ledger, err := buildProcessor(cfg)
		if err != nil {
			return err
		}
		defer ledger.Close()

		ctx := cmd.Context()
		if len(args) == 0 {
			n, err := proc.DrainExisting(ctx)
			if err != nil {
				return err
			}
			logger.Info("extraction complete", zap.Int("files", n))
			return nil
		}

		failures := 0
		for _, path := range args {
			if err := proc.HandleFile(ctx, path); err != nil {
				failures++
			}
		}
		logger.Info("extraction complete",
			zap.Int("files", len(args)), zap.Int("failures", failures))
		return nil
	},
}

func buildProcessor(cfg *config.Config) (*pipeline.Processor, *store.Store, error) {
	ledger, err := store.Open(cfg.Dirs.Data)
	if err != nil {
		return nil, nil, err
	}
	proc := pipeline.New(cfg.Dirs.Input, cfg.Dirs.Archive, cfg.Dirs.Error,
		csvout.NewWriter(cfg.Dirs.Output), ledger, logger)
	return proc, ledger, nil
}
