package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"invextract/internal/config"
	"invextract/internal/grist"
	"invextract/internal/pipeline"
	"invextract/internal/runner"
	"invextract/internal/uploader"
	"invextract/internal/watcher"
)

// runCmd is the supervisor mode: extractor plus periodic uploads.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the extractor and periodic Grist uploads under supervision",
	Long: `Runs the full pipeline: the inbox watcher processes incoming PDFs
continuously, and at every upload interval the accumulated monthly CSV
files are pushed to Grist, provided the server is reachable. A crashed
watcher is restarted automatically. Stop with Ctrl+C.`,
	RunE: runSupervised,
}

func runSupervised(cmd *cobra.Command, args []string) error {
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

	r := &runner.Runner{
		Extract:        extractLoop(cfg, proc),
		UploadInterval: cfg.UploadInterval(),
		SupervisePoll:  cfg.SupervisePoll(),
		Log:            logger,
	}

	// Uploads are optional: without Grist credentials the extractor
	// still runs, it just accumulates CSVs.
	if err := cfg.ValidateGrist(); err != nil {
		logger.Warn("grist upload disabled", zap.Error(err))
	} else {
		client, err := newGristClient(cfg)
		if err != nil {
			return err
		}
		up := uploader.New(client, ledger, cfg.Dirs.Output, cfg.Grist.TableID,
			cfg.Grist.BatchSize, cfg.Grist.ClearBeforeLoad, logger)
		r.Ping = func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		r.Upload = func(ctx context.Context) error {
			_, err := up.Cycle(ctx, false)
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return r.Run(ctx)
}

// extractLoop returns the blocking extractor run: drain the inbox, then
// watch it until the context ends.
func extractLoop(cfg *config.Config, proc *pipeline.Processor) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		w, err := watcher.New(cfg.Dirs.Input, cfg.SettleDelay(), func(ctx context.Context, path string) {
			proc.HandleFile(ctx, path)
		}, logger)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()

		if n, err := proc.DrainExisting(ctx); err != nil {
			logger.Warn("failed to drain existing files", zap.Error(err))
		} else if n > 0 {
			logger.Info("processed existing files", zap.Int("count", n))
		}

		<-ctx.Done()
		return nil
	}
}

func newGristClient(cfg *config.Config) (*grist.Client, error) {
	return grist.NewClient(cfg.Grist.ServerURL, cfg.Grist.APIKey, cfg.Grist.DocID, cfg.GristTimeout())
}
