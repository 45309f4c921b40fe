package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"invextract/internal/store"
	"invextract/internal/uploader"
)

var (
	uploadAll   bool
	uploadClear bool
)

// uploadCmd runs one upload cycle immediately.
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Push pending monthly CSV files to Grist now",
	RunE: func(cmd *cobra.Command, args []string) error {
		warnIfNoConfigFile()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateGrist(); err != nil {
			return err
		}

		client, err := newGristClient(cfg)
		if err != nil {
			return err
		}

		ledger, err := store.Open(cfg.Dirs.Data)
		if err != nil {
			return err
		}
		defer ledger.Close()

		clear := uploadClear || cfg.Grist.ClearBeforeLoad
		up := uploader.New(client, ledger, cfg.Dirs.Output, cfg.Grist.TableID,
			cfg.Grist.BatchSize, clear, logger)

		res, err := up.Cycle(cmd.Context(), uploadAll)
		if err != nil {
			return err
		}
		logger.Info("upload finished",
			zap.Int("files", res.Files), zap.Int("records", res.Records))
		return nil
	},
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadAll, "all", false, "re-upload files already marked as pushed")
	uploadCmd.Flags().BoolVar(&uploadClear, "clear", false, "clear the table before uploading")
}
