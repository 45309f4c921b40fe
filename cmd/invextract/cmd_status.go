package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"invextract/internal/store"
)

var statusRecent int

// statusCmd reports ledger counters and recent activity.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show processing and upload statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ledger, err := store.Open(cfg.Dirs.Data)
		if err != nil {
			return err
		}
		defer ledger.Close()

		stats, err := ledger.GetStats()
		if err != nil {
			return err
		}

		fmt.Printf("Processed invoices: %d\n", stats.Processed)
		fmt.Printf("Failed files:       %d\n", stats.Failed)
		fmt.Printf("Uploaded files:     %d (%d records)\n", stats.UploadedFiles, stats.UploadedRecords)

		if statusRecent > 0 {
			docs, err := ledger.Recent(statusRecent)
			if err != nil {
				return err
			}
			if len(docs) > 0 {
				fmt.Println("\nRecent files:")
			}
			for _, d := range docs {
				line := fmt.Sprintf("  %-10s %s", d.Status, d.File)
				if d.InvoiceNo != "" {
					line += "  " + d.InvoiceNo
				}
				if d.Error != "" {
					line += "  (" + d.Error + ")"
				}
				fmt.Println(line)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVarP(&statusRecent, "recent", "n", 10, "how many recent files to list (0 disables)")
}
