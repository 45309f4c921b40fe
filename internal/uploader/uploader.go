// Package uploader pushes the monthly invoice CSVs to a Grist table.
package uploader

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"invextract/internal/grist"
	"invextract/internal/store"
)

// Uploader runs upload cycles against one Grist table. A cycle that is
// requested while another is still running is skipped, mirroring the
// original wrapper's "uploader still running" guard.
type Uploader struct {
	client    *grist.Client
	ledger    *store.Store // optional
	outputDir string
	tableID   string
	batchSize int
	clear     bool
	log       *zap.Logger
	busy      atomic.Bool
}

// Result summarizes one cycle.
type Result struct {
	Files   int
	Records int
	Skipped bool
}

// New creates an Uploader. ledger may be nil; then every CSV in the
// output directory is pushed each cycle.
func New(client *grist.Client, ledger *store.Store, outputDir, tableID string, batchSize int, clear bool, log *zap.Logger) *Uploader {
	return &Uploader{
		client:    client,
		ledger:    ledger,
		outputDir: outputDir,
		tableID:   tableID,
		batchSize: batchSize,
		clear:     clear,
		log:       log,
	}
}

// Cycle uploads pending monthly CSVs. all forces re-upload of files the
// ledger already marks as pushed.
func (u *Uploader) Cycle(ctx context.Context, all bool) (Result, error) {
	if !u.busy.CompareAndSwap(false, true) {
		u.log.Info("uploader is still running, skipping this upload cycle")
		return Result{Skipped: true}, nil
	}
	defer u.busy.Store(false)

	files, err := u.pendingFiles(all)
	if err != nil {
		return Result{}, err
	}
	if len(files) == 0 {
		u.log.Debug("no pending csv files to upload")
		return Result{}, nil
	}

	columns, err := u.client.Columns(ctx, u.tableID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch table columns: %w", err)
	}

	if u.clear {
		removed, err := u.client.ClearTable(ctx, u.tableID)
		if err != nil {
			return Result{}, fmt.Errorf("failed to clear table: %w", err)
		}
		u.log.Info("cleared table before upload", zap.Int("records", removed))
	}

	var res Result
	for _, path := range files {
		n, err := u.uploadFile(ctx, path, columns)
		if err != nil {
			return res, fmt.Errorf("failed to upload %s: %w", filepath.Base(path), err)
		}
		res.Files++
		res.Records += n
	}

	u.log.Info("upload cycle complete", zap.Int("files", res.Files), zap.Int("records", res.Records))
	return res, nil
}

func (u *Uploader) uploadFile(ctx context.Context, path string, columns []grist.Column) (int, error) {
	headers, err := csvHeaders(path)
	if err != nil {
		return 0, err
	}

	mapping := grist.BuildColumnMapping(columns, headers)
	if len(mapping) == 0 {
		return 0, fmt.Errorf("no csv column maps to a table column")
	}

	records, err := grist.ReadCSVRecords(path, mapping)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	sent, err := u.client.AddRecords(ctx, u.tableID, records, u.batchSize)
	if err != nil {
		return sent, err
	}
	u.log.Info("uploaded csv", zap.String("file", filepath.Base(path)), zap.Int("records", sent))

	if u.ledger != nil {
		if err := u.ledger.RecordUpload(filepath.Base(path), sent); err != nil {
			u.log.Warn("ledger write failed", zap.Error(err))
		}
	}
	return sent, nil
}

// pendingFiles lists monthly CSVs to push, oldest name first for a
// stable order.
func (u *Uploader) pendingFiles(all bool) ([]string, error) {
	entries, err := os.ReadDir(u.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, "Invoices.csv") {
			continue
		}
		if !all && u.ledger != nil {
			uploaded, err := u.ledger.Uploaded(name)
			if err != nil {
				return nil, err
			}
			if uploaded {
				continue
			}
		}
		files = append(files, filepath.Join(u.outputDir, name))
	}
	sort.Strings(files)
	return files, nil
}

func csvHeaders(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	headers, err := csv.NewReader(f).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	return headers, nil
}
