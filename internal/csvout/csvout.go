// Package csvout appends invoice headers to per-month CSV files.
package csvout

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"invextract/internal/invoice"
)

// Writer appends invoice rows to monthly CSV files under a single
// output directory. The header row is written only when a monthly file
// is created.
type Writer struct {
	dir string
}

// NewWriter returns a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Append writes one invoice header to the monthly file derived from its
// invoice date and returns the file's path.
func (w *Writer) Append(h *invoice.Header) (string, error) {
	date, err := h.Date()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.dir, invoice.MonthlyFileName(date))

	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if writeHeader {
		if err := cw.Write(invoice.CSVHeader()); err != nil {
			return "", fmt.Errorf("failed to write header row: %w", err)
		}
	}
	if err := cw.Write(h.Record()); err != nil {
		return "", fmt.Errorf("failed to write record: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}

	return path, nil
}
