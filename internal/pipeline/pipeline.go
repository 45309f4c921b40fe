// Package pipeline ties extraction together: read a PDF, parse its
// header, append the CSV row, record the ledger entry, and move the
// source file out of the inbox.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"invextract/internal/csvout"
	"invextract/internal/extract"
	"invextract/internal/invoice"
	"invextract/internal/pdfext"
	"invextract/internal/store"
)

// Processor handles individual invoice PDFs.
type Processor struct {
	inputDir   string
	archiveDir string
	errorDir   string
	writer     *csvout.Writer
	ledger     *store.Store // optional
	log        *zap.Logger

	// extractLines is swappable in tests; defaults to reading the PDF.
	extractLines func(path string) ([]string, error)
}

// New creates a Processor. ledger may be nil.
func New(inputDir, archiveDir, errorDir string, writer *csvout.Writer, ledger *store.Store, log *zap.Logger) *Processor {
	return &Processor{
		inputDir:     inputDir,
		archiveDir:   archiveDir,
		errorDir:     errorDir,
		writer:       writer,
		ledger:       ledger,
		log:          log,
		extractLines: pdfext.InvoicePageLines,
	}
}

// HandleFile processes one PDF. The file always leaves the inbox:
// archive on success, error directory on failure. The returned error
// reflects the processing outcome; move failures are logged but do not
// mask it.
func (p *Processor) HandleFile(ctx context.Context, path string) error {
	h, csvPath, err := p.process(path)
	if err != nil {
		p.log.Error("failed to process invoice",
			zap.String("file", filepath.Base(path)), zap.Error(err))
		p.recordFailed(path, err)
		if moveErr := moveWithTimestamp(path, p.errorDir); moveErr != nil {
			p.log.Error("failed to quarantine file", zap.String("file", path), zap.Error(moveErr))
		}
		return err
	}

	p.log.Info("extracted invoice header",
		zap.String("invoice", h.InvoiceNumber),
		zap.String("date", h.InvoiceDate),
		zap.String("output", csvPath))
	p.recordProcessed(path, h, csvPath)

	if moveErr := moveWithTimestamp(path, p.archiveDir); moveErr != nil {
		p.log.Error("failed to archive file", zap.String("file", path), zap.Error(moveErr))
		return moveErr
	}
	return nil
}

func (p *Processor) process(path string) (*invoice.Header, string, error) {
	lines, err := p.extractLines(path)
	if err != nil {
		return nil, "", err
	}

	h := extract.Header(lines)
	if _, err := h.Date(); err != nil {
		return nil, "", err
	}

	csvPath, err := p.writer.Append(h)
	if err != nil {
		return nil, "", err
	}
	return h, csvPath, nil
}

// DrainExisting processes PDFs already sitting in the inbox, creating
// the directory when missing. Returns how many files were handled.
func (p *Processor) DrainExisting(ctx context.Context) (int, error) {
	if err := os.MkdirAll(p.inputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create input directory: %w", err)
	}

	entries, err := os.ReadDir(p.inputDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read input directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		p.HandleFile(ctx, filepath.Join(p.inputDir, entry.Name()))
		count++
	}
	return count, nil
}

func (p *Processor) recordProcessed(path string, h *invoice.Header, csvPath string) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.RecordProcessed(filepath.Base(path), h.InvoiceNumber, h.InvoiceDate, filepath.Base(csvPath)); err != nil {
		p.log.Warn("ledger write failed", zap.Error(err))
	}
}

func (p *Processor) recordFailed(path string, procErr error) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.RecordFailed(filepath.Base(path), procErr); err != nil {
		p.log.Warn("ledger write failed", zap.Error(err))
	}
}

// moveWithTimestamp moves a file into dir, inserting a timestamp before
// the extension so repeated drops of the same name never collide.
func moveWithTimestamp(path, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	stamp := time.Now().Format("20060102_150405")
	target := filepath.Join(dir, fmt.Sprintf("%s_%s%s", name, stamp, ext))

	if err := os.Rename(path, target); err == nil {
		return nil
	}
	// Rename fails across filesystems; fall back to copy+remove.
	return copyAndRemove(path, target)
}

func copyAndRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close target: %w", err)
	}
	return os.Remove(src)
}
