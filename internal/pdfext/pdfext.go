// Package pdfext pulls text lines out of invoice PDFs.
package pdfext

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Marker identifying a page that carries the invoice header. Multi-page
// documents prepend transport or annexure pages; the first page
// containing this marker is the one parsed.
const invoiceMarker = "TAX INVOICE"

// ErrNoInvoiceContent is returned when no page of the document looks
// like a tax invoice.
var ErrNoInvoiceContent = fmt.Errorf("no invoice content found")

// InvoicePageLines opens a PDF and returns the text lines of the first
// page whose text contains the tax-invoice marker.
func InvoicePageLines(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		lines, err := pageLines(page)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", pageNum, err)
		}
		for _, l := range lines {
			if strings.Contains(l, invoiceMarker) {
				return lines, nil
			}
		}
	}

	return nil, ErrNoInvoiceContent
}

// pageLines renders one page as trimmed, non-empty text lines in
// top-to-bottom row order.
func pageLines(page pdf.Page) ([]string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, row := range rows {
		if line := strings.TrimSpace(joinRow(row.Content)); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// joinRow concatenates the text runs of one row, inserting a space
// where the horizontal gap between runs marks a word break. Tally PDFs
// usually emit whole-line runs, but some writers split a row into
// fragments with no whitespace of their own.
func joinRow(words []pdf.Text) string {
	var sb strings.Builder
	for i, word := range words {
		if i > 0 && wordBreak(words[i-1], word) {
			sb.WriteByte(' ')
		}
		sb.WriteString(word.S)
	}
	return sb.String()
}

func wordBreak(prev, cur pdf.Text) bool {
	if strings.HasSuffix(prev.S, " ") || strings.HasPrefix(cur.S, " ") {
		return false
	}
	gap := cur.X - (prev.X + prev.W)
	threshold := prev.FontSize * 0.25
	if threshold <= 0 {
		threshold = 1
	}
	return gap > threshold
}
