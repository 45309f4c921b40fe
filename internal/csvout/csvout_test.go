package csvout

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"invextract/internal/invoice"

	"github.com/stretchr/testify/require"
)

func TestAppendWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	h1 := &invoice.Header{InvoiceNumber: "SC11111-01-01", InvoiceDate: "5-Apr-25"}
	h2 := &invoice.Header{InvoiceNumber: "SC22222-02-02", InvoiceDate: "20-Apr-25"}

	p1, err := w.Append(h1)
	require.NoError(t, err)
	p2, err := w.Append(h2)
	require.NoError(t, err)
	require.Equal(t, p1, p2, "same month must share a file")
	require.Equal(t, filepath.Join(dir, "Apr25Invoices.csv"), p1)

	f, err := os.Open(p1)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, invoice.CSVHeader(), rows[0])
	require.Equal(t, "SC11111-01-01", rows[1][0])
	require.Equal(t, "SC22222-02-02", rows[2][0])
}

func TestAppendSplitsByMonth(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	pApr, err := w.Append(&invoice.Header{InvoiceNumber: "SC11111-01-01", InvoiceDate: "30-Apr-25"})
	require.NoError(t, err)
	pMay, err := w.Append(&invoice.Header{InvoiceNumber: "SC22222-02-02", InvoiceDate: "1-May-25"})
	require.NoError(t, err)

	require.NotEqual(t, pApr, pMay)
	require.Equal(t, "May25Invoices.csv", filepath.Base(pMay))
}

func TestAppendRejectsBadDate(t *testing.T) {
	w := NewWriter(t.TempDir())
	_, err := w.Append(&invoice.Header{InvoiceNumber: "SC11111-01-01", InvoiceDate: "sometime"})
	require.Error(t, err)
}
