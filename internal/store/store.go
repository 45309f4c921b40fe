// Package store keeps a sqlite ledger of every PDF the pipeline has
// handled and every CSV pushed to Grist. The CSV files remain the
// canonical output; the ledger exists for status reporting and so the
// uploader can tell which monthly files are already up.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Document statuses.
const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// Store manages the processing ledger database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Document is one ledger row for a handled PDF.
type Document struct {
	ID          int64
	File        string
	InvoiceNo   string
	InvoiceDate string
	Status      string
	Error       string
	OutputCSV   string
	ProcessedAt time.Time
}

// Stats summarizes ledger contents.
type Stats struct {
	Processed       int
	Failed          int
	UploadedFiles   int
	UploadedRecords int
}

// Open creates or opens the ledger database at dir/invextract.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	dbPath := filepath.Join(dir, "invextract.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file TEXT NOT NULL,
		invoice_no TEXT,
		invoice_date TEXT,
		status TEXT NOT NULL,
		error TEXT,
		output_csv TEXT,
		processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
	CREATE INDEX IF NOT EXISTS idx_documents_invoice ON documents(invoice_no);

	CREATE TABLE IF NOT EXISTS uploads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		csv_file TEXT NOT NULL,
		records INTEGER NOT NULL,
		uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_uploads_file ON uploads(csv_file);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordProcessed records a successfully extracted PDF.
func (s *Store) RecordProcessed(file, invoiceNo, invoiceDate, outputCSV string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO documents (file, invoice_no, invoice_date, status, output_csv) VALUES (?, ?, ?, ?, ?)`,
		file, invoiceNo, invoiceDate, StatusProcessed, outputCSV,
	)
	if err != nil {
		return fmt.Errorf("failed to record document: %w", err)
	}
	return nil
}

// RecordFailed records a PDF that could not be processed.
func (s *Store) RecordFailed(file string, procErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
	}
	_, err := s.db.Exec(
		`INSERT INTO documents (file, status, error) VALUES (?, ?, ?)`,
		file, StatusFailed, msg,
	)
	if err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}
	return nil
}

// RecordUpload records a completed CSV push.
func (s *Store) RecordUpload(csvFile string, records int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO uploads (csv_file, records) VALUES (?, ?)`, csvFile, records)
	if err != nil {
		return fmt.Errorf("failed to record upload: %w", err)
	}
	return nil
}

// Uploaded reports whether a CSV file has been pushed before.
func (s *Store) Uploaded(csvFile string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM uploads WHERE csv_file = ?`, csvFile).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to query uploads: %w", err)
	}
	return n > 0, nil
}

// GetStats returns ledger counters.
func (s *Store) GetStats() (Stats, error) {
	var st Stats
	row := s.db.QueryRow(`SELECT
		COUNT(CASE WHEN status = ? THEN 1 END),
		COUNT(CASE WHEN status = ? THEN 1 END)
		FROM documents`, StatusProcessed, StatusFailed)
	if err := row.Scan(&st.Processed, &st.Failed); err != nil {
		return st, fmt.Errorf("failed to query documents: %w", err)
	}
	row = s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(records), 0) FROM uploads`)
	if err := row.Scan(&st.UploadedFiles, &st.UploadedRecords); err != nil {
		return st, fmt.Errorf("failed to query uploads: %w", err)
	}
	return st, nil
}

// Recent returns the most recent ledger rows, newest first.
func (s *Store) Recent(limit int) ([]Document, error) {
	rows, err := s.db.Query(
		`SELECT id, file, COALESCE(invoice_no, ''), COALESCE(invoice_date, ''),
			status, COALESCE(error, ''), COALESCE(output_csv, ''), processed_at
		FROM documents ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.File, &d.InvoiceNo, &d.InvoiceDate,
			&d.Status, &d.Error, &d.OutputCSV, &d.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
