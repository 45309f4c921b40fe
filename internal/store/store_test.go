package store

import (
	"errors"
	"testing"
)

func TestStore_RecordAndStats(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.RecordProcessed("a.pdf", "SC11111-01-01", "5-Apr-25", "Apr25Invoices.csv"); err != nil {
		t.Fatalf("RecordProcessed failed: %v", err)
	}
	if err := s.RecordProcessed("b.pdf", "SC22222-02-02", "6-Apr-25", "Apr25Invoices.csv"); err != nil {
		t.Fatalf("RecordProcessed failed: %v", err)
	}
	if err := s.RecordFailed("c.pdf", errors.New("no invoice content found")); err != nil {
		t.Fatalf("RecordFailed failed: %v", err)
	}
	if err := s.RecordUpload("Apr25Invoices.csv", 2); err != nil {
		t.Fatalf("RecordUpload failed: %v", err)
	}

	st, err := s.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if st.Processed != 2 {
		t.Errorf("expected Processed=2, got %d", st.Processed)
	}
	if st.Failed != 1 {
		t.Errorf("expected Failed=1, got %d", st.Failed)
	}
	if st.UploadedFiles != 1 || st.UploadedRecords != 2 {
		t.Errorf("expected 1 upload / 2 records, got %d / %d", st.UploadedFiles, st.UploadedRecords)
	}
}

func TestStore_Uploaded(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	up, err := s.Uploaded("Apr25Invoices.csv")
	if err != nil {
		t.Fatalf("Uploaded failed: %v", err)
	}
	if up {
		t.Error("expected fresh file to be un-uploaded")
	}

	if err := s.RecordUpload("Apr25Invoices.csv", 10); err != nil {
		t.Fatalf("RecordUpload failed: %v", err)
	}
	up, err = s.Uploaded("Apr25Invoices.csv")
	if err != nil {
		t.Fatalf("Uploaded failed: %v", err)
	}
	if !up {
		t.Error("expected file to be marked uploaded")
	}
}

func TestStore_Recent(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	for _, f := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if err := s.RecordProcessed(f, "SC11111-01-01", "5-Apr-25", "Apr25Invoices.csv"); err != nil {
			t.Fatalf("RecordProcessed failed: %v", err)
		}
	}

	docs, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].File != "c.pdf" {
		t.Errorf("expected newest first, got %s", docs[0].File)
	}
}
