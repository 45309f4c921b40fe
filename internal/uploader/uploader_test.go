package uploader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"invextract/internal/grist"
	"invextract/internal/store"
)

// gristStub answers the columns and records endpoints and captures
// uploaded field values.
type gristStub struct {
	mu       sync.Mutex
	uploaded []map[string]any
	block    chan struct{} // when set, POST waits until closed
}

func (g *gristStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && filepath.Base(r.URL.Path) == "columns":
			json.NewEncoder(w).Encode(map[string]any{
				"columns": []map[string]string{{"id": "Invoice_Number"}, {"id": "Destination"}},
			})
		case r.Method == http.MethodPost:
			if g.block != nil {
				<-g.block
			}
			var body struct {
				Records []grist.Record `json:"records"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			g.mu.Lock()
			for _, rec := range body.Records {
				g.uploaded = append(g.uploaded, rec.Fields)
			}
			g.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]any{"records": []any{}})
		default:
			json.NewEncoder(w).Encode(map[string]any{"records": []any{}})
		}
	})
}

func newTestUploader(t *testing.T, stub *gristStub, ledger *store.Store) (*Uploader, string) {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	client, err := grist.NewClient(srv.URL, "key", "doc", 5*time.Second)
	require.NoError(t, err)

	outputDir := t.TempDir()
	u := New(client, ledger, outputDir, "Invoices", 100, false, zap.NewNop())
	return u, outputDir
}

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

const aprCSV = "Invoice Number,Destination\nSC11111-01-01,Nagpur\nSC22222-02-02,Pune\n"

func TestCycleUploadsPendingFiles(t *testing.T) {
	stub := &gristStub{}
	u, dir := newTestUploader(t, stub, nil)
	writeCSV(t, dir, "Apr25Invoices.csv", aprCSV)
	writeCSV(t, dir, "notes.csv", "a,b\n1,2\n") // not a monthly file

	res, err := u.Cycle(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 2, res.Records)
	assert.False(t, res.Skipped)

	require.Len(t, stub.uploaded, 2)
	assert.Equal(t, "SC11111-01-01", stub.uploaded[0]["Invoice_Number"])
	assert.Equal(t, "Pune", stub.uploaded[1]["Destination"])
}

func TestCycleSkipsUploadedFiles(t *testing.T) {
	ledger, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer ledger.Close()

	stub := &gristStub{}
	u, dir := newTestUploader(t, stub, ledger)
	writeCSV(t, dir, "Apr25Invoices.csv", aprCSV)

	res, err := u.Cycle(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)

	// Second cycle: ledger says it's already up.
	res, err = u.Cycle(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Files)

	// --all forces a re-push.
	res, err = u.Cycle(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)
}

func TestCycleSkipsWhenBusy(t *testing.T) {
	stub := &gristStub{block: make(chan struct{})}
	u, dir := newTestUploader(t, stub, nil)
	writeCSV(t, dir, "Apr25Invoices.csv", aprCSV)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		u.Cycle(context.Background(), false)
	}()

	// Wait until the first cycle holds the busy flag.
	require.Eventually(t, func() bool { return u.busy.Load() }, 2*time.Second, 10*time.Millisecond)

	res, err := u.Cycle(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	close(stub.block)
	<-firstDone
}

func TestCycleEmptyOutputDir(t *testing.T) {
	stub := &gristStub{}
	u, _ := newTestUploader(t, stub, nil)

	res, err := u.Cycle(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, res.Files)
	assert.Empty(t, stub.uploaded)
}
