// Package grist is a minimal client for the Grist document REST API:
// enough surface to inspect a document's tables and columns, push
// invoice records in batches, and clear a table.
package grist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBatchSize is how many records go into one AddRecords request.
const DefaultBatchSize = 100

// Client talks to one Grist document.
type Client struct {
	baseURL string
	apiKey  string
	docID   string
	client  *http.Client
}

// Record is one Grist record. ID is set on reads; Fields maps column
// ids to cell values.
type Record struct {
	ID     int64          `json:"id,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Table describes one table in the document.
type Table struct {
	ID string `json:"id"`
}

// Column describes one column of a table.
type Column struct {
	ID string `json:"id"`
}

type tablesResponse struct {
	Tables []Table `json:"tables"`
}

type columnsResponse struct {
	Columns []Column `json:"columns"`
}

type recordsResponse struct {
	Records []Record `json:"records"`
}

// NewClient creates a client for a document. baseURL may omit the
// scheme; https is assumed then, matching the original CLI behavior.
func NewClient(baseURL, apiKey, docID string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("server url is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		docID:   docID,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Ping reports whether the Grist server answers with 200 on its base
// URL. The wrapper uses this to gate upload cycles.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("grist server check failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("grist server returned status %d", resp.StatusCode)
	}
	return nil
}

// Tables lists the tables of the document.
func (c *Client) Tables(ctx context.Context) ([]Table, error) {
	var out tablesResponse
	if err := c.do(ctx, http.MethodGet, c.docURL("tables"), nil, &out); err != nil {
		return nil, err
	}
	return out.Tables, nil
}

// Columns lists the columns of a table.
func (c *Client) Columns(ctx context.Context, tableID string) ([]Column, error) {
	var out columnsResponse
	if err := c.do(ctx, http.MethodGet, c.docURL("tables/"+tableID+"/columns"), nil, &out); err != nil {
		return nil, err
	}
	return out.Columns, nil
}

// Records fetches all records of a table.
func (c *Client) Records(ctx context.Context, tableID string) ([]Record, error) {
	var out recordsResponse
	if err := c.do(ctx, http.MethodGet, c.docURL("tables/"+tableID+"/records"), nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// AddRecords appends records to a table in batches of batchSize
// (DefaultBatchSize when <= 0), preserving order. Returns the number of
// records pushed.
func (c *Client) AddRecords(ctx context.Context, tableID string, records []Record, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	sent := 0
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		body := map[string]any{"records": records[start:end]}
		if err := c.do(ctx, http.MethodPost, c.docURL("tables/"+tableID+"/records"), body, nil); err != nil {
			return sent, fmt.Errorf("batch %d failed: %w", start/batchSize+1, err)
		}
		sent += end - start
	}
	return sent, nil
}

// ClearTable deletes every record in a table. Returns the number of
// records removed; a table that is already empty is not an error.
func (c *Client) ClearTable(ctx context.Context, tableID string) (int, error) {
	records, err := c.Records(ctx, tableID)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	del := make([]map[string]any, 0, len(records))
	for _, r := range records {
		del = append(del, map[string]any{"id": r.ID, "manualSort": 0})
	}
	body := map[string]any{"records": del}
	if err := c.do(ctx, http.MethodDelete, c.docURL("tables/"+tableID+"/records"), body, nil); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (c *Client) docURL(suffix string) string {
	return fmt.Sprintf("%s/api/docs/%s/%s", c.baseURL, c.docID, suffix)
}

// do runs one JSON request against the API. A non-nil body is encoded
// as JSON; a non-nil out receives the decoded response.
func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("grist request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("grist returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
