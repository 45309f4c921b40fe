package grist

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"
)

// BuildColumnMapping maps CSV header names to Grist column ids. Match
// order per header: exact id, spaces replaced with underscores, then a
// case-insensitive comparison of the underscore form. Headers with no
// matching column are left out of the mapping.
func BuildColumnMapping(columns []Column, csvHeaders []string) map[string]string {
	ids := make([]string, 0, len(columns))
	for _, col := range columns {
		if col.ID != "" {
			ids = append(ids, col.ID)
		}
	}

	mapping := make(map[string]string)
	for _, header := range csvHeaders {
		if contains(ids, header) {
			mapping[header] = header
			continue
		}
		underscored := strings.ReplaceAll(header, " ", "_")
		if contains(ids, underscored) {
			mapping[header] = underscored
			continue
		}
		for _, id := range ids {
			if strings.EqualFold(underscored, id) {
				mapping[header] = id
				break
			}
		}
	}
	return mapping
}

func contains(ids []string, want string) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}

// ReadCSVRecords reads a CSV file with a header row into Grist records.
// A nil mapping uses the CSV headers directly as field ids; otherwise
// only mapped columns are carried over.
func ReadCSVRecords(path string, mapping map[string]string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := rows[0]
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		fields := make(map[string]any)
		for i, header := range headers {
			if i >= len(row) {
				break
			}
			if mapping == nil {
				fields[header] = row[i]
				continue
			}
			if gristField, ok := mapping[header]; ok {
				fields[gristField] = row[i]
			}
		}
		records = append(records, Record{Fields: fields})
	}
	return records, nil
}

// UniqueValues fetches a table and returns the sorted distinct
// non-empty values of one field. When the field is unknown the error
// names the fields that do exist, since a typo here is the common
// failure.
func (c *Client) UniqueValues(ctx context.Context, tableID, field string) ([]string, error) {
	records, err := c.Records(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	if _, ok := records[0].Fields[field]; !ok {
		available := make([]string, 0, len(records[0].Fields))
		for k := range records[0].Fields {
			available = append(available, k)
		}
		sort.Strings(available)
		return nil, fmt.Errorf("field %q not found; available fields: %s", field, strings.Join(available, ", "))
	}

	seen := make(map[string]struct{})
	for _, r := range records {
		v, ok := r.Fields[field]
		if !ok || v == nil {
			continue
		}
		s := fmt.Sprint(v)
		if s == "" {
			continue
		}
		seen[s] = struct{}{}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}
