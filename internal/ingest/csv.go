package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
)

// CSVImporter handles .csv and .tsv files.
type CSVImporter struct{}

// CanHandle returns true for CSV/TSV file extensions.
func (c *CSVImporter) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".csv" || ext == ".tsv"
}

// Import parses a CSV file into rows.
// First row is treated as headers (become row keys).
func (c *CSVImporter) Import(ctx context.Context, path string) ([]alignment.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	comma := ','
	// Auto-detect TSV
	if strings.ToLower(filepath.Ext(path)) == ".tsv" {
		comma = '\t'
	}

	rows, err := ParseCSV(f, comma)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV %s: %w", path, err)
	}
	return rows, nil
}

// ParseCSV decodes delimited text with a header row. Short records leave
// the missing columns unset; extra fields beyond the header are dropped.
func ParseCSV(r io.Reader, comma rune) ([]alignment.Row, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		// Need at least headers + one row
		return nil, nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]alignment.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlankRecord(rec) {
			continue
		}
		row := make(alignment.Row, len(headers))
		for j, val := range rec {
			if j >= len(headers) || headers[j] == "" {
				continue
			}
			row[headers[j]] = val
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
