package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
)

// SelectionHeaders is the column order of selection exports.
var SelectionHeaders = []string{"ms_name", "ms_vote", "resolution", "agenda_title", "subjects"}

// Headers returns the sorted union of keys across rows.
func Headers(rows []alignment.Row) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteCSV writes rows with the given header order. Missing values are
// written as empty fields. A nil headers slice means Headers(rows).
func WriteCSV(w io.Writer, rows []alignment.Row, headers []string) error {
	if headers == nil {
		headers = Headers(rows)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	record := make([]string, len(headers))
	for i, row := range rows {
		for j, h := range headers {
			record[j] = row[h]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes rows as an indented JSON array of records, the layout
// JSONImporter reads back.
func WriteJSON(w io.Writer, rows []alignment.Row) error {
	if rows == nil {
		rows = []alignment.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
