package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
)

// JSONImporter handles .json files.
type JSONImporter struct{}

// CanHandle returns true for JSON file extensions.
func (j *JSONImporter) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".json"
}

// Import parses a JSON file of records (the layout WriteJSON produces).
func (j *JSONImporter) Import(ctx context.Context, path string) ([]alignment.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rows, err := ParseJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return rows, nil
}

// ParseJSON decodes an array of flat objects. Scalar values are stringified;
// nested values are ignored. Empty input yields no rows.
func ParseJSON(r io.Reader) ([]alignment.Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("expected an array of objects: %w", err)
	}

	rows := make([]alignment.Row, 0, len(raw))
	for _, obj := range raw {
		if obj == nil {
			continue
		}
		rows = append(rows, rowFromMap(obj))
	}
	return rows, nil
}

func rowFromMap(obj map[string]interface{}) alignment.Row {
	row := make(alignment.Row, len(obj))
	for k, v := range obj {
		if s, ok := scalarString(v); ok {
			row[strings.TrimSpace(k)] = s
		}
	}
	return row
}

// scalarString stringifies JSON/YAML scalars. It reports false for maps and
// slices.
func scalarString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return fmt.Sprintf("%t", t), true
	case int, int64, uint64:
		return fmt.Sprintf("%d", t), true
	case float64:
		return fmt.Sprintf("%g", t), true
	case map[string]interface{}, []interface{}:
		return "", false
	default:
		return fmt.Sprintf("%v", t), true
	}
}
