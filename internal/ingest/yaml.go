package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
)

// YAMLImporter handles .yaml and .yml files.
type YAMLImporter struct{}

// CanHandle returns true for YAML file extensions.
func (y *YAMLImporter) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Import parses a YAML file into rows.
func (y *YAMLImporter) Import(ctx context.Context, path string) ([]alignment.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ParseYAML(f)
	if err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return rows, nil
}

// ParseYAML decodes a sequence of mappings, or a multi-document stream
// (separated by ---) where each document is a mapping or a sequence of them.
func ParseYAML(r io.Reader) ([]alignment.Row, error) {
	decoder := yaml.NewDecoder(r)
	var rows []alignment.Row
	docNum := 0

	for {
		var doc interface{}
		err := decoder.Decode(&doc)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("document %d: %w", docNum+1, err)
		}
		docNum++

		switch v := doc.(type) {
		case nil:
			continue
		case map[string]interface{}:
			rows = append(rows, rowFromMap(v))
		case []interface{}:
			for i, elem := range v {
				m, ok := elem.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("document %d: item %d is not a mapping", docNum, i+1)
				}
				rows = append(rows, rowFromMap(m))
			}
		default:
			return nil, fmt.Errorf("document %d: expected a mapping or a sequence of mappings", docNum)
		}
	}

	return rows, nil
}
