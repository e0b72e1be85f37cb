package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
)

// Engine dispatches files to the matching importer.
type Engine struct {
	importers []Importer
}

// NewEngine returns an engine with every built-in importer registered.
func NewEngine() *Engine {
	return &Engine{
		importers: []Importer{
			&CSVImporter{},
			&JSONImporter{},
			&YAMLImporter{},
		},
	}
}

// DetectImporter returns the importer for path, or nil.
func (e *Engine) DetectImporter(path string) Importer {
	for _, imp := range e.importers {
		if imp.CanHandle(path) {
			return imp
		}
	}
	return nil
}

// Load decodes a single file.
func (e *Engine) Load(ctx context.Context, path string, opts LoadOptions) (*LoadResult, error) {
	opts.Normalize()

	imp := e.DetectImporter(path)
	if imp == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > opts.MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrFileTooLarge, path, info.Size(), opts.MaxFileSize)
	}

	rows, err := imp.Import(ctx, path)
	if err != nil {
		return nil, err
	}

	return &LoadResult{
		Files: []FileResult{{Path: path, Format: formatOf(path), Rows: len(rows)}},
		Rows:  rows,
	}, nil
}

// LoadAll decodes several files into one batch, in argument order. Rows from
// later files take precedence for duplicate (resolution, entity) pairs.
func (e *Engine) LoadAll(ctx context.Context, paths []string, opts LoadOptions) (*LoadResult, error) {
	total := &LoadResult{}
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.ProgressFn != nil {
			opts.ProgressFn(i+1, len(paths), path)
		}
		res, err := e.Load(ctx, path, opts)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		total.Add(res)
	}
	return total, nil
}

// Parse decodes r using the format implied by name's extension. It serves
// uploads, where there is a file name but no file on disk.
func Parse(r io.Reader, name string) ([]alignment.Row, error) {
	switch formatOf(name) {
	case "csv":
		return ParseCSV(r, ',')
	case "tsv":
		return ParseCSV(r, '\t')
	case "json":
		return ParseJSON(r)
	case "yaml":
		return ParseYAML(r)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// Supported reports whether name has an extension Parse understands.
func Supported(name string) bool {
	return formatOf(name) != ""
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv"
	case ".tsv":
		return "tsv"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	return ""
}

// FormatLoadResult returns a human-readable summary.
func FormatLoadResult(r *LoadResult) string {
	var b strings.Builder
	for _, f := range r.Files {
		fmt.Fprintf(&b, "  %s (%s): %d rows\n", f.Path, f.Format, f.Rows)
	}
	fmt.Fprintf(&b, "Loaded %d rows from %d file(s)\n", len(r.Rows), len(r.Files))
	return b.String()
}
