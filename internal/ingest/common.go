// Package ingest decodes vote batches from files into alignment rows.
//
// Each supported format (CSV, TSV, JSON, YAML) has its own importer that
// implements the Importer interface. The engine picks an importer by file
// extension. Importers only decode: trimming, validation, and vote
// normalization happen in the alignment package.
package ingest

import (
	"context"
	"errors"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
)

// Importer handles a specific file format.
type Importer interface {
	// CanHandle returns true if this importer supports the given file path.
	CanHandle(path string) bool

	// Import decodes the file into rows keyed by column name.
	Import(ctx context.Context, path string) ([]alignment.Row, error)
}

// LoadOptions configures a load.
type LoadOptions struct {
	MaxFileSize int64 // bytes, default 10MB
	ProgressFn  func(current, total int, file string)
}

// Normalize fills zero values with defaults.
func (o *LoadOptions) Normalize() {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
}

// LoadResult summarizes one or more decoded files.
type LoadResult struct {
	Files []FileResult
	Rows  []alignment.Row
}

// FileResult records what one file contributed.
type FileResult struct {
	Path   string
	Format string
	Rows   int
}

// Add appends another result, keeping file order.
func (r *LoadResult) Add(other *LoadResult) {
	r.Files = append(r.Files, other.Files...)
	r.Rows = append(r.Rows, other.Rows...)
}

// DefaultMaxFileSize is 10MB.
const DefaultMaxFileSize = 10 * 1024 * 1024

var (
	// ErrUnsupportedFormat is returned for files no importer handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileTooLarge is returned when a file exceeds LoadOptions.MaxFileSize.
	ErrFileTooLarge = errors.New("file too large")
)
