package alignment

import (
	"errors"
	"strings"
)

var (
	// ErrNoUsableData means no row survived normalization.
	ErrNoUsableData = errors.New("no usable vote data: every row is missing a resolution or entity")
	// ErrNothingToCompare means the batch holds exactly one entity.
	ErrNothingToCompare = errors.New("only one entity in batch: nothing to compare")
)

// Filter restricts a batch to selected entities and resolutions. An empty
// list selects everything on that axis.
type Filter struct {
	Entities    []string `json:"entities,omitempty"`
	Resolutions []string `json:"resolutions,omitempty"`
}

// IsZero reports whether the filter selects every row.
func (f Filter) IsZero() bool {
	return len(f.Entities) == 0 && len(f.Resolutions) == 0
}

// FilterRows returns the rows whose trimmed entity and resolution are both
// selected. Rows are returned unmodified and in input order.
func FilterRows(rows []Row, fields Fields, filter Filter) []Row {
	if filter.IsZero() {
		return rows
	}
	entities := toSet(filter.Entities)
	resolutions := toSet(filter.Resolutions)

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if entities != nil {
			if _, ok := entities[strings.TrimSpace(row[fields.Entity])]; !ok {
				continue
			}
		}
		if resolutions != nil {
			if _, ok := resolutions[strings.TrimSpace(row[fields.Resolution])]; !ok {
				continue
			}
		}
		out = append(out, row)
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// Analysis is the complete output for one batch.
type Analysis struct {
	RowsRead    int          `json:"rows_read"`
	RowsKept    int          `json:"rows_kept"`
	Resolutions int          `json:"resolutions"`
	Records     []VoteRecord `json:"-"`
	Pivot       Pivot        `json:"-"`
	Result      *Result      `json:"result"`
	Heatmap     *Heatmap     `json:"heatmap"`
}

// Analyze runs the whole pipeline over one batch.
func Analyze(rows []Row, fields Fields, opts ...AssembleOption) *Analysis {
	records := NormalizeAll(rows, fields)
	pivot, entities := BuildPivotFromRecords(records)
	res := Compute(pivot, entities)
	return &Analysis{
		RowsRead:    len(rows),
		RowsKept:    len(records),
		Resolutions: len(pivot),
		Records:     records,
		Pivot:       pivot,
		Result:      res,
		Heatmap:     Assemble(res, opts...),
	}
}

// Check returns ErrNoUsableData or ErrNothingToCompare when the batch cannot
// produce a meaningful comparison. Callers decide how to surface them; a
// single-entity Analysis is still well formed.
func (a *Analysis) Check() error {
	switch a.Result.Len() {
	case 0:
		return ErrNoUsableData
	case 1:
		return ErrNothingToCompare
	}
	return nil
}
