package alignment

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NullPercent is a percentage that may be deliberately absent. Masked cells
// encode as JSON null so renderers leave them blank.
type NullPercent struct {
	Value float64
	Valid bool
}

// MarshalJSON implements json.Marshaler.
func (p NullPercent) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *NullPercent) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = NullPercent{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = NullPercent{Value: v, Valid: true}
	return nil
}

// Heatmap is the consumer-facing form of a Result.
//
// Matrices are indexed [row][col] = [Y][X]: rows are the compared entity and
// columns the entity whose votes form the denominator. This is the transpose
// of Result's [x][y] layout. Labels serve both axes.
type Heatmap struct {
	Labels []string        `json:"labels"`
	Z      [][]NullPercent `json:"z"`
	Text   [][]string      `json:"text"`
	Cells  [][]Cell        `json:"cells"`
}

// Annotator renders the hover text for one off-diagonal cell.
type Annotator func(Cell) string

type assembleOptions struct {
	annotate Annotator
}

// AssembleOption configures Assemble.
type AssembleOption func(*assembleOptions)

// WithAnnotator replaces DefaultAnnotation.
func WithAnnotator(a Annotator) AssembleOption {
	return func(o *assembleOptions) {
		if a != nil {
			o.annotate = a
		}
	}
}

// DefaultAnnotation renders a cell in the Plotly hover format.
func DefaultAnnotation(c Cell) string {
	return fmt.Sprintf(
		"<b>Entity X:</b> %s<br>"+
			"<b>Entity Y:</b> %s<br>"+
			"<b>%% Matched:</b> %.1f<br>"+
			"<b>Matched Votes:</b> %d<br>"+
			"<b>%s Total Votes:</b> %d<br>"+
			"<b>%s Voted Same Resolutions:</b> %d",
		c.X, c.Y, c.Percent, c.Matched, c.X, c.XTotal, c.Y, c.YCoverage,
	)
}

// Transpose returns a new matrix with rows and columns swapped. The input
// must be square.
func Transpose(m [][]float64) [][]float64 {
	n := len(m)
	out := make([][]float64, n)
	for row := range out {
		out[row] = make([]float64, n)
		for col := range out[row] {
			out[row][col] = m[col][row]
		}
	}
	return out
}

// Assemble transposes res into [Y][X] orientation and masks the diagonal:
// diagonal Z cells are invalid and diagonal Text cells are empty strings.
func Assemble(res *Result, opts ...AssembleOption) *Heatmap {
	o := assembleOptions{annotate: DefaultAnnotation}
	for _, opt := range opts {
		opt(&o)
	}

	n := res.Len()
	percents := Transpose(res.MatchPercent)

	hm := &Heatmap{
		Labels: append([]string(nil), res.Entities...),
		Z:      make([][]NullPercent, n),
		Text:   make([][]string, n),
		Cells:  make([][]Cell, n),
	}

	for row := 0; row < n; row++ {
		z := make([]NullPercent, n)
		text := make([]string, n)
		cells := make([]Cell, n)
		for col := 0; col < n; col++ {
			// Column is X, row is Y.
			cells[col] = res.Cell(col, row)
			if row == col {
				continue
			}
			z[col] = NullPercent{Value: percents[row][col], Valid: true}
			text[col] = o.annotate(cells[col])
		}
		hm.Z[row] = z
		hm.Text[row] = text
		hm.Cells[row] = cells
	}

	return hm
}

// Size returns the number of rows (and columns).
func (h *Heatmap) Size() int {
	return len(h.Labels)
}
