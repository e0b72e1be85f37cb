package alignment

import "strings"

// Substantive vote codes. Every other value is ignored by the counts.
const (
	VoteYes = "Y"
	VoteNo  = "N"
)

// Row is one decoded input record keyed by column name.
type Row map[string]string

// Fields names the columns a Row is read through.
type Fields struct {
	Resolution string `json:"resolution" yaml:"resolution"`
	Entity     string `json:"entity" yaml:"entity"`
	Vote       string `json:"vote" yaml:"vote"`
}

// DefaultFields returns the column names used by the UN voting exports.
func DefaultFields() Fields {
	return Fields{
		Resolution: "resolution",
		Entity:     "ms_name",
		Vote:       "ms_vote",
	}
}

// WithDefaults fills empty column names from DefaultFields.
func (f Fields) WithDefaults() Fields {
	d := DefaultFields()
	if strings.TrimSpace(f.Resolution) == "" {
		f.Resolution = d.Resolution
	}
	if strings.TrimSpace(f.Entity) == "" {
		f.Entity = d.Entity
	}
	if strings.TrimSpace(f.Vote) == "" {
		f.Vote = d.Vote
	}
	return f
}

// VoteRecord is a normalized (resolution, entity, vote) triple.
type VoteRecord struct {
	Resolution string `json:"resolution"`
	Entity     string `json:"entity"`
	Vote       string `json:"vote"`
}

// Normalize trims the row's fields and uppercases the vote. It reports false
// when the resolution or entity is empty, in which case the row is dropped.
// An empty or non-substantive vote is kept as is.
func Normalize(row Row, f Fields) (VoteRecord, bool) {
	rec := VoteRecord{
		Resolution: strings.TrimSpace(row[f.Resolution]),
		Entity:     strings.TrimSpace(row[f.Entity]),
		Vote:       strings.ToUpper(strings.TrimSpace(row[f.Vote])),
	}
	if rec.Resolution == "" || rec.Entity == "" {
		return VoteRecord{}, false
	}
	return rec, true
}

// NormalizeAll normalizes rows in order, skipping the ones Normalize drops.
func NormalizeAll(rows []Row, f Fields) []VoteRecord {
	out := make([]VoteRecord, 0, len(rows))
	for _, row := range rows {
		if rec, ok := Normalize(row, f); ok {
			out = append(out, rec)
		}
	}
	return out
}

// IsSubstantive reports whether vote is exactly "Y" or "N".
func IsSubstantive(vote string) bool {
	return vote == VoteYes || vote == VoteNo
}
