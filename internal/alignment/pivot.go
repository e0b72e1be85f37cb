package alignment

import "sort"

// Pivot maps resolution → entity → vote.
//
// A later record for the same (resolution, entity) pair replaces the earlier
// one. A Pivot is not modified after BuildPivot returns it.
type Pivot map[string]map[string]string

// Vote returns the entity's vote on the resolution, or "" if none was recorded.
func (p Pivot) Vote(resolution, entity string) string {
	return p[resolution][entity]
}

// Resolutions returns the pivot's resolution ids in ascending order.
func (p Pivot) Resolutions() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BuildPivot normalizes rows and aggregates them into a Pivot along with the
// sorted universe of distinct entities. It never fails; an empty batch yields
// an empty Pivot and an empty universe.
func BuildPivot(rows []Row, f Fields) (Pivot, []string) {
	return BuildPivotFromRecords(NormalizeAll(rows, f))
}

// BuildPivotFromRecords is BuildPivot over already normalized records.
func BuildPivotFromRecords(records []VoteRecord) (Pivot, []string) {
	pivot := make(Pivot)
	seen := make(map[string]struct{})

	for _, rec := range records {
		if rec.Resolution == "" || rec.Entity == "" {
			continue
		}
		votes, ok := pivot[rec.Resolution]
		if !ok {
			votes = make(map[string]string)
			pivot[rec.Resolution] = votes
		}
		votes[rec.Entity] = rec.Vote
		seen[rec.Entity] = struct{}{}
	}

	entities := make([]string, 0, len(seen))
	for e := range seen {
		entities = append(entities, e)
	}
	// Byte-wise ordering, so "Zambia" sorts before "eSwatini".
	sort.Strings(entities)

	return pivot, entities
}
