package alignment

// Result holds the pairwise comparison of every ordered entity pair.
//
// All matrices are indexed [x][y] over Entities: row x is the entity whose
// substantive votes are the denominator, column y is the entity compared
// against it. MatchCount is symmetric; CoverageCount and MatchPercent are not.
type Result struct {
	Entities      []string    `json:"entities"`
	MatchCount    [][]int     `json:"match_count"`
	CoverageCount [][]int     `json:"coverage_count"`
	MatchPercent  [][]float64 `json:"match_percent"`
	XTotal        []int       `json:"x_total"`
}

// Cell is the full set of values behind one (X, Y) comparison.
type Cell struct {
	X         string  `json:"x"`
	Y         string  `json:"y"`
	Percent   float64 `json:"percent"`
	Matched   int     `json:"matched"`
	XTotal    int     `json:"x_total"`
	YCoverage int     `json:"y_coverage"`
}

type castVote struct {
	resolution string
	vote       string
}

// Compute compares every ordered pair of entities in the pivot.
//
// For entity x, only resolutions on which x voted Y or N are considered.
// CoverageCount[x][y] counts those on which y also voted Y or N, and
// MatchCount[x][y] counts those on which y cast the same vote. MatchPercent
// is MatchCount over XTotal[x] on a 0–100 scale, or 0 when x has no
// substantive votes. The diagonal is computed like any other cell.
func Compute(p Pivot, entities []string) *Result {
	n := len(entities)
	res := &Result{
		Entities:      append([]string(nil), entities...),
		MatchCount:    make([][]int, n),
		CoverageCount: make([][]int, n),
		MatchPercent:  make([][]float64, n),
		XTotal:        make([]int, n),
	}

	resolutions := p.Resolutions()

	for i, x := range entities {
		var cast []castVote
		for _, r := range resolutions {
			if v := p[r][x]; IsSubstantive(v) {
				cast = append(cast, castVote{resolution: r, vote: v})
			}
		}
		total := len(cast)
		res.XTotal[i] = total

		matches := make([]int, n)
		coverage := make([]int, n)
		percents := make([]float64, n)

		for j, y := range entities {
			for _, c := range cast {
				yv := p[c.resolution][y]
				if !IsSubstantive(yv) {
					continue
				}
				coverage[j]++
				if yv == c.vote {
					matches[j]++
				}
			}
			if total > 0 {
				percents[j] = float64(matches[j]) * 100 / float64(total)
			}
		}

		res.MatchCount[i] = matches
		res.CoverageCount[i] = coverage
		res.MatchPercent[i] = percents
	}

	return res
}

// Len returns the number of entities.
func (r *Result) Len() int {
	return len(r.Entities)
}

// Index returns the position of entity in Entities.
func (r *Result) Index(entity string) (int, bool) {
	for i, e := range r.Entities {
		if e == entity {
			return i, true
		}
	}
	return 0, false
}

// XTotalMatrix broadcasts XTotal across each row into an n × n matrix.
func (r *Result) XTotalMatrix() [][]int {
	n := len(r.XTotal)
	out := make([][]int, n)
	for i, total := range r.XTotal {
		row := make([]int, n)
		for j := range row {
			row[j] = total
		}
		out[i] = row
	}
	return out
}

// Cell returns the values for x index i and y index j without bounds checks.
func (r *Result) Cell(i, j int) Cell {
	return Cell{
		X:         r.Entities[i],
		Y:         r.Entities[j],
		Percent:   r.MatchPercent[i][j],
		Matched:   r.MatchCount[i][j],
		XTotal:    r.XTotal[i],
		YCoverage: r.CoverageCount[i][j],
	}
}

// Pair looks up the comparison of y against x by entity name.
func (r *Result) Pair(x, y string) (Cell, bool) {
	i, ok := r.Index(x)
	if !ok {
		return Cell{}, false
	}
	j, ok := r.Index(y)
	if !ok {
		return Cell{}, false
	}
	return r.Cell(i, j), true
}
