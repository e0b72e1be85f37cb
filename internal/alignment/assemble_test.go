package alignment_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
)

func TestTranspose(t *testing.T) {
	got := alignment.Transpose([][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
	})
	assert.Equal(t, [][]float64{
		{1, 4, 7},
		{2, 5, 8},
		{3, 6, 9},
	}, got)
	assert.Empty(t, alignment.Transpose(nil))
}

func TestAssemble_TransposeAndMask(t *testing.T) {
	for seed := int64(1); seed <= 4; seed++ {
		res := compute(t, randomBatch(seed, 9, 30))
		hm := alignment.Assemble(res)
		n := res.Len()

		require.Equal(t, res.Entities, hm.Labels)
		require.Equal(t, n, hm.Size())
		require.Len(t, hm.Z, n)
		require.Len(t, hm.Text, n)

		for row := 0; row < n; row++ {
			require.Len(t, hm.Z[row], n)
			require.Len(t, hm.Text[row], n)
			for col := 0; col < n; col++ {
				cell := hm.Cells[row][col]
				assert.Equal(t, res.Entities[col], cell.X)
				assert.Equal(t, res.Entities[row], cell.Y)

				if row == col {
					assert.False(t, hm.Z[row][col].Valid, "diagonal must be masked")
					assert.Equal(t, "", hm.Text[row][col])
					continue
				}
				require.True(t, hm.Z[row][col].Valid)
				assert.Equal(t, res.MatchPercent[col][row], hm.Z[row][col].Value)
				assert.Equal(t, res.MatchCount[col][row], cell.Matched)
				assert.Equal(t, res.XTotal[col], cell.XTotal)
				assert.Equal(t, res.CoverageCount[col][row], cell.YCoverage)
				assert.NotEmpty(t, hm.Text[row][col])
			}
		}
	}
}

func TestAssemble_DefaultAnnotationCarriesAllValues(t *testing.T) {
	res := compute(t, rows(
		[3]string{"R1", "A", "Y"},
		[3]string{"R1", "B", "Y"},
		[3]string{"R1", "C", "N"},
		[3]string{"R2", "A", "N"},
		[3]string{"R2", "B", "Y"},
	))
	hm := alignment.Assemble(res)

	// Row B (Y role), column A (X role): B matched A on 1 of A's 2 votes.
	text := hm.Text[1][0]
	for _, want := range []string{
		"<b>Entity X:</b> A",
		"<b>Entity Y:</b> B",
		"<b>% Matched:</b> 50.0",
		"<b>Matched Votes:</b> 1",
		"<b>A Total Votes:</b> 2",
		"<b>B Voted Same Resolutions:</b> 2",
	} {
		assert.Contains(t, text, want)
	}

	// Row A, column C: from C's perspective A disagreed on C's only vote.
	assert.Contains(t, hm.Text[0][2], "<b>% Matched:</b> 0.0")
	assert.Contains(t, hm.Text[0][2], "<b>C Total Votes:</b> 1")
}

func TestAssemble_CustomAnnotator(t *testing.T) {
	res := compute(t, rows(
		[3]string{"R1", "A", "Y"},
		[3]string{"R1", "B", "N"},
	))
	hm := alignment.Assemble(res, alignment.WithAnnotator(func(c alignment.Cell) string {
		return c.X + "->" + c.Y
	}))
	assert.Equal(t, [][]string{{"", "B->A"}, {"A->B", ""}}, hm.Text)
}

func TestAssemble_SingleEntity(t *testing.T) {
	res := compute(t, rows([3]string{"R1", "Solo", "Y"}))
	hm := alignment.Assemble(res)
	require.Equal(t, 1, hm.Size())
	assert.False(t, hm.Z[0][0].Valid)
	assert.Equal(t, "", hm.Text[0][0])
}

func TestHeatmap_JSONMasksDiagonalAsNull(t *testing.T) {
	res := compute(t, rows(
		[3]string{"R1", "A", "Y"},
		[3]string{"R1", "B", "Y"},
	))
	data, err := json.Marshal(alignment.Assemble(res))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"z":[[null,100],[100,null]]`), string(data))
	assert.True(t, strings.Contains(string(data), `"text":[["",`), string(data))

	var back alignment.Heatmap
	require.NoError(t, json.Unmarshal(data, &back))
	assert.False(t, back.Z[0][0].Valid)
	assert.True(t, back.Z[0][1].Valid)
	assert.Equal(t, 100.0, back.Z[0][1].Value)
}
