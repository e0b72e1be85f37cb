package alignment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
)

func TestNormalize_TrimsAndUppercases(t *testing.T) {
	f := alignment.DefaultFields()
	rec, ok := alignment.Normalize(alignment.Row{
		"resolution": "  A/RES/78/1 ",
		"ms_name":    "\tFrance ",
		"ms_vote":    " y ",
	}, f)
	require.True(t, ok)
	assert.Equal(t, alignment.VoteRecord{Resolution: "A/RES/78/1", Entity: "France", Vote: "Y"}, rec)
}

func TestNormalize_DiscardsMissingKeys(t *testing.T) {
	f := alignment.DefaultFields()
	cases := []alignment.Row{
		{"resolution": "", "ms_name": "France", "ms_vote": "Y"},
		{"resolution": "R1", "ms_name": "   ", "ms_vote": "Y"},
		{"ms_vote": "Y"},
		{},
	}
	for i, row := range cases {
		_, ok := alignment.Normalize(row, f)
		assert.False(t, ok, "case %d should be discarded", i)
	}
}

func TestNormalize_KeepsNonSubstantiveVotes(t *testing.T) {
	f := alignment.DefaultFields()

	rec, ok := alignment.Normalize(alignment.Row{"resolution": "R1", "ms_name": "Peru", "ms_vote": "a"}, f)
	require.True(t, ok)
	assert.Equal(t, "A", rec.Vote)

	rec, ok = alignment.Normalize(alignment.Row{"resolution": "R1", "ms_name": "Peru"}, f)
	require.True(t, ok)
	assert.Empty(t, rec.Vote)
}

func TestNormalize_CustomFields(t *testing.T) {
	f := alignment.Fields{Resolution: "res", Entity: "country", Vote: "v"}
	rec, ok := alignment.Normalize(alignment.Row{"res": "R9", "country": "Chile", "v": "n"}, f)
	require.True(t, ok)
	assert.Equal(t, "R9", rec.Resolution)
	assert.Equal(t, "Chile", rec.Entity)
	assert.Equal(t, "N", rec.Vote)
}

func TestFields_WithDefaults(t *testing.T) {
	f := alignment.Fields{Entity: "country"}.WithDefaults()
	assert.Equal(t, "resolution", f.Resolution)
	assert.Equal(t, "country", f.Entity)
	assert.Equal(t, "ms_vote", f.Vote)
}

func TestIsSubstantive(t *testing.T) {
	assert.True(t, alignment.IsSubstantive("Y"))
	assert.True(t, alignment.IsSubstantive("N"))
	for _, v := range []string{"", "A", "X", "y", "n", "YES", " Y"} {
		assert.False(t, alignment.IsSubstantive(v), "%q", v)
	}
}
