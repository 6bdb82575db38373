package cleaning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bouyassine11/AnalytIQ/internal/table"
)

var nan = math.NaN()

func strs(vals ...string) []*string {
	out := make([]*string, len(vals))
	for i := range vals {
		if vals[i] == "<nil>" {
			continue
		}
		out[i] = &vals[i]
	}
	return out
}

func TestCleanMissingAndDuplicateScenario(t *testing.T) {
	src := table.New(
		table.TextColumn("name", strs("a", "b", "c", "d", "e", "f", "g", "h", "i", "a")),
		table.NumericColumn("score", []float64{1, 2, nan, 4, nan, 6, 7, 8, 9, 1}),
	)
	out, rep := Clean(src)

	assert.Equal(t, map[string]int{"score": 2}, rep.MissingValues)
	assert.Equal(t, 1, rep.DuplicatesRemoved)
	assert.Equal(t, Shape{Rows: 10, Columns: 2}, rep.OriginalShape)
	assert.Equal(t, Shape{Rows: 9, Columns: 2}, rep.FinalShape)
	assert.Equal(t, []string{"Filled score with median", "Removed 1 duplicates"}, rep.ActionsTaken)

	score, _ := out.Column("score")
	// median of the 8 present values: 1 1 2 4 6 7 8 9
	assert.Equal(t, 5.0, score.Nums[2])
	assert.Equal(t, 0, score.NullCount())

	srcScore, _ := src.Column("score")
	assert.True(t, srcScore.IsNull(2), "source table is untouched")
}

func TestCleanFillsTextWithSmallestMode(t *testing.T) {
	src := table.New(table.TextColumn("c", strs("b", "a", "b", "a", "<nil>", "z")))
	out, rep := Clean(src)
	c, _ := out.Column("c")
	assert.Equal(t, "a", c.Strs[4])
	assert.Contains(t, rep.ActionsTaken, "Filled c with mode")
}

func TestCleanLeavesAllNullColumn(t *testing.T) {
	src := table.New(
		table.NumericColumn("x", []float64{1, 2, 3}),
		table.TextColumn("blank", strs("<nil>", "<nil>", "<nil>")),
	)
	out, rep := Clean(src)
	assert.Equal(t, map[string]int{"blank": 3}, rep.MissingValues)
	assert.Empty(t, rep.ActionsTaken)
	blank, _ := out.Column("blank")
	assert.Equal(t, 3, blank.NullCount())
}

func TestCleanTrimsAfterDeduplication(t *testing.T) {
	src := table.New(table.TextColumn("c", strs(" a", "a", "a ")))
	out, rep := Clean(src)
	assert.Equal(t, 0, rep.DuplicatesRemoved)
	c, _ := out.Column("c")
	assert.Equal(t, []string{"a", "a", "a"}, c.Strs)
}

func TestCleanCountsOutliers(t *testing.T) {
	src := table.New(
		table.NumericColumn("v", []float64{10, 11, 12, 13, 14, 100}),
		table.NumericColumn("flat", []float64{1, 2, 3, 4, 5, 6}),
	)
	out, rep := Clean(src)
	assert.Equal(t, map[string]int{"v": 1}, rep.OutliersDetected)
	assert.Equal(t, 6, out.Rows(), "outliers are advisory only")
}

func TestCleanIsIdempotent(t *testing.T) {
	src := table.New(
		table.TextColumn("city", strs("Paris ", "Lyon", "<nil>", "Paris ", "Nice")),
		table.NumericColumn("n", []float64{1, nan, 3, 1, 50}),
	)
	once, _ := Clean(src)
	twice, rep := Clean(once)

	assert.Empty(t, rep.MissingValues)
	assert.Zero(t, rep.DuplicatesRemoved)
	assert.Empty(t, rep.ActionsTaken)
	assert.Equal(t, rep.OriginalShape, rep.FinalShape)
	require.Equal(t, once.Rows(), twice.Rows())
	for i, c := range once.Columns {
		assert.Equal(t, c, twice.Columns[i])
	}
}

// Rows that only differ by surrounding whitespace are distinct when duplicates
// are dropped and equal after trimming, so a second pass removes them.
func TestCleanSecondPassDropsRowsEqualAfterTrim(t *testing.T) {
	src := table.New(table.TextColumn("c", strs("x", " x")))
	once, rep1 := Clean(src)
	assert.Zero(t, rep1.DuplicatesRemoved)
	assert.Equal(t, 2, once.Rows())

	twice, rep2 := Clean(once)
	assert.Equal(t, 1, rep2.DuplicatesRemoved)
	assert.Equal(t, []string{"Removed 1 duplicates"}, rep2.ActionsTaken)
	assert.Equal(t, 1, twice.Rows())

	third, rep3 := Clean(twice)
	assert.Zero(t, rep3.DuplicatesRemoved)
	assert.Empty(t, rep3.ActionsTaken)
	assert.Equal(t, 1, third.Rows())
}

func TestCleanRowBounds(t *testing.T) {
	src := table.New(table.NumericColumn("x", []float64{7, 7, 7}))
	out, rep := Clean(src)
	assert.Equal(t, 1, out.Rows())
	assert.Equal(t, 2, rep.DuplicatesRemoved)

	empty := table.New()
	out, rep = Clean(empty)
	assert.Equal(t, 0, out.Rows())
	assert.Equal(t, Shape{}, rep.FinalShape)
}
