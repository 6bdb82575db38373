package analysis

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bouyassine11/AnalytIQ/internal/table"
)

func textCol(name string, vals ...string) *table.Column {
	ptrs := make([]*string, len(vals))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	return table.TextColumn(name, ptrs)
}

func TestAnalyzeNumericTable(t *testing.T) {
	tb := table.New(
		table.NumericColumn("x", []float64{1, 2, 3, 4, 5}),
		table.NumericColumn("y", []float64{2, 4, 6, 8, 10}),
		table.NumericColumn("k", []float64{3, 3, 3, 3, 3}),
	)
	res := Analyze(tb)

	x := res.SummaryStatistics["x"]
	assert.Equal(t, Float(5), x.Count)
	assert.InDelta(t, 3.0, float64(x.Mean), 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), float64(x.Std), 1e-12)
	assert.Equal(t, Float(2), x.Q1)
	assert.Equal(t, Float(3), x.Median)
	assert.Equal(t, Float(4), x.Q3)

	cm := res.CorrelationMatrix
	require.Len(t, cm, 3)
	assert.Equal(t, Float(1), cm["x"]["x"])
	assert.Equal(t, Float(1), cm["y"]["y"])
	assert.True(t, cm["k"]["k"].IsNaN(), "constant column has undefined correlation")
	assert.InDelta(t, 1.0, float64(cm["x"]["y"]), 1e-12)
	for a, row := range cm {
		for b, v := range row {
			w := cm[b][a]
			if v.IsNaN() {
				assert.True(t, w.IsNaN())
				continue
			}
			assert.Equal(t, v, w, "matrix is symmetric")
		}
	}

	k := res.ColumnAnalysis["k"]
	assert.Equal(t, "int64", k.DType)
	assert.Equal(t, Float(0), *k.Skewness)
	assert.Equal(t, Float(0), *k.Kurtosis)
	assert.Equal(t, 1, k.UniqueValues)

	xp := res.ColumnAnalysis["x"]
	assert.InDelta(t, 0.0, float64(*xp.Skewness), 1e-12)
	assert.InDelta(t, -1.2, float64(*xp.Kurtosis), 1e-12)
	assert.Nil(t, xp.TopValues)

	assert.Equal(t, Float(100), res.DataQuality.Completeness)
	assert.Equal(t, 3, res.DataQuality.NumericColumns)
	assert.Equal(t, 0, res.DataQuality.CategoricalColumns)
}

func TestAnalyzeTextOnlyTable(t *testing.T) {
	tb := table.New(textCol("c", "b", "a", "b", "c", "a", "d", "e", "f"))
	res := Analyze(tb)

	assert.Empty(t, res.SummaryStatistics)
	assert.Empty(t, res.CorrelationMatrix)
	p := res.ColumnAnalysis["c"]
	assert.Equal(t, "object", p.DType)
	assert.Nil(t, p.Skewness)
	assert.Equal(t, Frequencies{{"b", 2}, {"a", 2}, {"c", 1}, {"d", 1}, {"e", 1}}, p.TopValues)
	assert.Equal(t, 6, p.UniqueValues)
}

func TestAnalyzeSmallSamples(t *testing.T) {
	tb := table.New(table.NumericColumn("x", []float64{1, 4}))
	res := Analyze(tb)
	p := res.ColumnAnalysis["x"]
	assert.True(t, p.Skewness.IsNaN())
	assert.True(t, p.Kurtosis.IsNaN())
	assert.Empty(t, res.CorrelationMatrix, "one numeric column has no matrix")

	one := Analyze(table.New(table.NumericColumn("x", []float64{7})))
	assert.True(t, one.SummaryStatistics["x"].Std.IsNaN())
}

func TestAnalyzeEmptyTable(t *testing.T) {
	res := Analyze(table.New())
	assert.Equal(t, 0, res.Overview.Rows)
	assert.Equal(t, Float(100), res.DataQuality.Completeness)
	assert.Equal(t, "0.00 MB", res.Overview.MemoryUsage)
}

func TestCompletenessAndDuplicates(t *testing.T) {
	tb := table.New(
		table.NumericColumn("x", []float64{1, math.NaN(), 1}),
		table.TextColumn("y", []*string{nil, nil, nil}),
	)
	res := Analyze(tb)
	assert.InDelta(t, 100.0/3.0, float64(res.DataQuality.Completeness), 1e-9)
	assert.Equal(t, 1, res.DataQuality.DuplicateRows)
	assert.Equal(t, 2, res.ColumnAnalysis["x"].MissingCount)
	assert.Equal(t, "float64", res.ColumnAnalysis["x"].DType)
}

func TestMemoryBytes(t *testing.T) {
	tb := table.New(
		table.NumericColumn("n", []float64{1, 2}),
		textCol("s", "ab", "é"),
	)
	// 128 index + 16 numeric + (8+49+2) + (8+73+1)
	assert.Equal(t, int64(128+16+59+82), MemoryBytes(tb))
}

func TestResultJSONEncodesNaNAsNull(t *testing.T) {
	tb := table.New(
		table.NumericColumn("x", []float64{1, 2, 3}),
		table.NumericColumn("k", []float64{1, 1, 1}),
		textCol("c", "z", "a", "z"),
	)
	b, err := json.Marshal(Analyze(tb))
	require.NoError(t, err)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	corr := raw["correlation_matrix"]["k"].(map[string]any)
	assert.Nil(t, corr["k"])

	var back Result
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.CorrelationMatrix["k"]["x"].IsNaN())
	assert.Equal(t, Frequencies{{"z", 2}, {"a", 1}}, back.ColumnAnalysis["c"].TopValues)
	assert.Contains(t, string(b), `"top_values":{"z":2,"a":1}`)
}
