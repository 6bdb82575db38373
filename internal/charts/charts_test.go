package charts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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

func wideTable() *table.Table {
	var cols []*table.Column
	for i := 0; i < 7; i++ {
		cols = append(cols, table.NumericColumn(fmt.Sprintf("n%d", i), []float64{1, 2, 3, float64(i)}))
	}
	for i := 0; i < 4; i++ {
		cols = append(cols, textCol(fmt.Sprintf("t%d", i), "a", "b", "a", "c"))
	}
	return table.New(cols...)
}

func TestRequestsSelectionPolicy(t *testing.T) {
	reqs := Requests(wideTable())
	var kinds []Kind
	var cols []string
	for _, r := range reqs {
		kinds = append(kinds, r.Kind)
		cols = append(cols, r.Column)
	}
	want := []Kind{
		Histogram, Histogram, Histogram, Histogram, Histogram,
		Boxplot, Boxplot, Boxplot, Boxplot, Boxplot,
		Heatmap,
		Bar, Bar, Bar,
	}
	assert.Equal(t, want, kinds)
	assert.Equal(t, []string{"n0", "n1", "n2", "n3", "n4", "n0", "n1", "n2", "n3", "n4", "correlation", "t0", "t1", "t2"}, cols)

	heat := reqs[10]
	assert.Len(t, heat.Names, 7, "heatmap covers every numeric column")
	assert.Equal(t, "a", reqs[11].Frequencies[0].Value)
}

func TestRequestsWithoutNumericColumns(t *testing.T) {
	reqs := Requests(table.New(textCol("c", "x", "y")))
	require.Len(t, reqs, 1)
	assert.Equal(t, Bar, reqs[0].Kind)
}

func TestRequestsSingleNumericHasNoHeatmap(t *testing.T) {
	reqs := Requests(table.New(table.NumericColumn("x", []float64{1, 2})))
	require.Len(t, reqs, 2)
	assert.Equal(t, Histogram, reqs[0].Kind)
	assert.Equal(t, Boxplot, reqs[1].Kind)
}

func TestBarChartKeepsTopTen(t *testing.T) {
	var vals []string
	for i := 0; i < 12; i++ {
		vals = append(vals, fmt.Sprintf("v%02d", i))
	}
	vals = append(vals, "v11")
	reqs := Requests(table.New(textCol("c", vals...)))
	fr := reqs[0].Frequencies
	require.Len(t, fr, BarTopValues)
	assert.Equal(t, "v11", fr[0].Value)
	assert.Equal(t, "v00", fr[1].Value, "ties keep first-seen order")
}

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, Request) (json.RawMessage, error) {
	return nil, errors.New("renderer down")
}

func TestBuildKeepsSpecWhenRenderFails(t *testing.T) {
	s := NewStage(failingRenderer{}, nil)
	specs := s.Build(context.Background(), table.New(table.NumericColumn("x", []float64{1, 2})))
	require.Len(t, specs, 2)
	b, err := json.Marshal(specs[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"histogram","column":"x","data":null}`, string(b))
}

type panickingRenderer struct{}

func (panickingRenderer) Render(context.Context, Request) (json.RawMessage, error) {
	panic("index out of range")
}

func TestBuildRecoversRendererPanic(t *testing.T) {
	s := NewStage(panickingRenderer{}, nil)
	specs := s.Build(context.Background(), table.New(table.NumericColumn("x", []float64{1, 2})))
	require.Len(t, specs, 2)
	for _, sp := range specs {
		assert.Nil(t, sp.Data, sp.Type)
	}
}

func TestPlotlyRendererSkipsInfiniteValues(t *testing.T) {
	s := NewStage(nil, nil)
	tb := table.New(
		table.NumericColumn("x", []float64{1, 2, math.Inf(1), 3}),
		table.NumericColumn("y", []float64{-1.7e308, 0, 1.7e308, 4}),
	)
	specs := s.Build(context.Background(), tb)
	require.Len(t, specs, 5)
	for _, sp := range specs {
		require.NotNil(t, sp.Data, "%s %s", sp.Type, sp.Column)
	}

	var hist struct {
		Data []struct {
			X []float64 `json:"x"`
			Y []float64 `json:"y"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(specs[0].Data, &hist))
	total := 0.0
	for _, c := range hist.Data[0].Y {
		total += c
	}
	assert.Equal(t, 3.0, total, "the infinite value is not binned")
}

func TestPlotlyRendererOutputs(t *testing.T) {
	s := NewStage(nil, nil)
	tb := table.New(
		table.NumericColumn("x", []float64{1, 2, 3, 4, 100}),
		table.NumericColumn("k", []float64{5, 5, 5, 5, 5}),
		textCol("c", "a", "b", "a", "a", "b"),
	)
	specs := s.Build(context.Background(), tb)
	require.Len(t, specs, 6)
	for _, sp := range specs {
		require.NotNil(t, sp.Data, sp.Type)
		var fig map[string]any
		require.NoError(t, json.Unmarshal(sp.Data, &fig), sp.Type)
		assert.Contains(t, fig, "data")
		assert.Contains(t, fig, "layout")
	}

	var heat struct {
		Data []struct {
			Z [][]*float64 `json:"z"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(specs[4].Data, &heat))
	assert.Nil(t, heat.Data[0].Z[1][1], "constant column correlation is null")
	assert.Equal(t, 1.0, *heat.Data[0].Z[0][0])
}

func TestBinsCountsEveryValue(t *testing.T) {
	vals := []float64{3, 1, 2, 2, 5, 4, 5}
	edges, counts := Bins(vals)
	require.Len(t, edges, len(counts)+1)
	total := 0.0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, float64(len(vals)), total)
	assert.Equal(t, 1.0, edges[0])
	assert.Equal(t, 5.0, edges[len(edges)-1])

	edges, counts = Bins([]float64{2, 2})
	assert.Equal(t, []float64{1.5, 2.5}, edges)
	assert.Equal(t, []float64{2}, counts)
}

func TestBinsIgnoresNonFiniteValues(t *testing.T) {
	edges, counts := Bins([]float64{1, 2, 3, math.Inf(1), math.NaN(), math.Inf(-1)})
	require.Len(t, edges, len(counts)+1)
	total := 0.0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, 3.0, total)
	assert.Equal(t, 1.0, edges[0])
	assert.Equal(t, 3.0, edges[len(edges)-1])

	edges, counts = Bins([]float64{math.Inf(1)})
	assert.Nil(t, edges)
	assert.Nil(t, counts)
}

func TestBinsOverflowingRange(t *testing.T) {
	vals := []float64{-1.7e308, 0, 1.7e308}
	edges, counts := Bins(vals)
	require.Len(t, edges, len(counts)+1)
	assert.Equal(t, -1.7e308, edges[0])
	assert.Equal(t, 1.7e308, edges[len(edges)-1])
	total := 0.0
	for i, c := range counts {
		total += c
		assert.Less(t, edges[i], edges[i+1])
		assert.False(t, math.IsInf(edges[i+1]-edges[i], 0))
	}
	assert.Equal(t, 3.0, total)

	edges, counts = Bins([]float64{0, math.MaxFloat64})
	require.Len(t, counts, 2)
	assert.Equal(t, []float64{1, 1}, counts)
	assert.Equal(t, math.MaxFloat64, edges[2])
}
