package charts

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bouyassine11/AnalytIQ/internal/analysis"
	"github.com/bouyassine11/AnalytIQ/internal/table"
)

// PlotlyRenderer emits plotly.js figure objects ({"data": [...], "layout": {...}}).
// Histograms are pre-binned and boxplots carry precomputed quartiles, so the
// payload size does not grow with the row count.
type PlotlyRenderer struct{}

type figure struct {
	Data   []map[string]any `json:"data"`
	Layout map[string]any   `json:"layout"`
}

func layout(title string, axes ...string) map[string]any {
	l := map[string]any{"title": map[string]any{"text": title}}
	if len(axes) == 2 {
		l["xaxis"] = map[string]any{"title": map[string]any{"text": axes[0]}}
		l["yaxis"] = map[string]any{"title": map[string]any{"text": axes[1]}}
	}
	return l
}

func (PlotlyRenderer) Render(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var fig figure
	switch req.Kind {
	case Histogram:
		fig = histogramFigure(req)
	case Boxplot:
		fig = boxFigure(req)
	case Heatmap:
		fig = heatmapFigure(req)
	case Bar:
		fig = barFigure(req)
	default:
		return nil, fmt.Errorf("unsupported chart kind %q", req.Kind)
	}
	b, err := json.Marshal(fig)
	if err != nil {
		return nil, fmt.Errorf("marshal figure: %w", err)
	}
	return b, nil
}

// Bins splits the finite values into Sturges-rule bins of equal width and
// returns the bin edges and counts. Constant input yields one bin of width 1.
func Bins(values []float64) (edges []float64, counts []float64) {
	sorted := finite(values)
	if len(sorted) == 0 {
		return nil, nil
	}
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		edges = []float64{lo - 0.5, lo + 0.5}
		return edges, []float64{float64(len(sorted))}
	}
	n := int(math.Ceil(math.Log2(float64(len(sorted))))) + 1
	edges = make([]float64, n+1)
	if math.IsInf(hi-lo, 0) {
		// the range overflows float64, interpolate without forming hi-lo
		for i := range edges {
			t := float64(i) / float64(n)
			edges[i] = lo*(1-t) + hi*t
		}
	} else {
		floats.Span(edges, lo, hi)
	}
	edges[n] = hi
	// the last divider is exclusive
	dividers := append([]float64(nil), edges...)
	dividers[n] = math.Nextafter(hi, math.Inf(1))
	counts = stat.Histogram(nil, dividers, sorted, nil)
	return edges, counts
}

// finite returns a copy of values without NaN and infinities.
func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func histogramFigure(req Request) figure {
	edges, counts := Bins(req.Values)
	x := make([]float64, len(counts))
	width := make([]float64, len(counts))
	for i := range counts {
		width[i] = edges[i+1] - edges[i]
		x[i] = edges[i] + width[i]/2
	}
	return figure{
		Data: []map[string]any{{
			"type":  "bar",
			"name":  req.Column,
			"x":     x,
			"y":     counts,
			"width": width,
		}},
		Layout: layout(req.Title, req.Column, "count"),
	}
}

func boxFigure(req Request) figure {
	sorted := finite(req.Values)
	sort.Float64s(sorted)
	trace := map[string]any{"type": "box", "name": req.Column}
	if len(sorted) > 0 {
		lower, upper := table.Fences(sorted)
		// whiskers stop at the most extreme values inside the fences
		lw, uw := sorted[len(sorted)-1], sorted[0]
		var outliers []float64
		for _, v := range sorted {
			if v < lower || v > upper {
				outliers = append(outliers, v)
				continue
			}
			lw = math.Min(lw, v)
			uw = math.Max(uw, v)
		}
		trace["q1"] = []float64{table.Quantile(sorted, 0.25)}
		trace["median"] = []float64{table.Quantile(sorted, 0.5)}
		trace["q3"] = []float64{table.Quantile(sorted, 0.75)}
		trace["lowerfence"] = []float64{lw}
		trace["upperfence"] = []float64{uw}
		if len(outliers) > 0 {
			trace["y"] = [][]float64{outliers}
			trace["boxpoints"] = "outliers"
		}
	}
	return figure{Data: []map[string]any{trace}, Layout: layout(req.Title)}
}

func heatmapFigure(req Request) figure {
	z := make([][]analysis.Float, len(req.Matrix))
	text := make([][]string, len(req.Matrix))
	for i, row := range req.Matrix {
		z[i] = make([]analysis.Float, len(row))
		text[i] = make([]string, len(row))
		for j, v := range row {
			z[i][j] = analysis.Float(v)
			if !math.IsNaN(v) {
				text[i][j] = fmt.Sprintf("%.2f", v)
			}
		}
	}
	return figure{
		Data: []map[string]any{{
			"type":         "heatmap",
			"x":            req.Names,
			"y":            req.Names,
			"z":            z,
			"text":         text,
			"texttemplate": "%{text}",
			"colorscale":   "RdBu",
			"reversescale": true,
			"zmin":         -1,
			"zmax":         1,
		}},
		Layout: layout(req.Title),
	}
}

func barFigure(req Request) figure {
	x := make([]string, len(req.Frequencies))
	y := make([]int, len(req.Frequencies))
	for i, vc := range req.Frequencies {
		x[i] = vc.Value
		y[i] = vc.Count
	}
	return figure{
		Data:   []map[string]any{{"type": "bar", "x": x, "y": y}},
		Layout: layout(req.Title, req.Column, "Count"),
	}
}
