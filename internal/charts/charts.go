// Package charts selects which charts describe a cleaned table and asks a
// Renderer for each chart's definition.
package charts

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/bouyassine11/AnalytIQ/internal/analysis"
	"github.com/bouyassine11/AnalytIQ/internal/table"
)

// Kind is the chart type.
type Kind string

const (
	Histogram Kind = "histogram"
	Boxplot   Kind = "boxplot"
	Heatmap   Kind = "heatmap"
	Bar       Kind = "bar"
)

// Selection limits.
const (
	MaxNumeric   = 5
	MaxText      = 3
	BarTopValues = 10
)

// CorrelationTarget is the column label of the heatmap.
const CorrelationTarget = "correlation"

// Spec is one chart: its kind, the column it describes and an opaque
// definition produced by the Renderer. Data is null when rendering failed.
type Spec struct {
	Type   Kind            `json:"type"`
	Column string          `json:"column"`
	Data   json.RawMessage `json:"data"`
}

// Request is the slice of the table a chart is drawn from.
type Request struct {
	Kind   Kind
	Title  string
	Column string
	// Values feeds histograms and boxplots.
	Values []float64
	// Frequencies feeds bar charts.
	Frequencies analysis.Frequencies
	// Names and Matrix feed the correlation heatmap.
	Names  []string
	Matrix [][]float64
}

// Renderer turns a Request into a serializable chart definition.
type Renderer interface {
	Render(ctx context.Context, req Request) (json.RawMessage, error)
}

// RenderError wraps a failure of the Renderer for one chart.
type RenderError struct {
	Kind   Kind
	Column string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s chart for %q: %v", e.Kind, e.Column, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Stage builds chart specs.
type Stage struct {
	renderer Renderer
	log      *zap.Logger
}

// NewStage returns a Stage using r. A nil logger discards output.
func NewStage(r Renderer, log *zap.Logger) *Stage {
	if r == nil {
		r = PlotlyRenderer{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Stage{renderer: r, log: log}
}

// Requests returns the charts to draw for t, in output order: histograms and
// then boxplots for the first numeric columns, one heatmap when there are at
// least two numeric columns, and bar charts for the first text columns.
func Requests(t *table.Table) []Request {
	numeric := t.ByKind(table.Numeric)
	text := t.ByKind(table.Text)

	first := numeric
	if len(first) > MaxNumeric {
		first = first[:MaxNumeric]
	}
	var out []Request
	for _, c := range first {
		out = append(out, Request{Kind: Histogram, Title: "Distribution of " + c.Name, Column: c.Name, Values: c.Values()})
	}
	for _, c := range first {
		out = append(out, Request{Kind: Boxplot, Title: "Boxplot of " + c.Name, Column: c.Name, Values: c.Values()})
	}
	if len(numeric) >= 2 {
		names, m := analysis.Pearson(numeric)
		out = append(out, Request{Kind: Heatmap, Title: "Correlation Heatmap", Column: CorrelationTarget, Names: names, Matrix: m})
	}
	if len(text) > MaxText {
		text = text[:MaxText]
	}
	for _, c := range text {
		out = append(out, Request{
			Kind:        Bar,
			Title:       fmt.Sprintf("Top %d Values in %s", BarTopValues, c.Name),
			Column:      c.Name,
			Frequencies: analysis.TopValues(c, BarTopValues),
		})
	}
	return out
}

// Build renders every requested chart. A render failure keeps the spec with
// a null payload and is logged.
func (s *Stage) Build(ctx context.Context, t *table.Table) []Spec {
	reqs := Requests(t)
	specs := make([]Spec, 0, len(reqs))
	for _, req := range reqs {
		spec := Spec{Type: req.Kind, Column: req.Column}
		data, err := s.render(ctx, req)
		if err != nil {
			rerr := &RenderError{Kind: req.Kind, Column: req.Column, Err: err}
			s.log.Warn("charts: render failed", zap.Error(rerr))
		} else {
			spec.Data = data
		}
		specs = append(specs, spec)
	}
	return specs
}

// render calls the renderer, turning a panic into an error.
func (s *Stage) render(ctx context.Context, req Request) (data json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panicked: %v", r)
		}
	}()
	return s.renderer.Render(ctx, req)
}
