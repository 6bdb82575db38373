// Package pipeline runs the analysis stages over one CSV file and assembles
// the result record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bouyassine11/AnalytIQ/internal/analysis"
	"github.com/bouyassine11/AnalytIQ/internal/charts"
	"github.com/bouyassine11/AnalytIQ/internal/cleaning"
	"github.com/bouyassine11/AnalytIQ/internal/insight"
	"github.com/bouyassine11/AnalytIQ/internal/table"
)

// StatusCompleted is the status of every successful run.
const StatusCompleted = "completed"

// ErrStagePanic is returned when a stage panics.
var ErrStagePanic = errors.New("pipeline stage panicked")

// Result is the record produced by a successful run.
type Result struct {
	Status         string           `json:"status"`
	CleaningReport *cleaning.Report `json:"cleaning_report"`
	EDAResults     *analysis.Result `json:"eda_results"`
	Visualizations []charts.Spec    `json:"visualizations"`
	AIInsights     string           `json:"ai_insights"`
	InsightSource  insight.Source   `json:"insight_source"`
}

// Pipeline sequences the stages. It holds no per-run state and is safe for
// concurrent use.
type Pipeline struct {
	charts  *charts.Stage
	insight *insight.Stage
	log     *zap.Logger
}

// New returns a Pipeline. Nil stages get their defaults: the plotly renderer
// and an insight stage without a generator.
func New(ch *charts.Stage, in *insight.Stage, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if ch == nil {
		ch = charts.NewStage(nil, log)
	}
	if in == nil {
		in = insight.New(nil, insight.WithLogger(log))
	}
	return &Pipeline{charts: ch, insight: in, log: log}
}

// Run loads the CSV at path and runs every stage over it. A load failure is
// returned as *table.LoadError and no stage runs.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	t, err := table.Load(path)
	if err != nil {
		return nil, err
	}
	return p.RunTable(ctx, t)
}

// runStage calls fn and reports a panic inside it as an error. It runs inside
// the errgroup goroutine, where callers cannot recover.
func runStage(name string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrStagePanic, name, r)
		}
	}()
	fn()
	return nil
}

// RunTable runs the stages over an already loaded table.
func (p *Pipeline) RunTable(ctx context.Context, t *table.Table) (*Result, error) {
	start := time.Now()
	cleaned, rep := cleaning.Clean(t)

	var (
		eda   *analysis.Result
		specs []charts.Spec
	)
	// both branches only read the cleaned table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runStage("analysis", func() { eda = analysis.Analyze(cleaned) })
	})
	g.Go(func() error {
		return runStage("charts", func() { specs = p.charts.Build(gctx, cleaned) })
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	text, src := p.insight.Summarize(ctx, rep, eda)
	p.log.Debug("pipeline: run finished",
		zap.Int("rows", cleaned.Rows()),
		zap.Int("columns", cleaned.NumCols()),
		zap.Int("charts", len(specs)),
		zap.String("insight_source", string(src)),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		Status:         StatusCompleted,
		CleaningReport: rep,
		EDAResults:     eda,
		Visualizations: specs,
		AIInsights:     text,
		InsightSource:  src,
	}, nil
}
