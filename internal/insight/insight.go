// Package insight writes the natural-language summary of a pipeline run,
// either through a text generator or a deterministic fallback.
package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/bouyassine11/AnalytIQ/internal/ai"
	"github.com/bouyassine11/AnalytIQ/internal/analysis"
	"github.com/bouyassine11/AnalytIQ/internal/cleaning"
	"github.com/bouyassine11/AnalytIQ/internal/utils"
)

// DefaultTimeout bounds a single generator call.
const DefaultTimeout = 30 * time.Second

// ErrEmptyText is returned when a generator answers with blank text.
var ErrEmptyText = errors.New("generator returned empty text")

// Source tells which branch produced the text.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Generator produces text for a prompt. system may be empty.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Stage summarizes a run. The zero value is not usable; call New.
type Stage struct {
	gen          Generator
	timeout      time.Duration
	promptTokens int
	log          *zap.Logger
}

// Option configures a Stage.
type Option func(*Stage)

// WithTimeout sets the generator call timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Stage) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPromptTokens caps the prompt size in estimated tokens.
func WithPromptTokens(n int) Option {
	return func(s *Stage) {
		if n > 0 {
			s.promptTokens = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Stage) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a Stage. A nil generator always uses the fallback.
func New(gen Generator, opts ...Option) *Stage {
	s := &Stage{gen: gen, timeout: DefaultTimeout, promptTokens: 1024, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Summarize returns the insight text for a run. It never fails: generator
// errors, timeouts and blank answers yield the fallback text.
func (s *Stage) Summarize(ctx context.Context, rep *cleaning.Report, res *analysis.Result) (string, Source) {
	if s.gen == nil {
		return Fallback(rep, res), SourceFallback
	}
	prompt := utils.TruncateToTokenLimit(Prompt(rep, res), s.promptTokens)
	text, err := s.generate(ctx, prompt)
	if err != nil {
		if Expected(err) {
			s.log.Warn("insight: generator unavailable, using fallback", zap.Error(err))
		} else {
			s.log.Error("insight: unexpected generator failure, using fallback", zap.Error(err))
		}
		return Fallback(rep, res), SourceFallback
	}
	return text, SourceGenerated
}

func (s *Stage) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	text, err := s.gen.Generate(ctx, "", prompt)
	if err != nil {
		return "", err
	}
	// some text-generation endpoints echo the prompt
	text = strings.TrimSpace(strings.ReplaceAll(text, prompt, ""))
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

// Expected reports whether err is a known failure mode of the external
// generator as opposed to a programming error.
func Expected(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrEmptyText) ||
		ai.IsProviderError(err)
}

// Prompt builds the generator prompt from the run's reports.
func Prompt(rep *cleaning.Report, res *analysis.Result) string {
	return fmt.Sprintf(`You are a senior data analyst. Analyze this dataset and provide business insights.

Dataset Overview:
- Rows: %d
- Columns: %d
- Data Quality: %.1f%% complete

Data Cleaning:
- Missing values handled: %d columns
- Duplicates removed: %d
- Outliers detected: %d columns

Provide 3-5 key insights about data quality, patterns, and recommended next steps:`,
		res.Overview.Rows, res.Overview.Columns, float64(res.DataQuality.Completeness),
		len(rep.MissingValues), rep.DuplicatesRemoved, len(rep.OutliersDetected))
}

// Fallback composes the deterministic summary. Identical inputs always give
// identical text.
func Fallback(rep *cleaning.Report, res *analysis.Result) string {
	p := message.NewPrinter(language.English)
	parts := []string{
		p.Sprintf("Dataset contains %d rows and %d columns with %.1f%% data completeness.",
			res.Overview.Rows, res.Overview.Columns, float64(res.DataQuality.Completeness)),
	}
	if n := len(rep.MissingValues); n > 0 {
		parts = append(parts, p.Sprintf("Data cleaning addressed missing values in %d columns using intelligent imputation.", n))
	}
	if rep.DuplicatesRemoved > 0 {
		parts = append(parts, p.Sprintf("Removed %d duplicate records to improve data quality.", rep.DuplicatesRemoved))
	}
	if n := len(rep.OutliersDetected); n > 0 {
		parts = append(parts, p.Sprintf("Detected outliers in %d numeric columns - review for data quality or genuine anomalies.", n))
	}
	if len(res.CorrelationMatrix) > 0 {
		parts = append(parts, "Correlation analysis available - examine relationships between numeric variables for predictive modeling opportunities.")
	}
	parts = append(parts, "Recommended next steps: Consider machine learning models, time-series forecasting, or business intelligence dashboards based on your objectives.")
	return strings.Join(parts, "\n\n")
}
