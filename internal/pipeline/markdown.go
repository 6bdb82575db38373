package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/bouyassine11/AnalytIQ/internal/analysis"
)

// strongCorrelation is the |r| from which a pair is listed in the report.
const strongCorrelation = 0.5

// Markdown renders a compact report suitable for the terminal or a file.
func (r *Result) Markdown() string {
	var b strings.Builder
	eda := r.EDAResults
	if eda == nil {
		eda = &analysis.Result{}
	}
	ov := eda.Overview
	b.WriteString("[DATASET SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Rows: %d\n", ov.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", ov.Columns))
	b.WriteString(fmt.Sprintf("Completeness: %.1f%%\n", float64(eda.DataQuality.Completeness)))
	if ov.MemoryUsage != "" {
		b.WriteString(fmt.Sprintf("Memory: %s\n", ov.MemoryUsage))
	}

	if rep := r.CleaningReport; rep != nil {
		b.WriteString("\n[CLEANING]\n")
		b.WriteString(fmt.Sprintf("Shape: %dx%d -> %dx%d\n",
			rep.OriginalShape.Rows, rep.OriginalShape.Columns, rep.FinalShape.Rows, rep.FinalShape.Columns))
		if len(rep.ActionsTaken) == 0 {
			b.WriteString("- no changes\n")
		}
		for _, a := range rep.ActionsTaken {
			b.WriteString("- " + a + "\n")
		}
		for _, name := range ov.ColumnNames {
			if n, ok := rep.OutliersDetected[name]; ok {
				b.WriteString(fmt.Sprintf("- %s: %d outliers outside 1.5*IQR\n", safe(name), n))
			}
		}
	}

	if len(ov.ColumnNames) > 0 {
		b.WriteString("\n[SCHEMA]\n")
	}
	for _, name := range ov.ColumnNames {
		p := eda.ColumnAnalysis[name]
		b.WriteString(fmt.Sprintf("- %s: %s (unique %d, missing %d)", safe(name), p.DType, p.UniqueValues, p.MissingCount))
		if s, ok := eda.SummaryStatistics[name]; ok && !s.Mean.IsNaN() {
			b.WriteString(fmt.Sprintf(" - min %.4g, max %.4g, mean %.4g, median %.4g",
				float64(s.Min), float64(s.Max), float64(s.Mean), float64(s.Median)))
			if !s.Std.IsNaN() {
				b.WriteString(fmt.Sprintf(", std %.4g", float64(s.Std)))
			}
		}
		if len(p.TopValues) > 0 {
			b.WriteString(" - top: ")
			for i, vc := range p.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safe(vc.Value), vc.Count))
			}
		}
		b.WriteString("\n")
	}

	if pairs := strongPairs(eda); len(pairs) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range pairs {
			b.WriteString(p + "\n")
		}
	}

	if len(r.Visualizations) > 0 {
		b.WriteString("\n[CHARTS]\n")
		for _, s := range r.Visualizations {
			line := fmt.Sprintf("- %s: %s", s.Type, safe(s.Column))
			if s.Data == nil {
				line += " (not rendered)"
			}
			b.WriteString(line + "\n")
		}
	}

	if r.AIInsights != "" {
		b.WriteString(fmt.Sprintf("\n[INSIGHTS] (%s)\n", r.InsightSource))
		b.WriteString(r.AIInsights)
		b.WriteString("\n")
	}
	return b.String()
}

func strongPairs(eda *analysis.Result) []string {
	var out []string
	names := eda.Overview.ColumnNames
	for i, a := range names {
		row, ok := eda.CorrelationMatrix[a]
		if !ok {
			continue
		}
		for _, c := range names[i+1:] {
			v, ok := row[c]
			if !ok || v.IsNaN() || math.Abs(float64(v)) < strongCorrelation {
				continue
			}
			out = append(out, fmt.Sprintf("- %s ~ %s: r=%.2f", safe(a), safe(c), float64(v)))
		}
	}
	return out
}

func safe(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
