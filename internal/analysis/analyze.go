// Package analysis computes the descriptive statistics, correlation matrix,
// column profiles and quality summary of a cleaned table.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/bouyassine11/AnalytIQ/internal/table"
)

// Overview holds the table shape and a memory estimate.
type Overview struct {
	Rows        int      `json:"rows"`
	Columns     int      `json:"columns"`
	ColumnNames []string `json:"column_names"`
	MemoryUsage string   `json:"memory_usage"`
}

// Summary is the describe() row set of one numeric column.
type Summary struct {
	Count  Float `json:"count"`
	Mean   Float `json:"mean"`
	Std    Float `json:"std"`
	Min    Float `json:"min"`
	Q1     Float `json:"25%"`
	Median Float `json:"50%"`
	Q3     Float `json:"75%"`
	Max    Float `json:"max"`
}

// ColumnProfile describes one column. Numeric columns fill the moment
// fields; text columns fill TopValues.
type ColumnProfile struct {
	DType        string      `json:"dtype"`
	UniqueValues int         `json:"unique_values"`
	MissingCount int         `json:"missing_count"`
	Skewness     *Float      `json:"skewness,omitempty"`
	Kurtosis     *Float      `json:"kurtosis,omitempty"`
	Mean         *Float      `json:"mean,omitempty"`
	Median       *Float      `json:"median,omitempty"`
	TopValues    Frequencies `json:"top_values,omitempty"`
}

// Quality summarizes completeness and column classification.
type Quality struct {
	Completeness       Float `json:"completeness"`
	DuplicateRows      int   `json:"duplicate_rows"`
	NumericColumns     int   `json:"numeric_columns"`
	CategoricalColumns int   `json:"categorical_columns"`
}

// Result is the full analysis of one table.
type Result struct {
	Overview          Overview                    `json:"overview"`
	SummaryStatistics map[string]Summary          `json:"summary_statistics"`
	CorrelationMatrix map[string]map[string]Float `json:"correlation_matrix"`
	ColumnAnalysis    map[string]ColumnProfile    `json:"column_analysis"`
	DataQuality       Quality                     `json:"data_quality"`
}

// Analyze computes the Result of t. It never fails; degenerate input yields
// empty or zeroed sections.
func Analyze(t *table.Table) *Result {
	res := &Result{
		Overview: Overview{
			Rows:        t.Rows(),
			Columns:     t.NumCols(),
			ColumnNames: t.Names(),
			MemoryUsage: fmt.Sprintf("%.2f MB", float64(MemoryBytes(t))/(1024*1024)),
		},
		SummaryStatistics: map[string]Summary{},
		CorrelationMatrix: map[string]map[string]Float{},
		ColumnAnalysis:    map[string]ColumnProfile{},
	}
	numeric := t.ByKind(table.Numeric)
	for _, c := range numeric {
		res.SummaryStatistics[c.Name] = Describe(c)
	}
	if len(numeric) >= 2 {
		names, m := Pearson(numeric)
		for i, a := range names {
			row := make(map[string]Float, len(names))
			for j, b := range names {
				row[b] = Float(m[i][j])
			}
			res.CorrelationMatrix[a] = row
		}
	}
	for _, c := range t.Columns {
		res.ColumnAnalysis[c.Name] = Profile(c)
	}
	res.DataQuality = Quality{
		Completeness:       Float(Completeness(t)),
		DuplicateRows:      t.CountDuplicateRows(),
		NumericColumns:     len(numeric),
		CategoricalColumns: len(t.ByKind(table.Text)),
	}
	return res
}

// Describe returns count, sample mean and std, min, quartiles and max of the
// non-null values of a numeric column.
func Describe(c *table.Column) Summary {
	sorted := c.Sorted()
	n := len(sorted)
	s := Summary{Count: Float(n)}
	if n == 0 {
		nan := Float(math.NaN())
		s.Mean, s.Std, s.Min, s.Q1, s.Median, s.Q3, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}
	mean, std := stat.MeanStdDev(sorted, nil)
	s.Mean = Float(mean)
	s.Std = Float(std)
	if n < 2 {
		s.Std = Float(math.NaN())
	}
	s.Min = Float(sorted[0])
	s.Q1 = Float(table.Quantile(sorted, 0.25))
	s.Median = Float(table.Quantile(sorted, 0.5))
	s.Q3 = Float(table.Quantile(sorted, 0.75))
	s.Max = Float(sorted[n-1])
	return s
}

// Pearson returns the pairwise Pearson correlation matrix of the given
// numeric columns. Rows where either column is missing are skipped for that
// pair. The diagonal is 1 for columns with non-zero variance and NaN otherwise.
func Pearson(cols []*table.Column) ([]string, [][]float64) {
	names := make([]string, len(cols))
	m := make([][]float64, len(cols))
	for i, c := range cols {
		names[i] = c.Name
		m[i] = make([]float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			x, y := pairwise(cols[i], cols[j])
			var r float64
			switch {
			case i == j:
				r = math.NaN()
				if len(x) > 1 && !constant(x) {
					r = 1
				}
			case len(x) < 2 || constant(x) || constant(y):
				r = math.NaN()
			default:
				r = stat.Correlation(x, y, nil)
				r = math.Max(-1, math.Min(1, r))
			}
			m[i][j] = r
			m[j][i] = r
		}
	}
	return names, m
}

func pairwise(a, b *table.Column) (x, y []float64) {
	for i := 0; i < a.Len(); i++ {
		if a.Null[i] || b.Null[i] {
			continue
		}
		x = append(x, a.Nums[i])
		y = append(y, b.Nums[i])
	}
	return x, y
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

// Profile returns the per-column analysis entry.
func Profile(c *table.Column) ColumnProfile {
	p := ColumnProfile{
		DType:        c.DType(),
		UniqueValues: uniqueCount(c),
		MissingCount: c.NullCount(),
	}
	if c.Kind != table.Numeric {
		p.TopValues = TopValues(c, 5)
		return p
	}
	vals := c.Values()
	p.Skewness = ptr(skewness(vals))
	p.Kurtosis = ptr(kurtosis(vals))
	if len(vals) == 0 {
		p.Mean, p.Median = ptr(math.NaN()), ptr(math.NaN())
		return p
	}
	p.Mean = ptr(stat.Mean(vals, nil))
	med, err := stats.Median(vals)
	if err != nil {
		med = math.NaN()
	}
	p.Median = ptr(med)
	return p
}

// skewness is the adjusted Fisher-Pearson coefficient. It needs three values
// and is 0 for a constant column.
func skewness(x []float64) float64 {
	if len(x) < 3 {
		return math.NaN()
	}
	if constant(x) {
		return 0
	}
	return stat.Skew(x, nil)
}

// kurtosis is the bias-corrected excess kurtosis. It needs four values and
// is 0 for a constant column.
func kurtosis(x []float64) float64 {
	if len(x) < 4 {
		return math.NaN()
	}
	if constant(x) {
		return 0
	}
	return stat.ExKurtosis(x, nil)
}

func uniqueCount(c *table.Column) int {
	if c.Kind == table.Numeric {
		seen := map[float64]struct{}{}
		for i, v := range c.Nums {
			if c.Null[i] {
				continue
			}
			seen[v] = struct{}{}
		}
		return len(seen)
	}
	seen := map[string]struct{}{}
	for i, s := range c.Strs {
		if !c.Null[i] {
			seen[s] = struct{}{}
		}
	}
	return len(seen)
}

// TopValues returns up to n most frequent non-null values of c, most frequent
// first. Equal counts keep the order in which values first appear.
func TopValues(c *table.Column, n int) Frequencies {
	counts := map[string]int{}
	var order []string
	for i := 0; i < c.Len(); i++ {
		if c.Null[i] {
			continue
		}
		v := c.String(i)
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	out := make(Frequencies, 0, len(order))
	for _, v := range order {
		out = append(out, ValueCount{Value: v, Count: counts[v]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Completeness is the percentage of non-null cells. A table without cells is
// complete.
func Completeness(t *table.Table) float64 {
	cells := t.Rows() * t.NumCols()
	if cells == 0 {
		return 100
	}
	return (1 - float64(t.NullCells())/float64(cells)) * 100
}

// MemoryBytes estimates the in-memory footprint of t the way a dataframe
// with a range index and object text columns would report it.
func MemoryBytes(t *table.Table) int64 {
	total := int64(128)
	for _, c := range t.Columns {
		if c.Kind == table.Numeric {
			total += int64(8 * c.Len())
			continue
		}
		for i, s := range c.Strs {
			total += 8
			if c.Null[i] {
				total += 24
				continue
			}
			total += strSize(s)
		}
	}
	return total
}

// strSize approximates a boxed string: a fixed header plus 1, 2 or 4 bytes
// per character depending on the widest rune.
func strSize(s string) int64 {
	n := int64(utf8.RuneCountInString(s))
	var maxRune rune
	for _, r := range s {
		if r > maxRune {
			maxRune = r
		}
	}
	switch {
	case maxRune < 0x80:
		return 49 + n
	case maxRune < 0x100:
		return 73 + n
	case maxRune < 0x10000:
		return 74 + 2*n
	default:
		return 76 + 4*n
	}
}
