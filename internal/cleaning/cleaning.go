// Package cleaning imputes missing cells, removes duplicate rows, trims text
// and counts IQR outliers, reporting every change it makes.
package cleaning

import (
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/bouyassine11/AnalytIQ/internal/table"
)

// Shape is a row and column count.
type Shape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// Report describes what Clean changed.
type Report struct {
	OriginalShape     Shape          `json:"original_shape"`
	FinalShape        Shape          `json:"final_shape"`
	MissingValues     map[string]int `json:"missing_values"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
	OutliersDetected  map[string]int `json:"outliers_detected"`
	ActionsTaken      []string       `json:"actions_taken"`
}

// Clean runs imputation, deduplication, trimming and outlier detection in that
// order. The input table is not modified.
func Clean(src *table.Table) (*table.Table, *Report) {
	rep := &Report{
		OriginalShape:    Shape{Rows: src.Rows(), Columns: src.NumCols()},
		MissingValues:    map[string]int{},
		OutliersDetected: map[string]int{},
		ActionsTaken:     []string{},
	}

	t := impute(src, rep)

	t, removed := t.DropDuplicateRows()
	rep.DuplicatesRemoved = removed
	if removed > 0 {
		rep.ActionsTaken = append(rep.ActionsTaken, fmt.Sprintf("Removed %d duplicates", removed))
	}

	t = trim(t)

	for _, c := range t.ByKind(table.Numeric) {
		if n := CountOutliers(c); n > 0 {
			rep.OutliersDetected[c.Name] = n
		}
	}

	rep.FinalShape = Shape{Rows: t.Rows(), Columns: t.NumCols()}
	return t, rep
}

func impute(src *table.Table, rep *Report) *table.Table {
	t := src.Clone()
	for _, c := range t.Columns {
		missing := c.NullCount()
		if missing == 0 {
			continue
		}
		rep.MissingValues[c.Name] = missing
		switch c.Kind {
		case table.Numeric:
			med, err := stats.Median(c.Values())
			if err != nil {
				continue
			}
			for i := range c.Null {
				if c.Null[i] {
					c.Nums[i] = med
					c.Null[i] = false
				}
			}
			rep.ActionsTaken = append(rep.ActionsTaken, fmt.Sprintf("Filled %s with median", c.Name))
		default:
			mode, ok := Mode(c)
			if !ok {
				continue
			}
			for i := range c.Null {
				if c.Null[i] {
					c.Strs[i] = mode
					c.Null[i] = false
				}
			}
			rep.ActionsTaken = append(rep.ActionsTaken, fmt.Sprintf("Filled %s with mode", c.Name))
		}
	}
	return t
}

// Mode returns the most frequent non-null value of a text column. Ties go to
// the lexicographically smallest value. ok is false when every cell is null.
func Mode(c *table.Column) (mode string, ok bool) {
	counts := map[string]int{}
	for i, s := range c.Strs {
		if !c.Null[i] {
			counts[s]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best, true
}

func trim(src *table.Table) *table.Table {
	t := &table.Table{Columns: make([]*table.Column, len(src.Columns))}
	for i, c := range src.Columns {
		if c.Kind != table.Text {
			t.Columns[i] = c
			continue
		}
		cp := c.Clone()
		for j, s := range cp.Strs {
			cp.Strs[j] = strings.TrimSpace(s)
		}
		t.Columns[i] = cp
	}
	return t
}

// CountOutliers counts values outside the Tukey fences of the column. Values
// are only counted, never removed.
func CountOutliers(c *table.Column) int {
	sorted := c.Sorted()
	if len(sorted) == 0 {
		return 0
	}
	lower, upper := table.Fences(sorted)
	n := 0
	for _, v := range sorted {
		if v < lower || v > upper {
			n++
		}
	}
	return n
}
