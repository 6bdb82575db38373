package table

import (
	"math"
	"sort"
)

// Sorted returns the non-null numeric values of c in ascending order.
func (c *Column) Sorted() []float64 {
	vals := c.Values()
	sort.Float64s(vals)
	return vals
}

// Quantile interpolates linearly between the closest ranks of an ascending
// slice. It returns NaN for an empty slice.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Fences returns the Tukey fences Q1-1.5*IQR and Q3+1.5*IQR of an ascending slice.
func Fences(sorted []float64) (lower, upper float64) {
	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}
