// Package table holds the in-memory column store shared by every pipeline stage.
package table

import (
	"math"
	"strconv"
)

// Kind classifies a column as numeric or text.
type Kind int

const (
	Text Kind = iota
	Numeric
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "text"
}

// Column is a named, uniformly typed sequence of cells. Nums is used for
// numeric columns and Strs for text columns; Null marks missing cells in both.
type Column struct {
	Name string
	Kind Kind
	// Integral is true when the column was loaded as whole numbers with no
	// missing cells. It only affects the reported dtype.
	Integral bool
	Nums     []float64
	Strs     []string
	Null     []bool
}

// Len returns the number of cells in the column.
func (c *Column) Len() int { return len(c.Null) }

// IsNull reports whether cell i is missing.
func (c *Column) IsNull(i int) bool { return c.Null[i] }

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, null := range c.Null {
		if null {
			n++
		}
	}
	return n
}

// DType returns the dtype label used in reports: int64, float64 or object.
func (c *Column) DType() string {
	switch {
	case c.Kind == Text:
		return "object"
	case c.Integral:
		return "int64"
	default:
		return "float64"
	}
}

// Values returns the non-null numeric values in row order.
func (c *Column) Values() []float64 {
	out := make([]float64, 0, len(c.Nums))
	for i, v := range c.Nums {
		if !c.Null[i] {
			out = append(out, v)
		}
	}
	return out
}

// String renders cell i for display. Missing cells render as an empty string.
func (c *Column) String(i int) string {
	if c.Null[i] {
		return ""
	}
	if c.Kind == Numeric {
		return strconv.FormatFloat(c.Nums[i], 'g', -1, 64)
	}
	return c.Strs[i]
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Integral: c.Integral}
	out.Null = append([]bool(nil), c.Null...)
	if c.Kind == Numeric {
		out.Nums = append([]float64(nil), c.Nums...)
	} else {
		out.Strs = append([]string(nil), c.Strs...)
	}
	return out
}

// take returns a new column holding only the given rows.
func (c *Column) take(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Integral: c.Integral, Null: make([]bool, len(rows))}
	if c.Kind == Numeric {
		out.Nums = make([]float64, len(rows))
	} else {
		out.Strs = make([]string, len(rows))
	}
	for j, i := range rows {
		out.Null[j] = c.Null[i]
		if c.Kind == Numeric {
			out.Nums[j] = c.Nums[i]
		} else {
			out.Strs[j] = c.Strs[i]
		}
	}
	return out
}

// Table is an ordered set of equally long columns. Stages never modify a
// Table they receive; they build a new one with Clone or SelectRows.
type Table struct {
	Columns []*Column
}

// New builds a table from columns. All columns must have the same length.
func New(cols ...*Column) *Table {
	return &Table{Columns: cols}
}

// NumericColumn builds a numeric column. NaN values are treated as missing.
func NumericColumn(name string, vals []float64) *Column {
	c := &Column{Name: name, Kind: Numeric, Nums: make([]float64, len(vals)), Null: make([]bool, len(vals))}
	integral := true
	for i, v := range vals {
		if math.IsNaN(v) {
			c.Null[i] = true
			integral = false
			continue
		}
		c.Nums[i] = v
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			integral = false
		}
	}
	c.Integral = integral
	return c
}

// TextColumn builds a text column. Nil entries are missing cells.
func TextColumn(name string, vals []*string) *Column {
	c := &Column{Name: name, Kind: Text, Strs: make([]string, len(vals)), Null: make([]bool, len(vals))}
	for i, v := range vals {
		if v == nil {
			c.Null[i] = true
			continue
		}
		c.Strs[i] = *v
	}
	return c
}

// Rows returns the shared row count.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.Columns) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ByKind returns the columns of the given kind in table order.
func (t *Table) ByKind(k Kind) []*Column {
	var out []*Column
	for _, c := range t.Columns {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// NullCells returns the number of missing cells over the whole table.
func (t *Table) NullCells() int {
	n := 0
	for _, c := range t.Columns {
		n += c.NullCount()
	}
	return n
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = c.Clone()
	}
	return out
}

// SelectRows returns a new table holding the given rows in the given order.
func (t *Table) SelectRows(rows []int) *Table {
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = c.take(rows)
	}
	return out
}
