package table

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/xxh3"
)

// DuplicateRows marks every row that repeats an earlier row across all
// columns. Missing cells compare equal to each other.
func (t *Table) DuplicateRows() []bool {
	n := t.Rows()
	dup := make([]bool, n)
	buckets := make(map[uint64][]int, n)
	var buf []byte
	for i := 0; i < n; i++ {
		buf = t.appendRowKey(buf[:0], i)
		h := xxh3.Hash(buf)
		for _, j := range buckets[h] {
			if t.rowsEqual(i, j) {
				dup[i] = true
				break
			}
		}
		if !dup[i] {
			buckets[h] = append(buckets[h], i)
		}
	}
	return dup
}

// CountDuplicateRows returns how many rows repeat an earlier row.
func (t *Table) CountDuplicateRows() int {
	n := 0
	for _, d := range t.DuplicateRows() {
		if d {
			n++
		}
	}
	return n
}

// DropDuplicateRows returns a new table without repeated rows, keeping the
// first occurrence, and the number of rows removed.
func (t *Table) DropDuplicateRows() (*Table, int) {
	dup := t.DuplicateRows()
	keep := make([]int, 0, len(dup))
	for i, d := range dup {
		if !d {
			keep = append(keep, i)
		}
	}
	return t.SelectRows(keep), len(dup) - len(keep)
}

func (t *Table) appendRowKey(buf []byte, row int) []byte {
	for _, c := range t.Columns {
		if c.Null[row] {
			buf = append(buf, 0)
			continue
		}
		buf = append(buf, 1)
		if c.Kind == Numeric {
			v := c.Nums[row]
			if v == 0 {
				v = 0 // fold -0
			}
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
			continue
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.Strs[row])))
		buf = append(buf, c.Strs[row]...)
	}
	return buf
}

func (t *Table) rowsEqual(a, b int) bool {
	for _, c := range t.Columns {
		if c.Null[a] != c.Null[b] {
			return false
		}
		if c.Null[a] {
			continue
		}
		if c.Kind == Numeric {
			if c.Nums[a] != c.Nums[b] {
				return false
			}
		} else if c.Strs[a] != c.Strs[b] {
			return false
		}
	}
	return true
}
