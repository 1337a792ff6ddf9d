// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package table is the columnar working representation that sits between
// building a file's rows and filtering them.
package table

import (
	"fmt"
)

// Table is an ordered set of named columns of equal length. Row order has no
// meaning beyond being consistent across columns.
type Table struct {
	cols   []Column
	byName map[string]int
}

// New returns a table holding cols. All columns must have the same length
// and distinct names.
func New(cols ...Column) (*Table, error) {
	t := &Table{byName: make(map[string]int, len(cols))}
	for _, c := range cols {
		if err := t.Add(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Add appends c as the last column.
func (t *Table) Add(c Column) error {
	if t.byName == nil {
		t.byName = make(map[string]int)
	}
	if _, ok := t.byName[c.Name()]; ok {
		return fmt.Errorf("duplicate column %q", c.Name())
	}
	if len(t.cols) > 0 && c.Len() != t.NumRows() {
		return fmt.Errorf("column %q has %d rows, table has %d", c.Name(), c.Len(), t.NumRows())
	}
	t.byName[c.Name()] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// NumRows returns the shared column length.
func (t *Table) NumRows() int {
	if t == nil || len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.cols)
}

// Columns returns the columns in order. The slice must not be modified.
func (t *Table) Columns() []Column {
	return t.cols
}

// Names returns column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name()
	}
	return names
}

// Column looks a column up by name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Row returns row i with every cell widened to float64.
func (t *Table) Row(i int) []float64 {
	row := make([]float64, len(t.cols))
	for j, c := range t.cols {
		row[j] = c.Float64(i)
	}
	return row
}

// Take returns a new table holding the rows at idx across every column.
func (t *Table) Take(idx []int) *Table {
	out := &Table{
		cols:   make([]Column, len(t.cols)),
		byName: make(map[string]int, len(t.cols)),
	}
	for i, c := range t.cols {
		out.cols[i] = c.Take(idx)
		out.byName[c.Name()] = i
	}
	return out
}

// Release drops every column's storage. The table is empty afterward.
func (t *Table) Release() {
	if t == nil {
		return
	}
	for _, c := range t.cols {
		c.Release()
	}
	t.cols = nil
	t.byName = nil
}
