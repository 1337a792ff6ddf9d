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

package table

// Number is the set of element types a column may hold.
type Number interface {
	~uint16 | ~uint32 | ~int32 | ~float32 | ~float64
}

// Column is a named, typed sequence of values.
type Column interface {
	Name() string
	Len() int
	// Float64 returns element i widened to float64.
	Float64(i int) float64
	// SetZero overwrites element i with zero.
	SetZero(i int)
	// Take returns a new column holding the elements at idx, in order.
	Take(idx []int) Column
	// Release drops the column's storage.
	Release()
}

// Values is a Column backed by a Go slice.
type Values[T Number] struct {
	name string
	data []T
}

var (
	_ Column = (*Values[uint16])(nil)
	_ Column = (*Values[float32])(nil)
)

// NewValues returns an empty column with room for capacity elements.
func NewValues[T Number](name string, capacity int) *Values[T] {
	return &Values[T]{name: name, data: make([]T, 0, capacity)}
}

// FromSlice wraps data without copying it.
func FromSlice[T Number](name string, data []T) *Values[T] {
	return &Values[T]{name: name, data: data}
}

func (v *Values[T]) Name() string { return v.name }

func (v *Values[T]) Len() int { return len(v.data) }

func (v *Values[T]) Float64(i int) float64 { return float64(v.data[i]) }

func (v *Values[T]) SetZero(i int) {
	var zero T
	v.data[i] = zero
}

// Append adds elements to the end of the column.
func (v *Values[T]) Append(x ...T) {
	v.data = append(v.data, x...)
}

// Data exposes the backing slice.
func (v *Values[T]) Data() []T { return v.data }

func (v *Values[T]) Take(idx []int) Column {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = v.data[j]
	}
	return &Values[T]{name: v.name, data: out}
}

func (v *Values[T]) Release() {
	v.data = nil
}
