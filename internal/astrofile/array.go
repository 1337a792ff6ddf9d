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

package astrofile

import (
	"fmt"
	"math"
	"strconv"
)

// Array is a row-major block of samples. Shape[0] is the row count; any
// further dimensions are per-row components.
type Array struct {
	Data  []float64
	Shape []int
}

// NewVector returns a one-dimensional array over data.
func NewVector(data []float64) *Array {
	return &Array{Data: data, Shape: []int{len(data)}}
}

// NDim returns the number of dimensions.
func (a *Array) NDim() int { return len(a.Shape) }

// Rows returns the size of the first dimension.
func (a *Array) Rows() int {
	if len(a.Shape) == 0 {
		return len(a.Data)
	}
	return a.Shape[0]
}

// Width returns the number of components per row.
func (a *Array) Width() int {
	w := 1
	if len(a.Shape) < 2 {
		return w
	}
	for _, d := range a.Shape[1:] {
		w *= d
	}
	return w
}

// Component returns the i-th component of every row. For a one-dimensional
// array only component 0 exists and the data is returned as is.
func (a *Array) Component(i int) ([]float64, error) {
	w := a.Width()
	if i < 0 || i >= w {
		return nil, fmt.Errorf("component %d out of range [0,%d)", i, w)
	}
	if w == 1 {
		return a.Data, nil
	}
	n := a.Rows()
	out := make([]float64, n)
	for r := range n {
		out[r] = a.Data[r*w+i]
	}
	return out, nil
}

// Scale multiplies every sample by f in place.
func (a *Array) Scale(f float64) {
	if f == 1 {
		return
	}
	for i := range a.Data {
		a.Data[i] *= f
	}
}

func axisComponent(key string) (int, bool) {
	switch key {
	case "x":
		return 0, true
	case "y":
		return 1, true
	case "z":
		return 2, true
	}
	return 0, false
}

func shapeString(shape []int) string {
	s := "["
	for i, d := range shape {
		if i > 0 {
			s += " "
		}
		s += strconv.Itoa(d)
	}
	return s + "]"
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
