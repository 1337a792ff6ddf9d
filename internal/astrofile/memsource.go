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
	"slices"

	"github.com/cardinalhq/astrovisio/internal/helpers"
)

// MemParticles is an in-memory particle Source. Keys are reported in the
// order they were added; x, y and z derive from "pos" as on disk.
type MemParticles struct {
	keys   []string
	arrays map[string]*Array
	units  map[string]string
	closed bool
}

var _ Source = (*MemParticles)(nil)

// NewMemParticles returns an empty particle source.
func NewMemParticles() *MemParticles {
	return &MemParticles{arrays: map[string]*Array{}, units: map[string]string{}}
}

// Add registers key with the given array and unit label.
func (m *MemParticles) Add(key, unit string, a *Array) *MemParticles {
	if _, ok := m.arrays[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.arrays[key] = a
	m.units[key] = unit
	return m
}

// Closed reports whether Close has been called.
func (m *MemParticles) Closed() bool { return m.closed }

func (m *MemParticles) Family() helpers.FileFamily { return helpers.FamilyParticle }

func (m *MemParticles) Len() int {
	if len(m.keys) == 0 {
		return 0
	}
	return m.arrays[m.keys[0]].Rows()
}

func (m *MemParticles) Keys() []string { return slices.Clone(m.keys) }

func (m *MemParticles) Shape(key string) ([]int, error) {
	if _, ok := axisComponent(key); ok {
		if _, ok := m.arrays["pos"]; ok {
			return []int{m.Len()}, nil
		}
	}
	a, ok := m.arrays[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return slices.Clone(a.Shape), nil
}

func (m *MemParticles) Column(key string) (*Array, error) {
	if m.closed {
		return nil, fmt.Errorf("source closed")
	}
	if comp, ok := axisComponent(key); ok {
		if pos, ok := m.arrays["pos"]; ok {
			data, err := pos.Component(comp)
			if err != nil {
				return nil, err
			}
			return NewVector(data), nil
		}
	}
	a, ok := m.arrays[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return a, nil
}

func (m *MemParticles) Unit(key string) string {
	if _, ok := axisComponent(key); ok {
		if u, ok := m.units["pos"]; ok {
			return u
		}
	}
	return m.units[key]
}

func (m *MemParticles) Close() error {
	m.closed = true
	return nil
}

// MemGrid is an in-memory grid SliceSource. Data is laid out z-major with x
// varying fastest.
type MemGrid struct {
	nx, ny, nz int
	data       []float64
	wide       bool
	unit       string
	closed     bool
}

var _ SliceSource = (*MemGrid)(nil)

// NewMemGrid returns a grid over data, which must hold nx*ny*nz samples.
func NewMemGrid(nx, ny, nz int, data []float64, wide bool) (*MemGrid, error) {
	if len(data) != nx*ny*nz {
		return nil, fmt.Errorf("grid %dx%dx%d needs %d samples, got %d", nx, ny, nz, nx*ny*nz, len(data))
	}
	return &MemGrid{nx: nx, ny: ny, nz: nz, data: data, wide: wide}, nil
}

// Closed reports whether Close has been called.
func (g *MemGrid) Closed() bool { return g.closed }

func (g *MemGrid) Family() helpers.FileFamily { return helpers.FamilyGrid }

func (g *MemGrid) Len() int { return len(g.data) }

func (g *MemGrid) Keys() []string { return GridKeys() }

func (g *MemGrid) Dims() (nx, ny, nz int) { return g.nx, g.ny, g.nz }

func (g *MemGrid) NumSlices() int { return g.nz }

func (g *MemGrid) WideValues() bool { return g.wide }

func (g *MemGrid) Shape(key string) ([]int, error) {
	switch key {
	case "value":
		return []int{g.nz, g.ny, g.nx}, nil
	case "x", "y", "z":
		return []int{len(g.data)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

func (g *MemGrid) Slice(z int) (*Array, error) {
	if g.closed {
		return nil, fmt.Errorf("source closed")
	}
	if z < 0 || z >= g.nz {
		return nil, fmt.Errorf("slice %d out of range [0,%d)", z, g.nz)
	}
	plane := g.nx * g.ny
	out := make([]float64, plane)
	copy(out, g.data[z*plane:(z+1)*plane])
	return &Array{Data: out, Shape: []int{g.ny, g.nx}}, nil
}

func (g *MemGrid) Column(key string) (*Array, error) {
	switch key {
	case "value":
		return &Array{Data: slices.Clone(g.data), Shape: []int{g.nz, g.ny, g.nx}}, nil
	case "x", "y", "z":
		return NewVector(PixelIndices(key, g.nx, g.ny, g.nz)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

func (g *MemGrid) Unit(key string) string {
	if key == "value" {
		return g.unit
	}
	if _, ok := axisComponent(key); ok {
		return "pixel"
	}
	return ""
}

// SetUnit sets the value column's unit label.
func (g *MemGrid) SetUnit(unit string) *MemGrid {
	g.unit = unit
	return g
}

func (g *MemGrid) Close() error {
	g.closed = true
	return nil
}
