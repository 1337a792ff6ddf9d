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

// Package variable holds the per-channel statistics discovered for a file and
// the caller-owned selection that decides what gets extracted from it.
package variable

import (
	"fmt"
	"strconv"
	"strings"
)

// Descriptor is the full-range statistics of one scalar channel. The i-th
// component of a vector quantity is its own descriptor named "<base>-<i>".
// Min and Max only consider finite samples.
type Descriptor struct {
	Name string  `json:"var_name" yaml:"var_name"`
	Unit string  `json:"unit" yaml:"unit"`
	Min  float64 `json:"thr_min" yaml:"thr_min"`
	Max  float64 `json:"thr_max" yaml:"thr_max"`

	// P01 and P99 are approximate 1st and 99th percentiles of the finite
	// samples. They are display hints and never widen or narrow Min/Max.
	P01 float64 `json:"p01" yaml:"p01"`
	P99 float64 `json:"p99" yaml:"p99"`
}

// HistogramBin is one equal-width bucket of a descriptor's histogram.
type HistogramBin struct {
	Index int     `json:"bin_index" yaml:"bin_index"`
	Min   float64 `json:"bin_min" yaml:"bin_min"`
	Max   float64 `json:"bin_max" yaml:"bin_max"`
	Count int     `json:"count" yaml:"count"`
}

// AxisRole is the spatial role a variable plays in the extracted table.
type AxisRole string

const (
	AxisNone AxisRole = ""
	AxisX    AxisRole = "x"
	AxisY    AxisRole = "y"
	AxisZ    AxisRole = "z"
)

// ParseAxisRole accepts "", "none", "x", "y" and "z" (case insensitive).
func ParseAxisRole(s string) (AxisRole, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return AxisNone, nil
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	default:
		return AxisNone, fmt.Errorf("unknown axis role %q", s)
	}
}

// IsSpatial reports whether the role is one of the three spatial axes.
func (r AxisRole) IsSpatial() bool {
	return r == AxisX || r == AxisY || r == AxisZ
}

func (r AxisRole) String() string {
	if r == AxisNone {
		return "none"
	}
	return string(r)
}

// SplitComponent splits a component name such as "vel-2" into its base key
// and index. ok is false for plain names.
func SplitComponent(name string) (base string, index int, ok bool) {
	i := strings.LastIndexByte(name, '-')
	if i <= 0 || i == len(name)-1 || name[i-1] == '-' {
		return name, 0, false
	}
	digits := name[i+1:]
	if strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return name, 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return name, 0, false
	}
	return name[:i], n, true
}

// ComponentName is the inverse of SplitComponent.
func ComponentName(base string, index int) string {
	return base + "-" + strconv.Itoa(index)
}
