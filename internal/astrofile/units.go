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
	"math"
)

// unitScaling describes how a comoving Gadget quantity converts to physical
// units: value * a^AExp * h^HExp.
type unitScaling struct {
	Label string
	AExp  float64
	HExp  float64
}

var defaultUnits = map[string]unitScaling{
	"pos":    {Label: "kpc", AExp: 1, HExp: -1},
	"vel":    {Label: "km s**-1", AExp: 0.5},
	"mass":   {Label: "1e10 Msol", HExp: -1},
	"rho":    {Label: "1e10 Msol kpc**-3", AExp: -3, HExp: 2},
	"u":      {Label: "km**2 s**-2"},
	"smooth": {Label: "kpc", AExp: 1, HExp: -1},
	"phi":    {Label: "km**2 s**-2", AExp: -1},
	"temp":   {Label: "K"},
	"sfr":    {Label: "Msol yr**-1"},
	"metals": {},
	"iord":   {},
}

// Cosmology holds the snapshot header values used for unit conversion.
type Cosmology struct {
	ScaleFactor float64
	HubbleParam float64
}

// DefaultCosmology converts nothing.
var DefaultCosmology = Cosmology{ScaleFactor: 1, HubbleParam: 1}

// Factor returns the multiplier taking a comoving value with the given
// exponents to physical units.
func (c Cosmology) Factor(aExp, hExp float64) float64 {
	f := 1.0
	if aExp != 0 && c.ScaleFactor > 0 {
		f *= math.Pow(c.ScaleFactor, aExp)
	}
	if hExp != 0 && c.HubbleParam > 0 {
		f *= math.Pow(c.HubbleParam, hExp)
	}
	return f
}

func cosmologyFromHeader(attrs map[string]float64) Cosmology {
	c := DefaultCosmology
	if a, ok := attrs["Time"]; ok && a > 0 {
		c.ScaleFactor = a
	} else if z, ok := attrs["Redshift"]; ok && z > -1 {
		c.ScaleFactor = 1 / (1 + z)
	}
	if h, ok := attrs["HubbleParam"]; ok && h > 0 {
		c.HubbleParam = h
	}
	return c
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case []float64:
		if len(x) == 1 {
			return x[0], true
		}
	case []float32:
		if len(x) == 1 {
			return float64(x[0]), true
		}
	}
	return 0, false
}

func toString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []string:
		if len(x) == 1 {
			return x[0], true
		}
	}
	return "", false
}
