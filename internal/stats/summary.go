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

package stats

import (
	"math"

	"github.com/DataDog/sketches-go/ddsketch"
)

const sketchRelativeAccuracy = 0.01

// summary is the finite-value range of one channel plus robust bounds.
type summary struct {
	Min   float64
	Max   float64
	P01   float64
	P99   float64
	Count int
}

// summarize scans data once. ok is false when no sample is finite.
func summarize(data Series) (s summary, ok bool) {
	sketch, err := ddsketch.NewDefaultDDSketch(sketchRelativeAccuracy)
	if err != nil {
		sketch = nil
	}

	s.Min = math.Inf(1)
	s.Max = math.Inf(-1)
	for i := 0; i < data.Len(); i++ {
		v := data.Float64(i)
		if !finite(v) {
			continue
		}
		s.Count++
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		if sketch != nil {
			_ = sketch.Add(v)
		}
	}
	if s.Count == 0 {
		return summary{}, false
	}

	s.P01, s.P99 = s.Min, s.Max
	if sketch != nil {
		if q, err := sketch.GetValueAtQuantile(0.01); err == nil {
			s.P01 = clamp(q, s.Min, s.Max)
		}
		if q, err := sketch.GetValueAtQuantile(0.99); err == nil {
			s.P99 = clamp(q, s.Min, s.Max)
		}
	}
	return s, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
