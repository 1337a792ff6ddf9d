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
	"github.com/cardinalhq/astrovisio/internal/variable"
)

// DefaultBins is the histogram bin count used when none is configured.
const DefaultBins = 50

// Series is a read-only sequence of samples. table.Column satisfies it.
type Series interface {
	Len() int
	Float64(i int) float64
}

// Floats adapts a slice to Series.
type Floats []float64

func (f Floats) Len() int { return len(f) }

func (f Floats) Float64(i int) float64 { return f[i] }

// Histogram counts the samples of data that fall in [lo, hi] into bins
// equal-width buckets. The value hi lands in the last bucket. Adjacent bins
// share one edge value exactly. A degenerate or inverted range yields nil.
func Histogram(data Series, lo, hi float64, bins int) []variable.HistogramBin {
	if bins <= 0 || !(lo < hi) || !finite(lo) || !finite(hi) {
		return nil
	}

	width := (hi - lo) / float64(bins)
	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	counts := make([]int, bins)
	for i := 0; i < data.Len(); i++ {
		v := data.Float64(i)
		if !finite(v) || v < lo || v > hi {
			continue
		}
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		// the division can round across an edge; settle on the shared edges
		for idx > 0 && v < edges[idx] {
			idx--
		}
		for idx < bins-1 && v >= edges[idx+1] {
			idx++
		}
		counts[idx]++
	}

	out := make([]variable.HistogramBin, bins)
	for i := range out {
		out[i] = variable.HistogramBin{
			Index: i,
			Min:   edges[i],
			Max:   edges[i+1],
			Count: counts[i],
		}
	}
	return out
}
