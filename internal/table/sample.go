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

import (
	"math"
	"math/rand/v2"
)

// SampleSize returns how many of n rows a fraction keeps.
func SampleSize(n int, fraction float64) int {
	if fraction >= 1 {
		return n
	}
	if fraction <= 0 || n == 0 {
		return 0
	}
	return min(n, int(math.Round(fraction*float64(n))))
}

// SampleIndices chooses k of n row indices uniformly at random without
// replacement, returned in ascending order. It walks the rows once and
// allocates only the result.
func SampleIndices(n, k int, rng *rand.Rand) []int {
	if k >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, 0, k)
	for i := 0; i < n && len(idx) < k; i++ {
		remaining := n - i
		needed := k - len(idx)
		if rng.IntN(remaining) < needed {
			idx = append(idx, i)
		}
	}
	return idx
}

// Sample returns a table holding round(fraction*N) rows chosen uniformly at
// random, with every column kept aligned. The receiver is returned unchanged
// when fraction is 1 or more.
func (t *Table) Sample(fraction float64, rng *rand.Rand) *Table {
	n := t.NumRows()
	k := SampleSize(n, fraction)
	if k == n {
		return t
	}
	return t.Take(SampleIndices(n, k, rng))
}
