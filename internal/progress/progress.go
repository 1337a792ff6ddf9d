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

// Package progress carries fractional completion notifications from the
// extraction pipeline to whoever started it.
package progress

import (
	"math"
	"sync"
)

// Func receives completion fractions in [0, 1]. A nil Func is valid and
// discards every report.
type Func func(fraction float64)

// Report forwards fraction to f if f is non-nil.
func (f Func) Report(fraction float64) {
	if f != nil {
		f(fraction)
	}
}

// Step reports done/total. A zero total reports completion.
func (f Func) Step(done, total int) {
	if f == nil {
		return
	}
	if total <= 0 {
		f(1)
		return
	}
	f(float64(done) / float64(total))
}

// Monotonic wraps fn so that it only ever sees values in [0, 1] that do not
// decrease. NaN reports are dropped.
func Monotonic(fn Func) Func {
	if fn == nil {
		return nil
	}
	var (
		mu   sync.Mutex
		last = -1.0
	)
	return func(fraction float64) {
		if math.IsNaN(fraction) {
			return
		}
		fraction = min(max(fraction, 0), 1)
		mu.Lock()
		if fraction < last {
			mu.Unlock()
			return
		}
		last = fraction
		mu.Unlock()
		fn(fraction)
	}
}

// Rounded wraps fn so reported values are rounded to the given number of
// decimal places, and repeated identical values are suppressed.
func Rounded(fn Func, places int) Func {
	if fn == nil {
		return nil
	}
	scale := math.Pow(10, float64(places))
	var (
		mu   sync.Mutex
		last = math.NaN()
	)
	return func(fraction float64) {
		r := math.Round(fraction*scale) / scale
		mu.Lock()
		if r == last {
			mu.Unlock()
			return
		}
		last = r
		mu.Unlock()
		fn(r)
	}
}

// Scaled maps a stage-local [0, 1] onto [lo, hi] of the parent.
func Scaled(fn Func, lo, hi float64) Func {
	if fn == nil {
		return nil
	}
	return func(fraction float64) {
		fn(lo + (hi-lo)*fraction)
	}
}
