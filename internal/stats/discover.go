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

// Package stats discovers the full-range statistics of every variable in a
// source file: finite min/max, robust display bounds and a histogram.
package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/astrovisio/internal/astrofile"
	"github.com/cardinalhq/astrovisio/internal/helpers"
	"github.com/cardinalhq/astrovisio/internal/tablebuilder"
	"github.com/cardinalhq/astrovisio/internal/variable"
)

// Options tune discovery.
type Options struct {
	// Bins is the histogram bin count; zero means DefaultBins.
	Bins int
	// GridAxesShareValueRange gives a cube's x, y and z descriptors the
	// value range instead of their own pixel-index ranges.
	GridAxesShareValueRange bool
	// Family selects the particle family; empty picks the first.
	Family string
	// Open replaces astrofile.Open.
	Open astrofile.OpenFunc
}

func (o Options) bins() int {
	if o.Bins <= 0 {
		return DefaultBins
	}
	return o.Bins
}

// Result is the discovery output for one file.
type Result struct {
	TotalPoints int                                `json:"total_points"`
	Thresholds  map[string]variable.Descriptor     `json:"thresholds"`
	Histograms  map[string][]variable.HistogramBin `json:"histograms"`
	Order       []string                           `json:"order"`
}

func newResult() *Result {
	return &Result{
		Thresholds: map[string]variable.Descriptor{},
		Histograms: map[string][]variable.HistogramBin{},
	}
}

// Descriptors returns the descriptors in discovery order.
func (r *Result) Descriptors() []variable.Descriptor {
	out := make([]variable.Descriptor, 0, len(r.Order))
	for _, name := range r.Order {
		out = append(out, r.Thresholds[name])
	}
	return out
}

func (r *Result) add(name, unit string, data Series, sum summary, lo, hi float64, bins int) {
	r.Thresholds[name] = variable.Descriptor{
		Name: name,
		Unit: unit,
		Min:  lo,
		Max:  hi,
		P01:  clamp(sum.P01, lo, hi),
		P99:  clamp(sum.P99, lo, hi),
	}
	r.Histograms[name] = Histogram(data, lo, hi, bins)
	r.Order = append(r.Order, name)
}

// Discover opens path, computes its statistics and closes it. It holds no
// state between calls; calling it again recomputes from scratch.
func Discover(ctx context.Context, path string, opts Options) (*Result, error) {
	start := time.Now()
	var res *Result
	err := astrofile.WithOpener(opts.Open, path, opts.Family, func(src astrofile.Source) error {
		var err error
		res, err = DiscoverSource(ctx, src, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	familyAttr := attribute.String("family", helpers.Classify(path).String())
	filesDiscoveredCounter.Add(ctx, 1, otelmetric.WithAttributes(familyAttr))
	discoveryDuration.Record(ctx, time.Since(start).Seconds(), otelmetric.WithAttributes(familyAttr))
	slog.Info("Discovered file statistics",
		slog.String("path", path),
		slog.Int("totalPoints", res.TotalPoints),
		slog.Int("variables", len(res.Order)),
		slog.Duration("elapsed", time.Since(start)))
	return res, nil
}

// DiscoverSource computes statistics for an already open source.
func DiscoverSource(ctx context.Context, src astrofile.Source, opts Options) (*Result, error) {
	if src.Family() == helpers.FamilyGrid {
		return discoverGrid(ctx, src, opts)
	}
	return discoverParticles(ctx, src, opts)
}

func discoverGrid(ctx context.Context, src astrofile.Source, opts Options) (*Result, error) {
	t, err := tablebuilder.Build(ctx, src, nil, tablebuilder.Options{}, nil)
	if err != nil {
		return nil, err
	}
	defer t.Release()

	res := newResult()
	res.TotalPoints = t.NumRows()

	valueCol, _ := t.Column("value")
	valueSum, ok := summarize(valueCol)
	if !ok {
		slog.Debug("Cube has no non-empty voxels")
		return res, nil
	}

	bins := opts.bins()
	for _, axis := range []string{"x", "y", "z"} {
		col, _ := t.Column(axis)
		if opts.GridAxesShareValueRange {
			res.add(axis, src.Unit(axis), col, valueSum, valueSum.Min, valueSum.Max, bins)
			continue
		}
		sum, _ := summarize(col)
		res.add(axis, src.Unit(axis), col, sum, sum.Min, sum.Max, bins)
	}
	res.add("value", src.Unit("value"), valueCol, valueSum, valueSum.Min, valueSum.Max, bins)
	return res, nil
}

// particleKeys is {x,y,z} followed by the loadable keys, without the raw
// position vector.
func particleKeys(src astrofile.Source) []string {
	var keys []string
	for _, axis := range []string{"x", "y", "z"} {
		if _, err := src.Shape(axis); err == nil {
			keys = append(keys, axis)
		}
	}
	for _, k := range src.Keys() {
		if k == "pos" || slices.Contains(keys, k) {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

func discoverParticles(ctx context.Context, src astrofile.Source, opts Options) (*Result, error) {
	res := newResult()
	res.TotalPoints = src.Len()
	bins := opts.bins()

	for _, key := range particleKeys(src) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		arr, err := src.Column(key)
		if errors.Is(err, astrofile.ErrUnknownKey) {
			continue
		}
		if err != nil {
			// unsupported element types surface here; the rest of the file
			// is still worth describing
			slog.Warn("Skipping unreadable variable", slog.String("key", key), slog.Any("error", err))
			continue
		}

		unit := src.Unit(key)
		if arr.NDim() <= 1 {
			addChannel(res, key, unit, arr.Data, bins)
			continue
		}
		for i := range arr.Width() {
			comp, err := arr.Component(i)
			if err != nil {
				return nil, fmt.Errorf("%s component %d: %w", key, i, err)
			}
			addChannel(res, variable.ComponentName(key, i), unit, comp, bins)
		}
	}
	return res, nil
}

func addChannel(res *Result, name, unit string, samples []float64, bins int) {
	data := Floats(samples)
	sum, ok := summarize(data)
	if !ok {
		slog.Debug("Skipping variable without finite samples", slog.String("variable", name))
		return
	}
	res.add(name, unit, data, sum, sum.Min, sum.Max, bins)
}
