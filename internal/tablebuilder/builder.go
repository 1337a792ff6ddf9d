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

// Package tablebuilder turns an open source into a flat table of named
// columns.
package tablebuilder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/astrovisio/internal/astrofile"
	"github.com/cardinalhq/astrovisio/internal/helpers"
	"github.com/cardinalhq/astrovisio/internal/progress"
	"github.com/cardinalhq/astrovisio/internal/table"
	"github.com/cardinalhq/astrovisio/internal/variable"
)

// Options tune table construction.
type Options struct {
	// Seed fixes the downsampling RNG. Zero picks a random seed.
	Seed uint64
	// Float64Columns keeps particle columns at 64 bits instead of
	// narrowing them to float32.
	Float64Columns bool
	// Open replaces astrofile.Open in BuildPath.
	Open astrofile.OpenFunc
}

// BuildPath opens path, builds its table and closes the source before
// returning.
func BuildPath(ctx context.Context, path string, cfg *variable.Config, opts Options, report progress.Func) (*table.Table, error) {
	family := ""
	if cfg != nil {
		family = cfg.Family
	}
	var t *table.Table
	err := astrofile.WithOpener(opts.Open, path, family, func(src astrofile.Source) error {
		var err error
		t, err = Build(ctx, src, cfg, opts, report)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Build materializes src as a table. Grid sources always produce the
// columns x, y, z and value; particle sources produce one column per
// selected variable in cfg order. A nil cfg selects nothing and never
// downsamples.
func Build(ctx context.Context, src astrofile.Source, cfg *variable.Config, opts Options, report progress.Func) (*table.Table, error) {
	var (
		t   *table.Table
		err error
	)
	switch src.Family() {
	case helpers.FamilyGrid:
		grid, ok := src.(astrofile.SliceSource)
		if !ok {
			return nil, fmt.Errorf("grid source %T cannot be read by slice", src)
		}
		t, err = buildGrid(ctx, grid, report)
	default:
		t, err = buildParticles(ctx, src, cfg, opts, report)
	}
	if err != nil {
		return nil, err
	}

	familyAttr := attribute.String("family", src.Family().String())
	rowsBuiltCounter.Add(ctx, int64(t.NumRows()), otelmetric.WithAttributes(familyAttr))

	return downsample(ctx, t, cfg.EffectiveDownsampling(), opts.Seed, familyAttr), nil
}

func downsample(ctx context.Context, t *table.Table, fraction float64, seed uint64, familyAttr attribute.KeyValue) *table.Table {
	if fraction >= 1 {
		return t
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	before := t.NumRows()
	sampled := t.Sample(fraction, rng)
	if sampled != t {
		t.Release()
	}
	rowsSampledAwayCounter.Add(ctx, int64(before-sampled.NumRows()), otelmetric.WithAttributes(familyAttr))
	slog.Debug("Downsampled table",
		slog.Float64("fraction", fraction),
		slog.Int("rowsBefore", before),
		slog.Int("rowsAfter", sampled.NumRows()))
	return sampled
}

type indexType interface{ ~uint16 | ~uint32 }

type valueType interface{ ~float32 | ~float64 }

const maxUint16Axis = 1 << 16

func buildGrid(ctx context.Context, src astrofile.SliceSource, report progress.Func) (*table.Table, error) {
	nx, ny, nz := src.Dims()
	wideIndex := max(nx, ny, nz) > maxUint16Axis
	switch {
	case wideIndex && src.WideValues():
		return expandGrid[uint32, float64](ctx, src, report)
	case wideIndex:
		return expandGrid[uint32, float32](ctx, src, report)
	case src.WideValues():
		return expandGrid[uint16, float64](ctx, src, report)
	default:
		return expandGrid[uint16, float32](ctx, src, report)
	}
}

// expandGrid walks the cube one z plane at a time and keeps every voxel
// whose value is finite and non-zero.
func expandGrid[I indexType, V valueType](ctx context.Context, src astrofile.SliceSource, report progress.Func) (*table.Table, error) {
	nx, _, nz := src.Dims()
	xs := table.NewValues[I]("x", 0)
	ys := table.NewValues[I]("y", 0)
	zs := table.NewValues[I]("z", 0)
	vs := table.NewValues[V]("value", 0)

	for z := range nz {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		plane, err := src.Slice(z)
		if err != nil {
			return nil, fmt.Errorf("slice %d: %w", z, err)
		}
		for i, v := range plane.Data {
			if v == 0 || !astrofile.Finite(v) {
				continue
			}
			xs.Append(I(i % nx))
			ys.Append(I(i / nx))
			zs.Append(I(z))
			vs.Append(V(v))
		}
		report.Step(z+1, nz)
	}
	if nz == 0 {
		report.Report(1)
	}
	return table.New(xs, ys, zs, vs)
}

func buildParticles(ctx context.Context, src astrofile.Source, cfg *variable.Config, opts Options, report progress.Func) (*table.Table, error) {
	selected := cfg.Selected()
	t, err := table.New()
	if err != nil {
		return nil, err
	}

	for i, sel := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := readVariable(src, sel.Name)
		if errors.Is(err, astrofile.ErrUnknownKey) {
			slog.Debug("Skipping variable not present in source", slog.String("variable", sel.Name))
			report.Step(i+1, len(selected))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", sel.Name, err)
		}

		var col table.Column
		if opts.Float64Columns {
			col = table.FromSlice(sel.Name, append([]float64(nil), data...))
		} else {
			col = narrow(sel.Name, data)
		}
		if err := t.Add(col); err != nil {
			return nil, err
		}
		report.Step(i+1, len(selected))
	}
	if len(selected) == 0 {
		report.Report(1)
	}
	return t, nil
}

// readVariable resolves name against src, splitting "<base>-<i>" into the
// i-th component of base when name itself is not a key. Vector keys named
// without a component are treated as absent.
func readVariable(src astrofile.Source, name string) ([]float64, error) {
	if shape, err := src.Shape(name); err == nil {
		if len(shape) > 1 {
			return nil, fmt.Errorf("%w: %q is a vector, select a component", astrofile.ErrUnknownKey, name)
		}
		arr, err := src.Column(name)
		if err != nil {
			return nil, err
		}
		return arr.Data, nil
	} else if !errors.Is(err, astrofile.ErrUnknownKey) {
		return nil, err
	}

	base, idx, ok := variable.SplitComponent(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", astrofile.ErrUnknownKey, name)
	}
	arr, err := src.Column(base)
	if err != nil {
		return nil, err
	}
	if idx >= arr.Width() {
		return nil, fmt.Errorf("%w: %q has %d components", astrofile.ErrUnknownKey, base, arr.Width())
	}
	return arr.Component(idx)
}

func narrow(name string, data []float64) *table.Values[float32] {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v)
	}
	return table.FromSlice(name, out)
}
