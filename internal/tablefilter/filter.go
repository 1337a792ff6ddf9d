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

// Package tablefilter applies per-variable threshold selections to a built
// table.
package tablefilter

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/astrovisio/internal/table"
	"github.com/cardinalhq/astrovisio/internal/variable"
)

// Stats summarizes what Filter changed.
type Stats struct {
	RowsIn      int
	RowsOut     int
	RowsCropped int
	CellsZeroed int
}

// Filter applies every selected variable that has both thresholds set and a
// column in t. Variables with a spatial axis role crop rows outside the range;
// all others zero out-of-range cells in place and keep the row. The returned
// table may be t itself.
func Filter(ctx context.Context, t *table.Table, cfg *variable.Config) (*table.Table, Stats) {
	stats := Stats{RowsIn: t.NumRows()}

	var crops []bound
	for _, sel := range cfg.Selected() {
		if !sel.HasRange() {
			continue
		}
		col, ok := t.Column(sel.Name)
		if !ok {
			continue
		}
		if sel.AxisRole.IsSpatial() {
			crops = append(crops, bound{col: col, sel: sel})
			continue
		}
		stats.CellsZeroed += zeroOutside(col, sel)
	}

	if len(crops) > 0 {
		keep := make([]int, 0, t.NumRows())
		for i := 0; i < t.NumRows(); i++ {
			if inAll(crops, i) {
				keep = append(keep, i)
			}
		}
		if len(keep) < t.NumRows() {
			cropped := t.Take(keep)
			t.Release()
			t = cropped
		}
	}

	stats.RowsOut = t.NumRows()
	stats.RowsCropped = stats.RowsIn - stats.RowsOut

	rowsCroppedCounter.Add(ctx, int64(stats.RowsCropped))
	cellsZeroedCounter.Add(ctx, int64(stats.CellsZeroed), otelmetric.WithAttributes(
		attribute.Int("variables", len(cfg.Selected())),
	))
	slog.Debug("Filtered table",
		slog.Int("rowsIn", stats.RowsIn),
		slog.Int("rowsOut", stats.RowsOut),
		slog.Int("cellsZeroed", stats.CellsZeroed))
	return t, stats
}

type bound struct {
	col table.Column
	sel variable.Selection
}

func inAll(bounds []bound, row int) bool {
	for _, b := range bounds {
		if !b.sel.InRange(b.col.Float64(row)) {
			return false
		}
	}
	return true
}

func zeroOutside(col table.Column, sel variable.Selection) int {
	n := 0
	for i := 0; i < col.Len(); i++ {
		if !sel.InRange(col.Float64(i)) {
			col.SetZero(i)
			n++
		}
	}
	return n
}
