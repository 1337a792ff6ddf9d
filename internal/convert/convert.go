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

// Package convert runs the full extraction of one file: open, build,
// release, filter.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardinalhq/astrovisio/internal/astrofile"
	"github.com/cardinalhq/astrovisio/internal/helpers"
	"github.com/cardinalhq/astrovisio/internal/progress"
	"github.com/cardinalhq/astrovisio/internal/table"
	"github.com/cardinalhq/astrovisio/internal/tablebuilder"
	"github.com/cardinalhq/astrovisio/internal/tablefilter"
	"github.com/cardinalhq/astrovisio/internal/variable"
)

// buildShare is the part of the progress range spent building; filtering
// covers the rest.
const buildShare = 0.9

// Options tune a conversion.
type Options struct {
	Build tablebuilder.Options
}

// Convert extracts path into a filtered table according to cfg. The source
// is closed before filtering starts. report receives non-decreasing values
// in [0, 1]; it may be nil. Any failure aborts the whole call.
func Convert(ctx context.Context, path string, cfg *variable.Config, opts Options, report progress.Func) (*table.Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	report = progress.Monotonic(report)

	t, err := tablebuilder.BuildPath(ctx, path, cfg, opts.Build, progress.Scaled(report, 0, buildShare))
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", helpers.BaseName(path), err)
	}

	out, fstats := filter(ctx, t, cfg, report)

	slog.Info("Converted file",
		slog.String("path", path),
		slog.String("family", helpers.Classify(path).String()),
		slog.Int("rows", out.NumRows()),
		slog.Int("columns", out.NumCols()),
		slog.Int("rowsCropped", fstats.RowsCropped),
		slog.Int("cellsZeroed", fstats.CellsZeroed),
		slog.Duration("elapsed", time.Since(start)))
	return out, nil
}

// ConvertSource is Convert over an already open source, which the caller
// keeps ownership of.
func ConvertSource(ctx context.Context, src astrofile.Source, cfg *variable.Config, opts Options, report progress.Func) (*table.Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	report = progress.Monotonic(report)
	t, err := tablebuilder.Build(ctx, src, cfg, opts.Build, progress.Scaled(report, 0, buildShare))
	if err != nil {
		return nil, err
	}
	out, _ := filter(ctx, t, cfg, report)
	return out, nil
}

func filter(ctx context.Context, t *table.Table, cfg *variable.Config, report progress.Func) (*table.Table, tablefilter.Stats) {
	report.Report(buildShare)
	out, fstats := tablefilter.Filter(ctx, t, cfg)
	report.Report(1)
	return out, fstats
}
