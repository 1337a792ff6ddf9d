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

package cmd

import (
	"log/slog"

	"github.com/cardinalhq/astrovisio/config"
	"github.com/cardinalhq/astrovisio/internal/convert"
	"github.com/cardinalhq/astrovisio/internal/resultwriter"
	"github.com/cardinalhq/astrovisio/internal/stats"
	"github.com/cardinalhq/astrovisio/internal/statscache"
	"github.com/cardinalhq/astrovisio/internal/tablebuilder"
	"github.com/cardinalhq/astrovisio/internal/variable"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	slog.Debug("Loaded configuration",
		slog.Int("bins", cfg.Stats.Bins),
		slog.String("outputDir", cfg.Output.Dir),
		slog.String("outputFormat", cfg.Output.Format),
		slog.Int("catalogConcurrency", cfg.Catalog.Concurrency))
	return cfg, nil
}

func statsOptions(cfg *config.Config, family string) stats.Options {
	return stats.Options{
		Bins:                    cfg.Stats.Bins,
		GridAxesShareValueRange: cfg.Stats.GridAxesShareValueRange,
		Family:                  family,
	}
}

func convertOptions(cfg *config.Config) convert.Options {
	return convert.Options{Build: tablebuilder.Options{
		Seed:           cfg.Build.Seed,
		Float64Columns: cfg.Build.Float64Columns,
	}}
}

// outputOptions resolves the output format, letting a non-empty flag value
// win over configuration.
func outputOptions(cfg *config.Config, formatFlag string) (resultwriter.Options, error) {
	name := cfg.Output.Format
	if formatFlag != "" {
		name = formatFlag
	}
	format, err := resultwriter.ParseFormat(name)
	if err != nil {
		return resultwriter.Options{}, err
	}
	return resultwriter.Options{Format: format, Zstd: cfg.Output.Zstd}, nil
}

func newStatsCache(cfg *config.Config, family string) *statscache.Cache {
	return statscache.New(cfg.Cache.TTL, cfg.Cache.Capacity, statsOptions(cfg, family))
}

// loadVariableConfig reads a variable configuration file. An empty path
// yields nil, which keeps every variable of a cube and none of a snapshot.
func loadVariableConfig(path string) (*variable.Config, error) {
	if path == "" {
		return nil, nil
	}
	return variable.LoadConfig(path)
}
