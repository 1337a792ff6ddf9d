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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ASTROVISIO_STATS_BINS", "20")
	t.Setenv("ASTROVISIO_STATS_GRID_AXES_SHARE_VALUE_RANGE", "true")
	t.Setenv("ASTROVISIO_BUILD_SEED", "42")
	t.Setenv("ASTROVISIO_OUTPUT_FORMAT", "parquet")
	t.Setenv("ASTROVISIO_CACHE_TTL", "90m")
	t.Setenv("ASTROVISIO_CATALOG_CONCURRENCY", "8")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 20, cfg.Stats.Bins)
	require.True(t, cfg.Stats.GridAxesShareValueRange)
	require.EqualValues(t, 42, cfg.Build.Seed)
	require.Equal(t, "parquet", cfg.Output.Format)
	require.Equal(t, 90*time.Minute, cfg.Cache.TTL)
	require.Equal(t, 8, cfg.Catalog.Concurrency)
	require.Equal(t, DefaultOutputDir, cfg.Output.Dir)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
output:
  dir: /srv/results
  zstd: true
build:
  float64_columns: true
`), 0o644))
	t.Setenv("ASTROVISIO_OUTPUT_DIR", "/override")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/override", cfg.Output.Dir)
	require.True(t, cfg.Output.Zstd)
	require.True(t, cfg.Build.Float64Columns)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ASTROVISIO_CATALOG_CONCURRENCY", "0")

	_, err := Load()
	require.Error(t, err)
}
