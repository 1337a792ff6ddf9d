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

package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/astrovisio/internal/stats"
	"github.com/cardinalhq/astrovisio/internal/variable"
	"github.com/cardinalhq/astrovisio/testhelpers"
)

type getterFunc func(ctx context.Context, path string) (*stats.Result, error)

func (f getterFunc) Get(ctx context.Context, path string) (*stats.Result, error) {
	return f(ctx, path)
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	return p
}

func fakeResult() *stats.Result {
	return &stats.Result{
		TotalPoints: 4,
		Thresholds: map[string]variable.Descriptor{
			"x":   {Name: "x", Unit: "kpc", Min: 0, Max: 1},
			"rho": {Name: "rho", Unit: "g/cm^3", Min: 2, Max: 8},
		},
		Histograms: map[string][]variable.HistogramBin{
			"x":   {{Index: 0, Min: 0, Max: 1, Count: 4}},
			"rho": {{Index: 0, Min: 2, Max: 8, Count: 4}},
		},
		Order: []string{"x", "rho"},
	}
}

func TestValidatePaths(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, dir, "a.hdf5")
	b := touch(t, dir, "b.hdf5")
	c := touch(t, dir, "c.fits")
	txt := touch(t, dir, "notes.txt")

	assert.NoError(t, ValidatePaths([]string{a, b}))
	assert.NoError(t, ValidatePaths([]string{c}))

	err := ValidatePaths([]string{a, txt})
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Contains(t, err.Error(), "notes.txt")

	assert.ErrorIs(t, ValidatePaths([]string{a, c}), ErrMixedTypes)

	missing := filepath.Join(dir, "gone.hdf5")
	err = ValidatePaths([]string{a, missing, filepath.Join(dir, "also.hdf5")})
	assert.ErrorIs(t, err, ErrMissingFile)
	assert.Contains(t, err.Error(), "gone.hdf5")
	assert.Contains(t, err.Error(), "also.hdf5")
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	paths := []string{touch(t, dir, "a.hdf5"), touch(t, dir, "b.hdf5"), touch(t, dir, "c.hdf5")}

	var calls atomic.Int32
	cat := New(getterFunc(func(ctx context.Context, path string) (*stats.Result, error) {
		calls.Add(1)
		return fakeResult(), nil
	}), 2)

	got, err := cat.Inspect(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.EqualValues(t, 3, calls.Load())

	info := got[paths[0]]
	assert.Equal(t, "a.hdf5", info.Name)
	assert.Equal(t, "hdf5", info.Type)
	assert.EqualValues(t, 1, info.Size)
	assert.Equal(t, 4, info.TotalPoints)
	require.Len(t, info.Variables, 2)
	assert.Equal(t, "x", info.Variables[0].Name)
	assert.Equal(t, "rho", info.Variables[1].Name)
	assert.Equal(t, 8.0, info.Variables[1].Max)
	assert.Len(t, info.Variables[1].Histogram, 1)
}

func TestInspectValidationSkipsDiscovery(t *testing.T) {
	dir := t.TempDir()
	cat := New(getterFunc(func(ctx context.Context, path string) (*stats.Result, error) {
		t.Fatal("discovery must not run for invalid input")
		return nil, nil
	}), 1)

	_, err := cat.Inspect(context.Background(), []string{touch(t, dir, "a.fits"), touch(t, dir, "b.hdf5")})
	assert.ErrorIs(t, err, ErrMixedTypes)
}

func TestInspectDiscoveryError(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")
	cat := New(getterFunc(func(ctx context.Context, path string) (*stats.Result, error) {
		return nil, boom
	}), 4)

	_, err := cat.Inspect(context.Background(), []string{touch(t, dir, "a.hdf5")})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a.hdf5")
}

func TestInspectRealCube(t *testing.T) {
	p := testhelpers.WriteCube(t, "cube.fits", testhelpers.Cube{
		Axes: []int{2, 2, 1},
		Data: []float32{0, 1, 2, 3},
		Unit: "K",
	})
	cat := New(getterFunc(func(ctx context.Context, path string) (*stats.Result, error) {
		return stats.Discover(ctx, path, stats.Options{})
	}), 1)

	got, err := cat.Inspect(context.Background(), []string{p})
	require.NoError(t, err)
	info := got[p]
	assert.Equal(t, "fits", info.Type)
	assert.Equal(t, 3, info.TotalPoints)
	require.Len(t, info.Variables, 4)
	assert.Equal(t, "value", info.Variables[3].Name)
	assert.Equal(t, "K", info.Variables[3].Unit)
}

func TestDefaultConfig(t *testing.T) {
	info := FileInfo{Variables: []VariableInfo{
		{Descriptor: variable.Descriptor{Name: "x"}},
		{Descriptor: variable.Descriptor{Name: "y"}},
		{Descriptor: variable.Descriptor{Name: "rho"}},
	}}
	cfg := DefaultConfig(info)
	require.Len(t, cfg.Variables, 3)
	assert.Empty(t, cfg.Selected())
	assert.Equal(t, variable.AxisX, cfg.Variables[0].AxisRole)
	assert.Equal(t, variable.AxisY, cfg.Variables[1].AxisRole)
	assert.Equal(t, variable.AxisNone, cfg.Variables[2].AxisRole)
	assert.Nil(t, cfg.Variables[2].ThresholdMin)
	assert.NoError(t, cfg.Validate())
}
