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

package convert

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/astrovisio/internal/astrofile"
	"github.com/cardinalhq/astrovisio/internal/table"
	"github.com/cardinalhq/astrovisio/internal/tablebuilder"
	"github.com/cardinalhq/astrovisio/internal/variable"
	"github.com/cardinalhq/astrovisio/testhelpers"
)

func massSnapshot(t *testing.T) string {
	t.Helper()
	return testhelpers.WriteSnapshot(t, "snap.hdf5", testhelpers.Snapshot{
		"PartType0": {
			testhelpers.Vectors("Coordinates", 3,
				0, 0, 0,
				1, 1, 1,
				2, 2, 2,
				3, 3, 3,
				4, 4, 4),
			testhelpers.Scalars("Masses", 1, 2, 3, 4, 5),
		},
	})
}

func TestConvertParticleMassThresholds(t *testing.T) {
	path := massSnapshot(t)
	cfg := &variable.Config{Variables: []variable.Selection{
		{Name: "x"},
		{Name: "y"},
		{Name: "z"},
		{Name: "mass", Selected: true, ThresholdMin: variable.Float(2), ThresholdMax: variable.Float(4)},
	}}

	var seen []float64
	out, err := Convert(context.Background(), path, cfg, Options{}, func(f float64) { seen = append(seen, f) })
	require.NoError(t, err)

	assert.Equal(t, []string{"mass"}, out.Names())
	require.Equal(t, 5, out.NumRows())
	mass, _ := out.Column("mass")
	assert.Equal(t, []float32{0, 2, 3, 4, 0}, mass.(*table.Values[float32]).Data())

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.Equal(t, 1.0, seen[len(seen)-1])
}

func TestConvertProgressSplitsBuildAndFilter(t *testing.T) {
	path := massSnapshot(t)
	cfg := &variable.Config{Variables: []variable.Selection{
		{Name: "mass", Selected: true, ThresholdMin: variable.Float(2), ThresholdMax: variable.Float(4)},
	}}

	var seen []float64
	_, err := Convert(context.Background(), path, cfg, Options{}, func(f float64) { seen = append(seen, f) })
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(seen), 2)
	for _, f := range seen[:len(seen)-1] {
		assert.LessOrEqual(t, f, buildShare)
	}
	assert.Contains(t, seen, buildShare)
	assert.Equal(t, 1.0, seen[len(seen)-1])
}

func TestConvertSourceReportsProgress(t *testing.T) {
	src := astrofile.NewMemParticles().
		Add("mass", "", astrofile.NewVector([]float64{1, 5}))
	cfg := &variable.Config{Variables: []variable.Selection{{Name: "mass", Selected: true}}}

	var seen []float64
	_, err := ConvertSource(context.Background(), src, cfg, Options{}, func(f float64) { seen = append(seen, f) })
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	assert.Equal(t, []float64{buildShare, 1}, seen[len(seen)-2:])
}

func TestConvertParticleSpatialCrop(t *testing.T) {
	path := massSnapshot(t)
	cfg := &variable.Config{Variables: []variable.Selection{
		{Name: "x", Selected: true, AxisRole: variable.AxisX, ThresholdMin: variable.Float(1), ThresholdMax: variable.Float(2)},
		{Name: "mass", Selected: true},
	}}
	out, err := Convert(context.Background(), path, cfg, Options{}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, out.NumRows())
	assert.Equal(t, []float64{1, 2}, out.Row(0))
	assert.Equal(t, []float64{2, 3}, out.Row(1))
}

func TestConvertCubeSingleVoxel(t *testing.T) {
	path := testhelpers.WriteCube(t, "cube.fits", testhelpers.Cube{
		Axes: []int{2, 2, 1},
		Data: []float32{0, 7, 0, 0},
	})
	out, err := Convert(context.Background(), path, &variable.Config{}, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z", "value"}, out.Names())
	require.Equal(t, 1, out.NumRows())
	assert.Equal(t, []float64{1, 0, 0, 7}, out.Row(0))
}

func TestConvertCubeDownsampling(t *testing.T) {
	data := make([]float32, 20*20)
	for i := range data {
		data[i] = float32(i + 1)
	}
	path := testhelpers.WriteCube(t, "cube.fits", testhelpers.Cube{Axes: []int{20, 20}, Data: data})

	cfg := &variable.Config{Downsampling: 0.1}
	out, err := Convert(context.Background(), path, cfg, Options{Build: tablebuilder.Options{Seed: 7}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 40, out.NumRows())
	for _, c := range out.Columns() {
		assert.Equal(t, 40, c.Len())
	}
}

func TestConvertRejectsInvalidConfig(t *testing.T) {
	cfg := &variable.Config{Downsampling: 2}
	_, err := Convert(context.Background(), "snap.hdf5", cfg, Options{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "downsampling")
}

func TestConvertMissingFile(t *testing.T) {
	_, err := Convert(context.Background(), "/nowhere/snap.hdf5", &variable.Config{}, Options{}, nil)
	assert.ErrorIs(t, err, astrofile.ErrOpen)
}

func TestConvertSource(t *testing.T) {
	src := astrofile.NewMemParticles().
		Add("mass", "", astrofile.NewVector([]float64{1, 5}))
	cfg := &variable.Config{Variables: []variable.Selection{
		{Name: "mass", Selected: true, ThresholdMin: variable.Float(0), ThresholdMax: variable.Float(2)},
	}}
	out, err := ConvertSource(context.Background(), src, cfg, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, out.Row(1))
	assert.False(t, src.Closed())
}
