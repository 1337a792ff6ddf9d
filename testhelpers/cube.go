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

package testhelpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/require"
)

// Cube describes a single-image FITS file. Data is in storage order, x
// varying fastest, and is written as 32-bit floats.
type Cube struct {
	Axes []int
	Data []float32
	Unit string
}

// WriteCube writes c as the primary HDU of a new .fits file under
// t.TempDir() and returns its path.
func WriteCube(t *testing.T, name string, c Cube) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	ff, err := fitsio.Create(f)
	require.NoError(t, err)

	img := fitsio.NewImage(-32, c.Axes)
	if c.Unit != "" {
		require.NoError(t, img.Header().Append(fitsio.Card{Name: "BUNIT", Value: c.Unit}))
	}
	require.NoError(t, img.Write(c.Data))
	require.NoError(t, ff.Write(img))
	require.NoError(t, img.Close())
	require.NoError(t, ff.Close())
	return path
}
