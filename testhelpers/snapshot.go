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

// Package testhelpers writes small snapshot and cube files for tests.
package testhelpers

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/scigolib/hdf5"
	"github.com/stretchr/testify/require"
)

// Dataset is one array written into a snapshot family group.
type Dataset struct {
	Name  string
	Dims  []uint64
	Data  []float64
	Attrs map[string]any
}

// Snapshot maps a PartTypeN group name to its datasets, written in order.
type Snapshot map[string][]Dataset

// WriteSnapshot writes snap to a new .hdf5 file under t.TempDir() and
// returns its path. Groups are created in sorted order.
func WriteSnapshot(t *testing.T, name string, snap Snapshot) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	fw, err := hdf5.CreateForWrite(path, hdf5.CreateTruncate)
	require.NoError(t, err)

	groups := make([]string, 0, len(snap))
	for g := range snap {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, g := range groups {
		_, err := fw.CreateGroup("/" + g)
		require.NoError(t, err)
		for _, ds := range snap[g] {
			dw, err := fw.CreateDataset("/"+g+"/"+ds.Name, hdf5.Float64, ds.Dims)
			require.NoError(t, err)
			require.NoError(t, dw.Write(ds.Data))

			keys := make([]string, 0, len(ds.Attrs))
			for k := range ds.Attrs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				require.NoError(t, dw.WriteAttribute(k, ds.Attrs[k]))
			}
		}
	}
	require.NoError(t, fw.Close())
	return path
}

// Scalars builds a one-dimensional dataset.
func Scalars(name string, data ...float64) Dataset {
	return Dataset{Name: name, Dims: []uint64{uint64(len(data))}, Data: data}
}

// Vectors builds an N x k dataset from row-major data.
func Vectors(name string, k int, data ...float64) Dataset {
	return Dataset{Name: name, Dims: []uint64{uint64(len(data) / k), uint64(k)}, Data: data}
}
