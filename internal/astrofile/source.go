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

// Package astrofile opens simulation snapshots and spectral cubes behind a
// single tabular read contract.
package astrofile

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cardinalhq/astrovisio/internal/helpers"
)

var (
	// ErrOpen wraps every failure to open or decode a source file.
	ErrOpen = errors.New("cannot open source file")
	// ErrUnknownFamily is returned when a requested particle family does not exist.
	ErrUnknownFamily = errors.New("unknown particle family")
	// ErrUnknownKey is returned when a column is not present in the source.
	ErrUnknownKey = errors.New("unknown key")
)

// Source is an open, format-specific handle exposing named numeric columns.
// A Source is owned by one caller and must be closed when done.
type Source interface {
	Family() helpers.FileFamily
	// Len returns the number of particles, or voxels in a cube.
	Len() int
	// Keys returns the loadable keys in file order.
	Keys() []string
	// Shape returns the dimensions of key. More than one dimension means
	// each row carries a vector.
	Shape(key string) ([]int, error)
	Column(key string) (*Array, error)
	// Unit returns the unit label for key, or "" when unknown.
	Unit(key string) string
	Close() error
}

// SliceSource is a grid source that can be read one z plane at a time.
type SliceSource interface {
	Source
	Dims() (nx, ny, nz int)
	NumSlices() int
	// Slice returns plane z with shape [ny, nx], x varying fastest.
	Slice(z int) (*Array, error)
	// WideValues reports whether the stored samples need 64 bits.
	WideValues() bool
}

// OpenFunc opens a source. Open satisfies it.
type OpenFunc func(path, family string) (Source, error)

// Open classifies path and opens it. family selects a particle family and is
// ignored for grids; empty means the first family in the file.
func Open(path, family string) (Source, error) {
	if helpers.Classify(path) == helpers.FamilyGrid {
		src, err := openFITS(path)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src, err := openHDF5(path, family)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// With opens path, runs fn, and closes the source on every exit path.
func With(path, family string, fn func(Source) error) error {
	return WithOpener(Open, path, family, fn)
}

// WithOpener is With using a caller-supplied opener.
func WithOpener(open OpenFunc, path, family string, fn func(Source) error) (err error) {
	if open == nil {
		open = Open
	}
	src, err := open(path, family)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Warn("Failed to close source", slog.String("path", path), slog.Any("error", cerr))
			if err == nil {
				err = cerr
			}
		}
	}()
	return fn(src)
}

// Families lists the particle families of a snapshot. Grids have none.
func Families(path string) ([]string, error) {
	if helpers.Classify(path) == helpers.FamilyGrid {
		return nil, nil
	}
	f, err := openSnapshot(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	groups := familyGroups(f)
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = FamilyAlias(objectName(g))
	}
	return names, nil
}

// Keys lists the loadable keys of path for family.
func Keys(path, family string) ([]string, error) {
	var keys []string
	err := With(path, family, func(src Source) error {
		keys = src.Keys()
		return nil
	})
	return keys, err
}

func openError(path string, err error) error {
	return fmt.Errorf("%w %s: %w", ErrOpen, path, err)
}
