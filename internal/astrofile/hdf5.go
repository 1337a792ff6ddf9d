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

package astrofile

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/scigolib/hdf5"

	"github.com/cardinalhq/astrovisio/internal/helpers"
)

var familyAliases = map[string]string{
	"PartType0": "gas",
	"PartType1": "dm",
	"PartType2": "disk",
	"PartType3": "bulge",
	"PartType4": "star",
	"PartType5": "bh",
}

var datasetAliases = map[string]string{
	"Coordinates":       "pos",
	"Velocities":        "vel",
	"Masses":            "mass",
	"ParticleIDs":       "iord",
	"Density":           "rho",
	"InternalEnergy":    "u",
	"SmoothingLength":   "smooth",
	"Potential":         "phi",
	"Metallicity":       "metals",
	"GFM_Metallicity":   "metals",
	"Temperature":       "temp",
	"StarFormationRate": "sfr",
}

var familyGroupPattern = regexp.MustCompile(`^PartType\d+$`)

// FamilyAlias returns the short family name for a PartTypeN group.
func FamilyAlias(group string) string {
	if a, ok := familyAliases[group]; ok {
		return a
	}
	return group
}

// KeyAlias returns the short key for a snapshot dataset name.
func KeyAlias(dataset string) string {
	if a, ok := datasetAliases[dataset]; ok {
		return a
	}
	return dataset
}

type particleSource struct {
	path      string
	file      *hdf5.File
	family    string
	cosmology Cosmology
	keys      []string
	datasets  map[string]*hdf5.Dataset
	n         int

	// the last base array read; vector components and x/y/z reuse it
	cachedKey string
	cached    *Array
}

var _ Source = (*particleSource)(nil)

func openSnapshot(filename string) (*hdf5.File, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, openError(filename, err)
	}
	f, err := hdf5.Open(filename)
	if err != nil {
		return nil, openError(filename, err)
	}
	return f, nil
}

// objectName strips any parent path from an object's name.
func objectName(o hdf5.Object) string {
	return path.Base(o.Name())
}

func familyGroups(f *hdf5.File) []*hdf5.Group {
	var groups []*hdf5.Group
	for _, child := range f.Root().Children() {
		if g, ok := child.(*hdf5.Group); ok && familyGroupPattern.MatchString(objectName(g)) {
			groups = append(groups, g)
		}
	}
	return groups
}

func findFamily(groups []*hdf5.Group, family string) (*hdf5.Group, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: snapshot has no particle families", ErrUnknownFamily)
	}
	if family == "" {
		return groups[0], nil
	}
	for _, g := range groups {
		name := objectName(g)
		if name == family || FamilyAlias(name) == family {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
}

func openHDF5(filename, family string) (*particleSource, error) {
	f, err := openSnapshot(filename)
	if err != nil {
		return nil, err
	}

	group, err := findFamily(familyGroups(f), family)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	src := &particleSource{
		path:      filename,
		file:      f,
		family:    FamilyAlias(objectName(group)),
		cosmology: readCosmology(f),
		datasets:  map[string]*hdf5.Dataset{},
		n:         -1,
	}
	for _, child := range group.Children() {
		ds, ok := child.(*hdf5.Dataset)
		if !ok {
			continue
		}
		key := KeyAlias(objectName(ds))
		if _, dup := src.datasets[key]; dup {
			continue
		}
		src.datasets[key] = ds
		src.keys = append(src.keys, key)

		if src.n < 0 {
			shape, err := datasetShape(ds)
			if err != nil {
				_ = f.Close()
				return nil, openError(filename, err)
			}
			if len(shape) > 0 {
				src.n = shape[0]
			}
		}
	}
	if src.n < 0 {
		src.n = 0
	}

	slog.Debug("Opened snapshot",
		slog.String("path", filename),
		slog.String("family", src.family),
		slog.Int("particles", src.n),
		slog.Float64("scaleFactor", src.cosmology.ScaleFactor),
		slog.Float64("hubbleParam", src.cosmology.HubbleParam))
	return src, nil
}

func readCosmology(f *hdf5.File) Cosmology {
	values := map[string]float64{}
	for _, child := range f.Root().Children() {
		g, ok := child.(*hdf5.Group)
		if !ok || objectName(g) != "Header" {
			continue
		}
		attrs, err := g.Attributes()
		if err != nil {
			slog.Debug("Snapshot header has no readable attributes", slog.Any("error", err))
			break
		}
		for _, a := range attrs {
			v, err := a.ReadValue()
			if err != nil {
				continue
			}
			if fv, ok := toFloat(v); ok {
				values[a.Name] = fv
			}
		}
	}
	return cosmologyFromHeader(values)
}

var dataspacePattern = regexp.MustCompile(`(\d+)D array \[([^\]]*)\]`)

// datasetShape recovers dimensions from the dataset's description, which is
// the only shape information the reader exposes without reading data.
func datasetShape(ds *hdf5.Dataset) ([]int, error) {
	info, err := ds.Info()
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", ds.Name(), err)
	}
	m := dataspacePattern.FindStringSubmatch(info)
	if m == nil {
		if strings.Contains(info, "scalar") {
			return []int{}, nil
		}
		return nil, fmt.Errorf("dataset %s: cannot parse dataspace from %q", ds.Name(), info)
	}
	fields := strings.FieldsFunc(m[2], func(r rune) bool { return r == 'x' || r == ' ' })
	shape := make([]int, 0, len(fields))
	for _, f := range fields {
		d, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: bad dimension %q", ds.Name(), f)
		}
		shape = append(shape, d)
	}
	return shape, nil
}

func (s *particleSource) Family() helpers.FileFamily { return helpers.FamilyParticle }

func (s *particleSource) Len() int { return s.n }

func (s *particleSource) Keys() []string { return slices.Clone(s.keys) }

func (s *particleSource) Shape(key string) ([]int, error) {
	if _, ok := axisComponent(key); ok {
		if _, ok := s.datasets["pos"]; ok {
			return []int{s.n}, nil
		}
	}
	ds, ok := s.datasets[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return datasetShape(ds)
}

func (s *particleSource) Column(key string) (*Array, error) {
	if comp, ok := axisComponent(key); ok {
		if _, ok := s.datasets["pos"]; ok {
			pos, err := s.Column("pos")
			if err != nil {
				return nil, err
			}
			data, err := pos.Component(comp)
			if err != nil {
				return nil, fmt.Errorf("%s from pos %s: %w", key, shapeString(pos.Shape), err)
			}
			return NewVector(data), nil
		}
	}

	if s.cached != nil && s.cachedKey == key {
		return s.cached, nil
	}
	ds, ok := s.datasets[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	shape, err := datasetShape(ds)
	if err != nil {
		return nil, err
	}
	data, err := ds.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", s.family, key, err)
	}
	arr := &Array{Data: data, Shape: shape}
	arr.Scale(s.factor(key, ds))

	s.cached, s.cachedKey = arr, key
	return arr, nil
}

// factor returns the physical unit multiplier for key, preferring the
// dataset's own a_scaling/h_scaling attributes over the built-in table.
func (s *particleSource) factor(key string, ds *hdf5.Dataset) float64 {
	units := defaultUnits[key]
	if v, err := ds.ReadAttribute("a_scaling"); err == nil {
		if f, ok := toFloat(v); ok {
			units.AExp = f
		}
	}
	if v, err := ds.ReadAttribute("h_scaling"); err == nil {
		if f, ok := toFloat(v); ok {
			units.HExp = f
		}
	}
	return s.cosmology.Factor(units.AExp, units.HExp)
}

func (s *particleSource) Unit(key string) string {
	if _, ok := axisComponent(key); ok {
		key = "pos"
	}
	if ds, ok := s.datasets[key]; ok {
		for _, name := range []string{"units", "unit"} {
			if v, err := ds.ReadAttribute(name); err == nil {
				if label, ok := toString(v); ok {
					return label
				}
			}
		}
	}
	return defaultUnits[key].Label
}

func (s *particleSource) Close() error {
	s.cached = nil
	s.datasets = nil
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
