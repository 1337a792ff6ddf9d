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

package helpers

import (
	"path"
	"strings"
)

// FileFamily identifies how a source file is laid out on disk.
type FileFamily int

const (
	// FamilyParticle is an unstructured particle snapshot (HDF5).
	FamilyParticle FileFamily = iota
	// FamilyGrid is a regularly sampled image cube (FITS).
	FamilyGrid
)

func (f FileFamily) String() string {
	switch f {
	case FamilyGrid:
		return "grid"
	case FamilyParticle:
		return "particle"
	default:
		return "unknown"
	}
}

const (
	fitsExtension = ".fits"
	hdf5Extension = ".hdf5"
)

// Classify returns the family of the file at p based only on its suffix.
// ".fits" (any case) is a grid; everything else, including a missing
// extension, is treated as a particle snapshot.
func Classify(p string) FileFamily {
	if strings.EqualFold(path.Ext(p), fitsExtension) {
		return FamilyGrid
	}
	return FamilyParticle
}

// FileTypeName returns the short type label stored alongside a registered file.
func FileTypeName(p string) string {
	if Classify(p) == FamilyGrid {
		return "fits"
	}
	return "hdf5"
}

// IsSupportedExtension reports whether p carries one of the extensions
// accepted at registration time.
func IsSupportedExtension(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	return ext == fitsExtension || ext == hdf5Extension
}

// BaseName returns the file name without directories or extension.
func BaseName(p string) string {
	fileName := path.Base(p)
	if fileName == "." || fileName == "/" {
		return ""
	}
	return strings.TrimSuffix(fileName, path.Ext(fileName))
}
