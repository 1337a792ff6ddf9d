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
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/astrogo/fitsio"
	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/astrovisio/internal/helpers"
)

var gridKeys = []string{"x", "y", "z", "value"}

// GridKeys returns the fixed key set of every grid source.
func GridKeys() []string {
	return append([]string(nil), gridKeys...)
}

type gridSource struct {
	path   string
	file   *os.File
	fits   *fitsio.File
	img    fitsio.Image
	hdu    int
	nx     int
	ny     int
	nz     int
	bitpix int
	bscale float64
	bzero  float64
	blank  *int64
	unit   string
}

var _ SliceSource = (*gridSource)(nil)

func openFITS(path string) (*gridSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	ff, err := fitsio.Open(f)
	if err != nil {
		_ = f.Close()
		return nil, openError(path, err)
	}

	src := &gridSource{path: path, file: f, fits: ff, bscale: 1}
	if err := src.selectCube(); err != nil {
		_ = src.Close()
		return nil, openError(path, err)
	}

	slog.Debug("Opened cube",
		slog.String("path", path),
		slog.Int("hdu", src.hdu),
		slog.Int("bitpix", src.bitpix),
		slog.Int("nx", src.nx),
		slog.Int("ny", src.ny),
		slog.Int("nz", src.nz))
	return src, nil
}

// selectCube picks the first image HDU with at least two axes. Axes past the
// third must be degenerate.
func (s *gridSource) selectCube() error {
	for i, hdu := range s.fits.HDUs() {
		img, ok := hdu.(fitsio.Image)
		if !ok {
			continue
		}
		hdr := img.Header()
		axes := hdr.Axes()
		if len(axes) < 2 || axes[0] < 1 || axes[1] < 1 {
			continue
		}
		for j, n := range axes[min(3, len(axes)):] {
			if n != 1 {
				return fmt.Errorf("hdu %d: axis %d has size %d, only three axes are supported", i, j+4, n)
			}
		}

		s.img = img
		s.hdu = i
		s.nx, s.ny, s.nz = axes[0], axes[1], 1
		if len(axes) > 2 {
			s.nz = axes[2]
		}
		s.bitpix = hdr.Bitpix()
		if err := checkBitpix(s.bitpix); err != nil {
			return fmt.Errorf("hdu %d: %w", i, err)
		}
		if c := hdr.Get("BSCALE"); c != nil {
			if v, ok := toFloat(c.Value); ok {
				s.bscale = v
			}
		}
		if c := hdr.Get("BZERO"); c != nil {
			if v, ok := toFloat(c.Value); ok {
				s.bzero = v
			}
		}
		if c := hdr.Get("BLANK"); c != nil {
			if v, ok := toFloat(c.Value); ok {
				b := int64(v)
				s.blank = &b
			}
		}
		if c := hdr.Get("BUNIT"); c != nil {
			if v, ok := toString(c.Value); ok {
				s.unit = v
			}
		}

		need := s.planeBytes() * s.nz
		if got := len(img.Raw()); got < need {
			return fmt.Errorf("hdu %d: image data is %d bytes, expected %d", i, got, need)
		}
		return nil
	}
	return fmt.Errorf("no image with two or more axes")
}

func checkBitpix(bitpix int) error {
	switch bitpix {
	case 8, 16, 32, 64, -32, -64:
		return nil
	}
	return fmt.Errorf("unsupported BITPIX %d", bitpix)
}

func (s *gridSource) bytesPerSample() int {
	if s.bitpix < 0 {
		return -s.bitpix / 8
	}
	return s.bitpix / 8
}

func (s *gridSource) planeBytes() int {
	return s.nx * s.ny * s.bytesPerSample()
}

func (s *gridSource) Family() helpers.FileFamily { return helpers.FamilyGrid }

func (s *gridSource) Len() int { return s.nx * s.ny * s.nz }

func (s *gridSource) Keys() []string { return GridKeys() }

func (s *gridSource) Dims() (nx, ny, nz int) { return s.nx, s.ny, s.nz }

func (s *gridSource) NumSlices() int { return s.nz }

func (s *gridSource) WideValues() bool { return s.bitpix == 64 || s.bitpix == -64 }

func (s *gridSource) Shape(key string) ([]int, error) {
	switch key {
	case "value":
		return []int{s.nz, s.ny, s.nx}, nil
	case "x", "y", "z":
		return []int{s.Len()}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

func (s *gridSource) Unit(key string) string {
	if key == "value" {
		return s.unit
	}
	if _, ok := axisComponent(key); ok {
		return "pixel"
	}
	return ""
}

func (s *gridSource) Slice(z int) (*Array, error) {
	if z < 0 || z >= s.nz {
		return nil, fmt.Errorf("slice %d out of range [0,%d)", z, s.nz)
	}
	plane := s.planeBytes()
	raw := s.img.Raw()[z*plane : (z+1)*plane]
	out := make([]float64, s.nx*s.ny)
	s.decode(raw, out)
	return &Array{Data: out, Shape: []int{s.ny, s.nx}}, nil
}

// Column returns the whole cube for "value", or per-voxel pixel indices
// for x, y and z, all in storage order.
func (s *gridSource) Column(key string) (*Array, error) {
	switch key {
	case "value":
		out := make([]float64, 0, s.Len())
		for z := 0; z < s.nz; z++ {
			sl, err := s.Slice(z)
			if err != nil {
				return nil, err
			}
			out = append(out, sl.Data...)
		}
		return &Array{Data: out, Shape: []int{s.nz, s.ny, s.nx}}, nil
	case "x", "y", "z":
		return NewVector(PixelIndices(key, s.nx, s.ny, s.nz)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// PixelIndices returns the axis coordinate of every voxel of an nx*ny*nz
// cube in storage order.
func PixelIndices(axis string, nx, ny, nz int) []float64 {
	out := make([]float64, 0, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				switch axis {
				case "x":
					out = append(out, float64(x))
				case "y":
					out = append(out, float64(y))
				default:
					out = append(out, float64(z))
				}
			}
		}
	}
	return out
}

// decode converts big-endian FITS samples to float64, applying BLANK and
// the BSCALE/BZERO transform to integer data.
func (s *gridSource) decode(raw []byte, out []float64) {
	switch s.bitpix {
	case -32:
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(raw[4*i:])))
		}
		return
	case -64:
		for i := range out {
			out[i] = math.Float64frombits(binary.BigEndian.Uint64(raw[8*i:]))
		}
		return
	}

	for i := range out {
		var v int64
		switch s.bitpix {
		case 8:
			v = int64(raw[i])
		case 16:
			v = int64(int16(binary.BigEndian.Uint16(raw[2*i:])))
		case 32:
			v = int64(int32(binary.BigEndian.Uint32(raw[4*i:])))
		case 64:
			v = int64(binary.BigEndian.Uint64(raw[8*i:]))
		}
		if s.blank != nil && v == *s.blank {
			out[i] = math.NaN()
			continue
		}
		out[i] = float64(v)*s.bscale + s.bzero
	}
}

func (s *gridSource) Close() error {
	var result *multierror.Error
	if s.fits != nil {
		if err := s.fits.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		s.fits = nil
	}
	s.img = nil
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		s.file = nil
	}
	return result.ErrorOrNil()
}
