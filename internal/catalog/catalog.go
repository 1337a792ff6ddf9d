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

// Package catalog validates a batch of files offered for registration and
// describes each one from its discovered statistics.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/astrovisio/internal/helpers"
	"github.com/cardinalhq/astrovisio/internal/stats"
	"github.com/cardinalhq/astrovisio/internal/variable"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrMixedTypes      = errors.New("mixed file types")
	ErrMissingFile     = errors.New("file not found")
)

var allowedExtensions = []string{".fits", ".hdf5"}

// StatsGetter returns statistics for a file. *statscache.Cache satisfies it.
type StatsGetter interface {
	Get(ctx context.Context, path string) (*stats.Result, error)
}

// VariableInfo is one discovered variable with its histogram.
type VariableInfo struct {
	variable.Descriptor `yaml:",inline"`
	Histogram           []variable.HistogramBin `json:"histogram" yaml:"histogram"`
}

// FileInfo describes a registered file.
type FileInfo struct {
	Path        string         `json:"path" yaml:"path"`
	Name        string         `json:"name" yaml:"name"`
	Type        string         `json:"type" yaml:"type"`
	Size        int64          `json:"size" yaml:"size"`
	TotalPoints int            `json:"total_points" yaml:"total_points"`
	Variables   []VariableInfo `json:"variables" yaml:"variables"`
}

// Catalog inspects files through a statistics source.
type Catalog struct {
	stats       StatsGetter
	concurrency int
}

// New returns a Catalog that inspects at most concurrency files at once.
func New(getter StatsGetter, concurrency int) *Catalog {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Catalog{stats: getter, concurrency: concurrency}
}

// ValidatePaths checks that every path has an allowed extension, that all
// paths share one extension and that every file exists.
func ValidatePaths(paths []string) error {
	var invalid []string
	exts := map[string]bool{}
	for _, p := range paths {
		ext := strings.ToLower(filepath.Ext(p))
		if !helpers.IsSupportedExtension(p) {
			invalid = append(invalid, p)
			continue
		}
		exts[ext] = true
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %s (allowed: %s)", ErrUnsupportedType,
			strings.Join(invalid, ", "), strings.Join(allowedExtensions, ", "))
	}
	if len(exts) > 1 {
		found := make([]string, 0, len(exts))
		for e := range exts {
			found = append(found, e)
		}
		slices.Sort(found)
		return fmt.Errorf("%w: %s", ErrMixedTypes, strings.Join(found, ", "))
	}

	var errs *multierror.Error
	for _, p := range paths {
		fi, err := os.Stat(p)
		switch {
		case err != nil:
			errs = multierror.Append(errs, fmt.Errorf("%w: %s", ErrMissingFile, p))
		case fi.IsDir():
			errs = multierror.Append(errs, fmt.Errorf("%w: %s is a directory", ErrMissingFile, p))
		}
	}
	return errs.ErrorOrNil()
}

// Inspect validates paths and describes each file. Files are inspected
// concurrently; the first failure cancels the rest.
func (c *Catalog) Inspect(ctx context.Context, paths []string) (map[string]FileInfo, error) {
	if err := ValidatePaths(paths); err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		out = make(map[string]FileInfo, len(paths))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, p := range paths {
		g.Go(func() error {
			info, err := c.describe(gctx, p)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", p, err)
			}
			mu.Lock()
			out[p] = info
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Catalog) describe(ctx context.Context, path string) (FileInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	res, err := c.stats.Get(ctx, path)
	if err != nil {
		return FileInfo{}, err
	}

	info := FileInfo{
		Path:        path,
		Name:        filepath.Base(path),
		Type:        helpers.FileTypeName(path),
		Size:        fi.Size(),
		TotalPoints: res.TotalPoints,
		Variables:   make([]VariableInfo, 0, len(res.Order)),
	}
	for _, d := range res.Descriptors() {
		info.Variables = append(info.Variables, VariableInfo{
			Descriptor: d,
			Histogram:  res.Histograms[d.Name],
		})
	}
	slog.Debug("Inspected file",
		slog.String("path", path),
		slog.String("type", info.Type),
		slog.Int("variables", len(info.Variables)))
	return info, nil
}

// DefaultConfig seeds a variable configuration for info: every variable
// listed unselected, without thresholds, and x, y and z bound to their axes.
func DefaultConfig(info FileInfo) *variable.Config {
	cfg := &variable.Config{Variables: make([]variable.Selection, 0, len(info.Variables))}
	for _, v := range info.Variables {
		role, err := variable.ParseAxisRole(v.Name)
		if err != nil || !role.IsSpatial() {
			role = variable.AxisNone
		}
		cfg.Variables = append(cfg.Variables, variable.Selection{
			Name:     v.Name,
			AxisRole: role,
		})
	}
	return cfg
}
