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

// Package statscache memoizes file statistics by file identity.
package statscache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/cardinalhq/astrovisio/internal/stats"
)

const (
	DefaultTTL      = 24 * time.Hour
	DefaultCapacity = 1024
)

// DiscoverFunc computes statistics for one file. stats.Discover satisfies it.
type DiscoverFunc func(ctx context.Context, path string, opts stats.Options) (*stats.Result, error)

// Cache returns discovery results keyed on a file's path, size and
// modification time, so an edited file is never served stale statistics.
type Cache struct {
	entries  *ttlcache.Cache[uint64, *stats.Result]
	group    singleflight.Group
	opts     stats.Options
	discover DiscoverFunc
}

// Option configures a Cache.
type Option func(*Cache)

// WithDiscover replaces stats.Discover.
func WithDiscover(fn DiscoverFunc) Option {
	return func(c *Cache) { c.discover = fn }
}

// New returns a started cache. Call Stop when done with it.
func New(ttl time.Duration, capacity uint64, opts stats.Options, options ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{
		entries: ttlcache.New(
			ttlcache.WithTTL[uint64, *stats.Result](ttl),
			ttlcache.WithCapacity[uint64, *stats.Result](capacity),
			ttlcache.WithDisableTouchOnHit[uint64, *stats.Result](),
		),
		opts:     opts,
		discover: stats.Discover,
	}
	for _, o := range options {
		o(c)
	}
	go c.entries.Start()
	return c
}

// Stop ends the expiry loop.
func (c *Cache) Stop() {
	c.entries.Stop()
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Get returns the statistics for path, computing them on a miss. Concurrent
// misses for the same file share one computation.
func (c *Cache) Get(ctx context.Context, path string) (*stats.Result, error) {
	key, err := identity(path)
	if err != nil {
		return nil, err
	}
	if item := c.entries.Get(key); item != nil {
		cacheLookups.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("hit", true)))
		return item.Value(), nil
	}
	cacheLookups.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("hit", false)))

	v, err, shared := c.group.Do(strconv.FormatUint(key, 16), func() (any, error) {
		res, err := c.discover(ctx, path, c.opts)
		if err != nil {
			return nil, err
		}
		c.entries.Set(key, res, ttlcache.DefaultTTL)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Shared in-flight discovery", slog.String("path", path))
	}
	return v.(*stats.Result), nil
}

// Invalidate drops any cached statistics for path so the next Get
// recomputes them.
func (c *Cache) Invalidate(path string) {
	key, err := identity(path)
	if err != nil {
		return
	}
	c.entries.Delete(key)
}

// identity hashes the absolute path with the file's size and mtime.
func identity(path string) (uint64, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", path, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	d := xxhash.New()
	_, _ = d.WriteString(abs)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strconv.FormatInt(fi.Size(), 10))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strconv.FormatInt(fi.ModTime().UnixNano(), 10))
	return d.Sum64(), nil
}
