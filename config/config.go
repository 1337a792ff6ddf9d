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

package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates configuration for the application.
type Config struct {
	Stats   StatsConfig   `mapstructure:"stats"`
	Build   BuildConfig   `mapstructure:"build"`
	Output  OutputConfig  `mapstructure:"output"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Catalog CatalogConfig `mapstructure:"catalog"`
}

type StatsConfig struct {
	Bins int `mapstructure:"bins"`
	// GridAxesShareValueRange gives cube x/y/z the value channel's range
	// instead of their own pixel-index range.
	GridAxesShareValueRange bool `mapstructure:"grid_axes_share_value_range"`
}

type BuildConfig struct {
	Float64Columns bool `mapstructure:"float64_columns"`
	// Seed drives downsampling; 0 picks a random seed per run.
	Seed uint64 `mapstructure:"seed"`
}

type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
	Zstd   bool   `mapstructure:"zstd"`
}

type CacheConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	Capacity uint64        `mapstructure:"capacity"`
}

type CatalogConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Stats:   StatsConfig{Bins: DefaultBins},
		Output:  OutputConfig{Dir: DefaultOutputDir, Format: DefaultOutputFormat},
		Cache:   CacheConfig{TTL: DefaultCacheTTL, Capacity: DefaultCacheCapacity},
		Catalog: CatalogConfig{Concurrency: DefaultCatalogConcurrency},
	}
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "ASTROVISIO" and the dot character
// in keys is replaced by an underscore. For example, "output.dir" becomes
// "ASTROVISIO_OUTPUT_DIR".
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("ASTROVISIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Stats.Bins <= 0 {
		return fmt.Errorf("stats.bins must be positive, got %d", c.Stats.Bins)
	}
	if c.Catalog.Concurrency <= 0 {
		return fmt.Errorf("catalog.concurrency must be positive, got %d", c.Catalog.Concurrency)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	return nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
