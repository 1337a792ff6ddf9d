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

package variable

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Selection overlays a request's choices on top of a discovered variable.
// ThresholdMin and ThresholdMax are nil when unset; zero is a valid bound.
type Selection struct {
	Name         string   `yaml:"name"`
	Selected     bool     `yaml:"selected"`
	AxisRole     AxisRole `yaml:"axis"`
	ThresholdMin *float64 `yaml:"thr_min_sel"`
	ThresholdMax *float64 `yaml:"thr_max_sel"`

	// Downsampling is the fraction of rows to keep, in (0, 1]. Zero means
	// "not specified" and behaves like 1.
	Downsampling float64 `yaml:"downsampling"`
}

// HasRange reports whether both selected thresholds are present.
func (s Selection) HasRange() bool {
	return s.ThresholdMin != nil && s.ThresholdMax != nil
}

// InRange reports whether v lies within the selected thresholds. It is only
// meaningful when HasRange is true.
func (s Selection) InRange(v float64) bool {
	return v >= *s.ThresholdMin && v <= *s.ThresholdMax
}

// Config is the per-file extraction configuration supplied by the caller.
// Variables keep the order in which they were declared; particle tables
// emit columns in that order.
type Config struct {
	// Family selects the particle family; empty picks the first one.
	Family string `yaml:"family"`
	// Downsampling is the file-level row fraction, combined with any
	// per-variable fraction (the smallest wins).
	Downsampling float64     `yaml:"downsampling"`
	Variables    []Selection `yaml:"-"`
}

// Lookup returns the selection named name.
func (c *Config) Lookup(name string) (Selection, bool) {
	if c == nil {
		return Selection{}, false
	}
	for _, s := range c.Variables {
		if s.Name == name {
			return s, true
		}
	}
	return Selection{}, false
}

// Selected returns the selected variables in declaration order.
func (c *Config) Selected() []Selection {
	if c == nil {
		return nil
	}
	out := make([]Selection, 0, len(c.Variables))
	for _, s := range c.Variables {
		if s.Selected {
			out = append(out, s)
		}
	}
	return out
}

// Set replaces or appends the selection with the same name.
func (c *Config) Set(s Selection) {
	for i := range c.Variables {
		if c.Variables[i].Name == s.Name {
			c.Variables[i] = s
			return
		}
	}
	c.Variables = append(c.Variables, s)
}

// EffectiveDownsampling returns the single table-wide fraction to sample to:
// the smallest valid fraction among the file-level value and every selected
// variable. It returns 1 when nothing asks for fewer rows.
func (c *Config) EffectiveDownsampling() float64 {
	f := 1.0
	if c == nil {
		return f
	}
	if c.Downsampling > 0 && c.Downsampling < f {
		f = c.Downsampling
	}
	for _, s := range c.Variables {
		if s.Selected && s.Downsampling > 0 && s.Downsampling < f {
			f = s.Downsampling
		}
	}
	return f
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs *multierror.Error
	if !validFraction(c.Downsampling) {
		errs = multierror.Append(errs, fmt.Errorf("downsampling must be between 0 (exclusive) and 1, got %v", c.Downsampling))
	}
	seen := make(map[string]bool, len(c.Variables))
	roles := make(map[AxisRole]string, 3)
	for _, s := range c.Variables {
		if s.Name == "" {
			errs = multierror.Append(errs, errors.New("variable with empty name"))
			continue
		}
		if seen[s.Name] {
			errs = multierror.Append(errs, fmt.Errorf("variable %q declared more than once", s.Name))
		}
		seen[s.Name] = true
		if !validFraction(s.Downsampling) {
			errs = multierror.Append(errs, fmt.Errorf("variable %q: downsampling must be between 0 (exclusive) and 1, got %v", s.Name, s.Downsampling))
		}
		if s.HasRange() && *s.ThresholdMin > *s.ThresholdMax {
			errs = multierror.Append(errs, fmt.Errorf("variable %q: thr_min_sel %v is greater than thr_max_sel %v", s.Name, *s.ThresholdMin, *s.ThresholdMax))
		}
		if s.AxisRole.IsSpatial() && s.Selected {
			if other, ok := roles[s.AxisRole]; ok {
				errs = multierror.Append(errs, fmt.Errorf("axis %s assigned to both %q and %q", s.AxisRole, other, s.Name))
			}
			roles[s.AxisRole] = s.Name
		}
	}
	return errs.ErrorOrNil()
}

func validFraction(f float64) bool {
	return f == 0 || (f > 0 && f <= 1)
}

// UnmarshalYAML accepts roles such as "x" or "none".
func (r *AxisRole) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	role, err := ParseAxisRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// MarshalYAML writes the role as its string form.
func (r AxisRole) MarshalYAML() (any, error) {
	return r.String(), nil
}

type configDocument struct {
	Family       string    `yaml:"family,omitempty"`
	Downsampling float64   `yaml:"downsampling,omitempty"`
	Variables    yaml.Node `yaml:"variables"`
}

// UnmarshalYAML decodes a configuration whose variables are either a list of
// selections with a name field, or a mapping from name to selection. Mapping
// order is preserved.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var doc configDocument
	if err := value.Decode(&doc); err != nil {
		return err
	}
	c.Family = doc.Family
	c.Downsampling = doc.Downsampling
	c.Variables = nil

	switch doc.Variables.Kind {
	case 0:
		return nil
	case yaml.SequenceNode:
		return doc.Variables.Decode(&c.Variables)
	case yaml.MappingNode:
		content := doc.Variables.Content
		for i := 0; i+1 < len(content); i += 2 {
			var s Selection
			if err := content[i+1].Decode(&s); err != nil {
				return fmt.Errorf("variable %q: %w", content[i].Value, err)
			}
			s.Name = content[i].Value
			c.Variables = append(c.Variables, s)
		}
		return nil
	default:
		return fmt.Errorf("line %d: variables must be a list or a mapping", doc.Variables.Line)
	}
}

// MarshalYAML writes variables as an ordered mapping.
func (c Config) MarshalYAML() (any, error) {
	vars := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range c.Variables {
		body := struct {
			Selected     bool     `yaml:"selected"`
			AxisRole     AxisRole `yaml:"axis,omitempty"`
			ThresholdMin *float64 `yaml:"thr_min_sel,omitempty"`
			ThresholdMax *float64 `yaml:"thr_max_sel,omitempty"`
			Downsampling float64  `yaml:"downsampling,omitempty"`
		}{s.Selected, s.AxisRole, s.ThresholdMin, s.ThresholdMax, s.Downsampling}
		var val yaml.Node
		if err := val.Encode(body); err != nil {
			return nil, err
		}
		vars.Content = append(vars.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: s.Name},
			&val,
		)
	}
	return configDocument{
		Family:       c.Family,
		Downsampling: c.Downsampling,
		Variables:    *vars,
	}, nil
}

// ParseConfig decodes and validates a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse variable config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid variable config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variable config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Float returns a pointer to v, for building thresholds in code.
func Float(v float64) *float64 {
	return &v
}
