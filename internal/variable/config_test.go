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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseConfigMappingKeepsOrder(t *testing.T) {
	data := []byte(`
family: gas
downsampling: 0.5
variables:
  x:
    selected: true
    axis: x
    thr_min_sel: 0
    thr_max_sel: 10
  mass:
    selected: true
    thr_min_sel: 2.0
    thr_max_sel: 4.0
  vel-1:
    selected: false
    downsampling: 0.25
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, "gas", cfg.Family)
	assert.Equal(t, 0.5, cfg.Downsampling)
	require.Len(t, cfg.Variables, 3)
	assert.Equal(t, "x", cfg.Variables[0].Name)
	assert.Equal(t, "mass", cfg.Variables[1].Name)
	assert.Equal(t, "vel-1", cfg.Variables[2].Name)

	x := cfg.Variables[0]
	assert.Equal(t, AxisX, x.AxisRole)
	require.True(t, x.HasRange())
	assert.Equal(t, 0.0, *x.ThresholdMin)
	assert.Equal(t, 10.0, *x.ThresholdMax)

	sel := cfg.Selected()
	require.Len(t, sel, 2)
	assert.Equal(t, "mass", sel[1].Name)

	// vel-1 is not selected, so its fraction does not count.
	assert.Equal(t, 0.5, cfg.EffectiveDownsampling())
}

func TestParseConfigList(t *testing.T) {
	data := []byte(`
variables:
  - name: rho
    selected: true
    downsampling: 0.1
  - name: temp
    selected: true
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	require.Len(t, cfg.Variables, 2)
	assert.Equal(t, "rho", cfg.Variables[0].Name)
	assert.False(t, cfg.Variables[0].HasRange())
	assert.Equal(t, 0.1, cfg.EffectiveDownsampling())

	s, ok := cfg.Lookup("temp")
	assert.True(t, ok)
	assert.True(t, s.Selected)
	_, ok = cfg.Lookup("missing")
	assert.False(t, ok)
}

func TestParseConfigRejectsScalarVariables(t *testing.T) {
	_, err := ParseConfig([]byte("variables: 3\n"))
	assert.Error(t, err)
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := &Config{
		Downsampling: 1.5,
		Variables: []Selection{
			{Name: "a", Selected: true, AxisRole: AxisX, ThresholdMin: Float(5), ThresholdMax: Float(1)},
			{Name: "b", Selected: true, AxisRole: AxisX, Downsampling: -1},
			{Name: "a"},
			{Name: ""},
		},
	}
	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "downsampling must be between 0 (exclusive) and 1, got 1.5")
	assert.Contains(t, msg, `variable "a": thr_min_sel 5 is greater than thr_max_sel 1`)
	assert.Contains(t, msg, `variable "b": downsampling`)
	assert.Contains(t, msg, `axis x assigned to both "a" and "b"`)
	assert.Contains(t, msg, `variable "a" declared more than once`)
	assert.Contains(t, msg, "variable with empty name")
}

func TestValidateAcceptsZeroThresholds(t *testing.T) {
	cfg := &Config{Variables: []Selection{
		{Name: "v", Selected: true, ThresholdMin: Float(0), ThresholdMax: Float(0)},
	}}
	assert.NoError(t, cfg.Validate())
	s, _ := cfg.Lookup("v")
	assert.True(t, s.InRange(0))
	assert.False(t, s.InRange(0.1))
}

func TestEffectiveDownsamplingDefaults(t *testing.T) {
	var nilCfg *Config
	assert.Equal(t, 1.0, nilCfg.EffectiveDownsampling())
	assert.Equal(t, 1.0, (&Config{}).EffectiveDownsampling())

	cfg := &Config{Variables: []Selection{
		{Name: "a", Selected: true, Downsampling: 0.8},
		{Name: "b", Selected: true, Downsampling: 0.3},
		{Name: "c", Selected: true, Downsampling: 1},
	}}
	assert.Equal(t, 0.3, cfg.EffectiveDownsampling())
}

func TestSetReplacesExisting(t *testing.T) {
	cfg := &Config{}
	cfg.Set(Selection{Name: "a"})
	cfg.Set(Selection{Name: "b"})
	cfg.Set(Selection{Name: "a", Selected: true})
	require.Len(t, cfg.Variables, 2)
	assert.True(t, cfg.Variables[0].Selected)
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	cfg := &Config{
		Family: "star",
		Variables: []Selection{
			{Name: "z", Selected: true, AxisRole: AxisZ, ThresholdMin: Float(-1), ThresholdMax: Float(1)},
			{Name: "age", Selected: true},
		},
	}
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	back, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg.Family, back.Family)
	require.Len(t, back.Variables, 2)
	assert.Equal(t, "z", back.Variables[0].Name)
	assert.Equal(t, AxisZ, back.Variables[0].AxisRole)
	assert.Equal(t, -1.0, *back.Variables[0].ThresholdMin)
	assert.Equal(t, "age", back.Variables[1].Name)
	assert.Nil(t, back.Variables[1].ThresholdMin)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("variables:\n  mass:\n    selected: true\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Variables, 1)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("downsampling: 2\n"), 0o644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "invalid variable config")
}
