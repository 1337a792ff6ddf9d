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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitComponent(t *testing.T) {
	tests := []struct {
		input string
		base  string
		index int
		ok    bool
	}{
		{"vel-0", "vel", 0, true},
		{"vel-2", "vel", 2, true},
		{"a-b-12", "a-b", 12, true},
		{"mass", "mass", 0, false},
		{"vel-", "vel-", 0, false},
		{"-1", "-1", 0, false},
		{"vel-x", "vel-x", 0, false},
		{"vel--1", "vel--1", 0, false},
		{"a-b--3", "a-b--3", 0, false},
		{"vel-+1", "vel-+1", 0, false},
	}

	for _, tt := range tests {
		base, index, ok := SplitComponent(tt.input)
		assert.Equal(t, tt.ok, ok, "ok for %q", tt.input)
		assert.Equal(t, tt.base, base, "base for %q", tt.input)
		assert.Equal(t, tt.index, index, "index for %q", tt.input)
	}
	assert.Equal(t, "vel-1", ComponentName("vel", 1))
}

func TestParseAxisRole(t *testing.T) {
	for input, expected := range map[string]AxisRole{
		"":     AxisNone,
		"none": AxisNone,
		"X":    AxisX,
		" y ":  AxisY,
		"z":    AxisZ,
	} {
		role, err := ParseAxisRole(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, role, input)
	}

	_, err := ParseAxisRole("w")
	assert.Error(t, err)

	assert.True(t, AxisZ.IsSpatial())
	assert.False(t, AxisNone.IsSpatial())
	assert.Equal(t, "none", AxisNone.String())
}
