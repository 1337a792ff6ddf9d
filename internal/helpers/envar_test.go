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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue bool
		expected     bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"YES", false, true},
		{" on ", false, true},
		{"0", true, false},
		{"Disabled", true, false},
		{"something", false, true},
	}

	for _, tt := range tests {
		t.Setenv("ASTROVISIO_TEST_BOOL", tt.value)
		assert.Equal(t, tt.expected, GetBoolEnv("ASTROVISIO_TEST_BOOL", tt.defaultValue), "value %q", tt.value)
	}
}

func TestAnyBoolEnv(t *testing.T) {
	t.Setenv("ASTROVISIO_TEST_A", "")
	t.Setenv("ASTROVISIO_TEST_B", "false")
	assert.False(t, AnyBoolEnv("ASTROVISIO_TEST_A", "ASTROVISIO_TEST_B"))

	t.Setenv("ASTROVISIO_TEST_B", "1")
	assert.True(t, AnyBoolEnv("ASTROVISIO_TEST_A", "ASTROVISIO_TEST_B"))
}
