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

package debugging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPprofPort(t *testing.T) {
	tests := []struct {
		env  string
		flag int
		want int
	}{
		{"", 0, 0},
		{"", 6060, 6060},
		{"7070", 0, 7070},
		{"off", 6060, 0},
		{"0", 6060, 0},
		{"bogus", 6060, 6060},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(PprofPortEnv, tt.env)
			assert.Equal(t, tt.want, pprofPort(tt.flag))
		})
	}
}
