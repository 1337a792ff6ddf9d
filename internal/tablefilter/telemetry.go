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

package tablefilter

import (
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	rowsCroppedCounter otelmetric.Int64Counter
	cellsZeroedCounter otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/astrovisio/internal/tablefilter")

	var err error
	rowsCroppedCounter, err = meter.Int64Counter(
		"astrovisio.filter.rows.cropped",
		otelmetric.WithDescription("Number of rows removed by spatial threshold cropping"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create filter.rows.cropped counter: %w", err))
	}

	cellsZeroedCounter, err = meter.Int64Counter(
		"astrovisio.filter.cells.zeroed",
		otelmetric.WithDescription("Number of cells set to zero by value threshold masking"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create filter.cells.zeroed counter: %w", err))
	}
}
