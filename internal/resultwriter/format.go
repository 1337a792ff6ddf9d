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

// Package resultwriter serializes extracted tables to files.
package resultwriter

import (
	"fmt"
	"strings"
)

// Format names an output encoding.
type Format string

const (
	// FormatMsgpack is a msgpack map {"columns": [...], "rows": [[...], ...]}.
	FormatMsgpack Format = "msgpack"
	// FormatParquet is a zstd-compressed Parquet file.
	FormatParquet Format = "parquet"
	// FormatArrow is an Arrow IPC file.
	FormatArrow Format = "arrow"
)

// ParseFormat accepts a format name, case insensitive. An empty name means
// msgpack.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatMsgpack:
		return FormatMsgpack, nil
	case FormatParquet:
		return FormatParquet, nil
	case FormatArrow:
		return FormatArrow, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Options control how a table is written.
type Options struct {
	Format Format
	// Zstd wraps msgpack output in a zstd frame. Parquet pages are always
	// zstd compressed; Arrow output ignores it.
	Zstd bool
}

// Extension returns the file extension for the options, without a dot.
func (o Options) Extension() string {
	switch o.Format {
	case FormatParquet:
		return "parquet"
	case FormatArrow:
		return "arrow"
	default:
		if o.Zstd {
			return "msgpack.zst"
		}
		return "msgpack"
	}
}
