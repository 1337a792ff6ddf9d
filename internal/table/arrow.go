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

package table

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ArrowType returns the Arrow data type matching a column's element type.
func ArrowType(c Column) (arrow.DataType, error) {
	switch c.(type) {
	case *Values[uint16]:
		return arrow.PrimitiveTypes.Uint16, nil
	case *Values[uint32]:
		return arrow.PrimitiveTypes.Uint32, nil
	case *Values[int32]:
		return arrow.PrimitiveTypes.Int32, nil
	case *Values[float32]:
		return arrow.PrimitiveTypes.Float32, nil
	case *Values[float64]:
		return arrow.PrimitiveTypes.Float64, nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", c)
	}
}

// Schema returns the Arrow schema of t.
func (t *Table) Schema() (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(t.cols))
	for i, c := range t.cols {
		dt, err := ArrowType(c)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name(), err)
		}
		fields[i] = arrow.Field{Name: c.Name(), Type: dt, Nullable: false}
	}
	return arrow.NewSchema(fields, nil), nil
}

// ToRecord copies t into an Arrow record. The caller owns the result and
// must Release it.
func (t *Table) ToRecord(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	schema, err := t.Schema()
	if err != nil {
		return nil, err
	}

	arrays := make([]arrow.Array, len(t.cols))
	defer func() {
		for _, a := range arrays {
			if a != nil {
				a.Release()
			}
		}
	}()

	for i, c := range t.cols {
		switch v := c.(type) {
		case *Values[uint16]:
			b := array.NewUint16Builder(mem)
			b.AppendValues(v.Data(), nil)
			arrays[i] = b.NewArray()
			b.Release()
		case *Values[uint32]:
			b := array.NewUint32Builder(mem)
			b.AppendValues(v.Data(), nil)
			arrays[i] = b.NewArray()
			b.Release()
		case *Values[int32]:
			b := array.NewInt32Builder(mem)
			b.AppendValues(v.Data(), nil)
			arrays[i] = b.NewArray()
			b.Release()
		case *Values[float32]:
			b := array.NewFloat32Builder(mem)
			b.AppendValues(v.Data(), nil)
			arrays[i] = b.NewArray()
			b.Release()
		case *Values[float64]:
			b := array.NewFloat64Builder(mem)
			b.AppendValues(v.Data(), nil)
			arrays[i] = b.NewArray()
			b.Release()
		default:
			return nil, fmt.Errorf("column %q: unsupported column type %T", c.Name(), c)
		}
	}

	// NewRecord retains each array; the deferred Release drops ours.
	return array.NewRecord(schema, arrays, int64(t.NumRows())), nil
}
