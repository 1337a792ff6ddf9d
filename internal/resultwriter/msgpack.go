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

package resultwriter

import (
	"context"
	"fmt"
	"io"

	"github.com/tinylib/msgp/msgp"

	"github.com/cardinalhq/astrovisio/internal/table"
)

// ctxCheckRows is how many rows are encoded between cancellation checks.
const ctxCheckRows = 1 << 16

// cellWriter encodes row i of one column.
type cellWriter func(w *msgp.Writer, i int) error

func cellWriterFor(c table.Column) (cellWriter, error) {
	switch v := c.(type) {
	case *table.Values[uint16]:
		d := v.Data()
		return func(w *msgp.Writer, i int) error { return w.WriteUint16(d[i]) }, nil
	case *table.Values[uint32]:
		d := v.Data()
		return func(w *msgp.Writer, i int) error { return w.WriteUint32(d[i]) }, nil
	case *table.Values[int32]:
		d := v.Data()
		return func(w *msgp.Writer, i int) error { return w.WriteInt32(d[i]) }, nil
	case *table.Values[float32]:
		d := v.Data()
		return func(w *msgp.Writer, i int) error { return w.WriteFloat32(d[i]) }, nil
	case *table.Values[float64]:
		d := v.Data()
		return func(w *msgp.Writer, i int) error { return w.WriteFloat64(d[i]) }, nil
	default:
		return nil, fmt.Errorf("column %q: unsupported type %T", c.Name(), c)
	}
}

// writeMsgpack emits {"columns": [names], "rows": [[cells], ...]} with each
// cell in its column's native width.
func writeMsgpack(ctx context.Context, out io.Writer, t *table.Table) error {
	cols := t.Columns()
	cells := make([]cellWriter, len(cols))
	for i, c := range cols {
		cw, err := cellWriterFor(c)
		if err != nil {
			return err
		}
		cells[i] = cw
	}

	w := msgp.NewWriter(out)
	if err := w.WriteMapHeader(2); err != nil {
		return err
	}
	if err := w.WriteString("columns"); err != nil {
		return err
	}
	if err := w.WriteArrayHeader(uint32(len(cols))); err != nil {
		return err
	}
	for _, c := range cols {
		if err := w.WriteString(c.Name()); err != nil {
			return err
		}
	}

	rows := t.NumRows()
	if err := w.WriteString("rows"); err != nil {
		return err
	}
	if err := w.WriteArrayHeader(uint32(rows)); err != nil {
		return err
	}
	for r := range rows {
		if r%ctxCheckRows == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := w.WriteArrayHeader(uint32(len(cells))); err != nil {
			return err
		}
		for _, cw := range cells {
			if err := cw(w, r); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}
