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
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"

	"github.com/cardinalhq/astrovisio/internal/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(
		table.FromSlice[uint16]("x", []uint16{0, 1, 2}),
		table.FromSlice[uint16]("y", []uint16{3, 4, 5}),
		table.FromSlice[float32]("value", []float32{1.5, 2.5, 3.5}),
	)
	require.NoError(t, err)
	return tbl
}

func asFloat(t *testing.T, v any) float64 {
	t.Helper()
	switch n := v.(type) {
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	t.Fatalf("unexpected msgpack value %T", v)
	return 0
}

// decodeMsgpack reads the {"columns", "rows"} document back.
func decodeMsgpack(t *testing.T, r io.Reader) ([]string, [][]float64) {
	t.Helper()
	mr := msgp.NewReader(r)
	n, err := mr.ReadMapHeader()
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	key, err := mr.ReadString()
	require.NoError(t, err)
	require.Equal(t, "columns", key)
	nc, err := mr.ReadArrayHeader()
	require.NoError(t, err)
	cols := make([]string, nc)
	for i := range cols {
		cols[i], err = mr.ReadString()
		require.NoError(t, err)
	}

	key, err = mr.ReadString()
	require.NoError(t, err)
	require.Equal(t, "rows", key)
	nr, err := mr.ReadArrayHeader()
	require.NoError(t, err)
	rows := make([][]float64, nr)
	for i := range rows {
		w, err := mr.ReadArrayHeader()
		require.NoError(t, err)
		rows[i] = make([]float64, w)
		for j := range rows[i] {
			v, err := mr.ReadIntf()
			require.NoError(t, err)
			rows[i][j] = asFloat(t, v)
		}
	}
	return cols, rows
}

func TestWriteMsgpack(t *testing.T) {
	tbl := sampleTable(t)
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, tbl, Options{Format: FormatMsgpack}))

	cols, rows := decodeMsgpack(t, &buf)
	assert.Equal(t, []string{"x", "y", "value"}, cols)
	assert.Equal(t, [][]float64{{0, 3, 1.5}, {1, 4, 2.5}, {2, 5, 3.5}}, rows)
}

func TestWriteMsgpackZstd(t *testing.T) {
	tbl := sampleTable(t)
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, tbl, Options{Format: FormatMsgpack, Zstd: true}))

	dec, err := zstd.NewReader(&buf)
	require.NoError(t, err)
	defer dec.Close()
	cols, rows := decodeMsgpack(t, dec)
	assert.Equal(t, []string{"x", "y", "value"}, cols)
	assert.Len(t, rows, 3)
}

func TestWriteMsgpackEmptyTable(t *testing.T) {
	tbl, err := table.New(table.FromSlice[float32]("rho", nil))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, tbl, Options{}))

	cols, rows := decodeMsgpack(t, &buf)
	assert.Equal(t, []string{"rho"}, cols)
	assert.Empty(t, rows)
}

func TestWriteMsgpackCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Write(ctx, io.Discard, sampleTable(t), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteParquet(t *testing.T) {
	tbl := sampleTable(t)
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, tbl, Options{Format: FormatParquet}))

	pf, err := file.NewParquetReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = pf.Close() }()
	assert.EqualValues(t, 3, pf.NumRows())

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	require.NoError(t, err)
	got, err := fr.ReadTable(context.Background())
	require.NoError(t, err)
	defer got.Release()

	require.EqualValues(t, 3, got.NumCols())
	assert.Equal(t, "value", got.Schema().Field(2).Name)
	values := got.Column(2).Data().Chunk(0).(*array.Float32)
	assert.Equal(t, []float32{1.5, 2.5, 3.5}, values.Float32Values())
}

func TestWriteArrow(t *testing.T) {
	tbl := sampleTable(t)
	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), &buf, tbl, Options{Format: FormatArrow}))

	r, err := ipc.NewFileReader(bytes.NewReader(buf.Bytes()), ipc.WithAllocator(memory.NewGoAllocator()))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	require.Equal(t, 1, r.NumRecords())

	rec, err := r.Record(0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, rec.NumRows())
	assert.Equal(t, []uint16{3, 4, 5}, rec.Column(1).(*array.Uint16).Uint16Values())
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file_7_processed.parquet")
	require.NoError(t, WriteFile(context.Background(), path, sampleTable(t), Options{Format: FormatParquet}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "file_7_processed.parquet", entries[0].Name())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	pf, err := file.NewParquetReader(f)
	require.NoError(t, err)
	defer func() { _ = pf.Close() }()
	assert.EqualValues(t, 3, pf.NumRows())
	assert.Equal(t, 3, pf.MetaData().Schema.NumColumns())
}

func TestWriteFileArrow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_7_processed.arrow")
	require.NoError(t, WriteFile(context.Background(), path, sampleTable(t), Options{Format: FormatArrow}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	require.Equal(t, 1, r.NumRecords())

	rec, err := r.Record(0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, rec.NumRows())
}

func TestWriteFileFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.msgpack")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WriteFile(ctx, path, sampleTable(t), Options{})
	require.Error(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFormatOptions(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ext  string
		zstd bool
	}{
		{"", FormatMsgpack, "msgpack", false},
		{"msgpack", FormatMsgpack, "msgpack.zst", true},
		{"Parquet", FormatParquet, "parquet", true},
		{"arrow", FormatArrow, "arrow", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
			assert.Equal(t, tt.ext, Options{Format: f, Zstd: tt.zstd}.Extension())
		})
	}

	_, err := ParseFormat("csv")
	assert.Error(t, err)
}
