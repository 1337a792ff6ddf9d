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

// Package debug holds commands for inspecting result files.
package debug

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
	"github.com/tinylib/msgp/msgp"
)

func GetResultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "result",
		Short: "Result file debugging utilities",
		Long:  `Utilities for inspecting msgpack, parquet and arrow result files.`,
	}
	cmd.AddCommand(getResultCatSubCmd())
	cmd.AddCommand(getResultSchemaSubCmd())
	return cmd
}

func getResultCatSubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat",
		Short: "Output result file rows as JSON lines",
		RunE: func(c *cobra.Command, _ []string) error {
			filename, err := c.Flags().GetString("file")
			if err != nil {
				return fmt.Errorf("failed to get file flag: %w", err)
			}
			limit, err := c.Flags().GetInt("limit")
			if err != nil {
				return fmt.Errorf("failed to get limit flag: %w", err)
			}
			return CatResult(c.OutOrStdout(), filename, limit)
		},
	}

	cmd.Flags().String("file", "", "Result file to read")
	if err := cmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Errorf("failed to mark file flag as required: %w", err))
	}
	cmd.Flags().Int("limit", 0, "Maximum number of rows to output (0 for unlimited)")
	return cmd
}

func getResultSchemaSubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the column layout of a parquet or arrow result file",
		RunE: func(c *cobra.Command, _ []string) error {
			filename, err := c.Flags().GetString("file")
			if err != nil {
				return fmt.Errorf("failed to get file flag: %w", err)
			}
			switch resultKind(filename) {
			case "parquet":
				return parquetSchema(c.OutOrStdout(), filename)
			case "arrow":
				return arrowSchema(c.OutOrStdout(), filename)
			default:
				return fmt.Errorf("%s: schema is only recorded in parquet and arrow files", filename)
			}
		},
	}

	cmd.Flags().String("file", "", "Result file to read")
	if err := cmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Errorf("failed to mark file flag as required: %w", err))
	}
	return cmd
}

func resultKind(filename string) string {
	name := strings.ToLower(filepath.Base(filename))
	switch {
	case strings.HasSuffix(name, ".msgpack.zst"):
		return "msgpack.zst"
	case strings.HasSuffix(name, ".msgpack"):
		return "msgpack"
	case strings.HasSuffix(name, ".parquet"):
		return "parquet"
	case strings.HasSuffix(name, ".arrow"):
		return "arrow"
	default:
		return ""
	}
}

// CatResult writes up to limit rows of a result file to w as JSON objects,
// one per line. A limit of 0 means every row.
func CatResult(w io.Writer, filename string, limit int) error {
	switch kind := resultKind(filename); kind {
	case "parquet":
		return catParquet(w, filename, limit)
	case "arrow":
		return catArrow(w, filename, limit)
	case "msgpack", "msgpack.zst":
		return catMsgpack(w, filename, limit, kind == "msgpack.zst")
	default:
		return fmt.Errorf("unrecognized result file extension: %s", filename)
	}
}

type rowWriter struct {
	enc     *json.Encoder
	limit   int
	written int
}

func newRowWriter(w io.Writer, limit int) *rowWriter {
	return &rowWriter{enc: json.NewEncoder(w), limit: limit}
}

func (r *rowWriter) full() bool {
	return r.limit > 0 && r.written >= r.limit
}

func (r *rowWriter) write(row map[string]any) error {
	if err := r.enc.Encode(row); err != nil {
		return fmt.Errorf("error marshaling row to JSON: %w", err)
	}
	r.written++
	return nil
}

func catArrow(w io.Writer, filename string, limit int) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer func() { _ = file.Close() }()

	reader, err := ipc.NewFileReader(file, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return fmt.Errorf("failed to open arrow file: %w", err)
	}
	defer func() { _ = reader.Close() }()

	out := newRowWriter(w, limit)
	fields := reader.Schema().Fields()
	for b := 0; b < reader.NumRecords() && !out.full(); b++ {
		rec, err := reader.Record(b)
		if err != nil {
			return fmt.Errorf("failed to read record batch %d: %w", b, err)
		}
		for i := 0; i < int(rec.NumRows()) && !out.full(); i++ {
			row := make(map[string]any, len(fields))
			for j, f := range fields {
				row[f.Name] = rec.Column(j).GetOneForMarshal(i)
			}
			if err := out.write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func arrowSchema(w io.Writer, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer func() { _ = file.Close() }()

	reader, err := ipc.NewFileReader(file)
	if err != nil {
		return fmt.Errorf("failed to open arrow file: %w", err)
	}
	defer func() { _ = reader.Close() }()

	_, err = fmt.Fprintln(w, reader.Schema().String())
	return err
}

func catMsgpack(w io.Writer, filename string, limit int, compressed bool) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer func() { _ = file.Close() }()

	var src io.Reader = bufio.NewReader(file)
	if compressed {
		dec, err := zstd.NewReader(src)
		if err != nil {
			return fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer dec.Close()
		src = dec
	}
	mr := msgp.NewReader(src)

	var columns []string
	fields, err := mr.ReadMapHeader()
	if err != nil {
		return fmt.Errorf("failed to read result header: %w", err)
	}
	out := newRowWriter(w, limit)
	for range fields {
		key, err := mr.ReadString()
		if err != nil {
			return err
		}
		switch key {
		case "columns":
			n, err := mr.ReadArrayHeader()
			if err != nil {
				return err
			}
			columns = make([]string, n)
			for i := range columns {
				if columns[i], err = mr.ReadString(); err != nil {
					return err
				}
			}
		case "rows":
			if columns == nil {
				return errors.New("rows appear before columns")
			}
			n, err := mr.ReadArrayHeader()
			if err != nil {
				return err
			}
			for r := uint32(0); r < n && !out.full(); r++ {
				row, err := readMsgpackRow(mr, columns)
				if err != nil {
					return fmt.Errorf("row %d: %w", r, err)
				}
				if err := out.write(row); err != nil {
					return err
				}
			}
			return nil
		default:
			if err := mr.Skip(); err != nil {
				return err
			}
		}
	}
	return nil
}

func readMsgpackRow(mr *msgp.Reader, columns []string) (map[string]any, error) {
	width, err := mr.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	if int(width) != len(columns) {
		return nil, fmt.Errorf("row has %d cells for %d columns", width, len(columns))
	}
	row := make(map[string]any, width)
	for _, name := range columns {
		v, err := mr.ReadIntf()
		if err != nil {
			return nil, err
		}
		row[name] = v
	}
	return row, nil
}
