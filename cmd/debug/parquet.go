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

package debug

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

func openParquet(filename string) (*parquet.File, *os.File, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("failed to stat file %s: %w", filename, err)
	}
	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	return pf, file, nil
}

func catParquet(w io.Writer, filename string, limit int) error {
	pf, file, err := openParquet(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[map[string]any](pf, pf.Schema())
	defer func() { _ = reader.Close() }()

	out := newRowWriter(w, limit)
	batchSize := 1000
	for !out.full() {
		rows := make([]map[string]any, batchSize)
		for i := range rows {
			rows[i] = make(map[string]any)
		}
		n, err := reader.Read(rows)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("error reading parquet rows: %w", err)
		}
		for i := 0; i < n && !out.full(); i++ {
			if werr := out.write(rows[i]); werr != nil {
				return werr
			}
		}
		if n == 0 || errors.Is(err, io.EOF) {
			break
		}
	}
	return nil
}

func parquetSchema(w io.Writer, filename string) error {
	pf, file, err := openParquet(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	_, err = fmt.Fprintf(w, "%s\nrows: %d\n", pf.Schema().String(), pf.NumRows())
	return err
}
