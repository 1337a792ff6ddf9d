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
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/astrovisio/internal/table"
)

// Write encodes t to w.
func Write(ctx context.Context, w io.Writer, t *table.Table, opts Options) error {
	switch opts.Format {
	case "", FormatMsgpack:
		if !opts.Zstd {
			return writeMsgpack(ctx, w, t)
		}
		zw := zstdPool.NewWriter(w)
		if err := writeMsgpack(ctx, zw, t); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	case FormatParquet:
		return writeParquet(ctx, w, t)
	case FormatArrow:
		return writeArrow(ctx, w, t)
	default:
		return fmt.Errorf("unknown output format %q", opts.Format)
	}
}

// WriteFile writes t to path. The data goes to a temporary file in the same
// directory which is renamed over path once complete, so readers never see
// a partial result.
func WriteFile(ctx context.Context, path string, t *table.Table, opts Options) (err error) {
	start := time.Now()
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = Write(ctx, tmp, t, opts); err != nil {
		return fmt.Errorf("write %s: %w", opts.Extension(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}

	filesWrittenCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("format", opts.Extension()),
	))
	slog.Debug("Wrote result file",
		slog.String("path", path),
		slog.Int("rows", t.NumRows()),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func writeParquet(ctx context.Context, w io.Writer, t *table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := t.ToRecord(memory.DefaultAllocator)
	if err != nil {
		return err
	}
	defer rec.Release()

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithDictionaryDefault(false),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	// pqarrow closes a sink that implements io.Closer; the caller owns w.
	fw, err := pqarrow.NewFileWriter(rec.Schema(), struct{ io.Writer }{w}, writerProps, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	return fw.Close()
}

func writeArrow(ctx context.Context, w io.Writer, t *table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := t.ToRecord(memory.DefaultAllocator)
	if err != nil {
		return err
	}
	defer rec.Release()

	fw, err := ipc.NewFileWriter(struct{ io.Writer }{w}, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return fmt.Errorf("failed to create arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	return fw.Close()
}
