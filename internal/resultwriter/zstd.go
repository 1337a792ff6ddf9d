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
	"io"
	"sync"

	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/klauspost/compress/zstd"
)

// encoderPool shares zstd encoders between Parquet page compression and
// msgpack framing. Each new encoder allocates its history window, so they
// are reused per level.
type encoderPool struct {
	pools sync.Map // zstd.EncoderLevel -> *sync.Pool

	decoder     *zstd.Decoder
	decoderOnce sync.Once
}

var zstdPool = &encoderPool{}

var _ compress.Codec = (*encoderPool)(nil)

func init() {
	compress.RegisterCodec(compress.Codecs.Zstd, zstdPool)
}

func levelOf(level int) zstd.EncoderLevel {
	if level == compress.DefaultCompressionLevel {
		return zstd.SpeedDefault
	}
	return zstd.EncoderLevelFromZstd(level)
}

func (p *encoderPool) pool(level zstd.EncoderLevel) *sync.Pool {
	if sp, ok := p.pools.Load(level); ok {
		return sp.(*sync.Pool)
	}
	sp, _ := p.pools.LoadOrStore(level, &sync.Pool{
		New: func() any {
			enc, _ := zstd.NewWriter(nil, zstd.WithZeroFrames(true), zstd.WithEncoderLevel(level))
			return enc
		},
	})
	return sp.(*sync.Pool)
}

func (p *encoderPool) get(level zstd.EncoderLevel) *zstd.Encoder {
	return p.pool(level).Get().(*zstd.Encoder)
}

func (p *encoderPool) put(level zstd.EncoderLevel, enc *zstd.Encoder) {
	p.pool(level).Put(enc)
}

func (p *encoderPool) getDecoder() *zstd.Decoder {
	p.decoderOnce.Do(func() {
		p.decoder, _ = zstd.NewReader(nil)
	})
	return p.decoder
}

func (p *encoderPool) Decode(dst, src []byte) []byte {
	out, err := p.getDecoder().DecodeAll(src, dst[:0])
	if err != nil {
		panic(err)
	}
	return out
}

func (p *encoderPool) Encode(dst, src []byte) []byte {
	return p.EncodeLevel(dst, src, compress.DefaultCompressionLevel)
}

func (p *encoderPool) EncodeLevel(dst, src []byte, level int) []byte {
	l := levelOf(level)
	enc := p.get(l)
	defer p.put(l, enc)
	return enc.EncodeAll(src, dst[:0])
}

// CompressBound is ZSTD_COMPRESSBOUND from zstd.h.
func (p *encoderPool) CompressBound(n int64) int64 {
	extra := ((128 << 10) - n) >> 11
	if n >= (128 << 10) {
		extra = 0
	}
	return n + (n >> 8) + extra
}

func (p *encoderPool) NewReader(r io.Reader) io.ReadCloser {
	dec, _ := zstd.NewReader(r)
	return dec.IOReadCloser()
}

func (p *encoderPool) NewWriter(w io.Writer) io.WriteCloser {
	return p.writer(w, levelOf(compress.DefaultCompressionLevel))
}

func (p *encoderPool) NewWriterLevel(w io.Writer, level int) (io.WriteCloser, error) {
	return p.writer(w, levelOf(level)), nil
}

func (p *encoderPool) writer(w io.Writer, level zstd.EncoderLevel) *pooledWriter {
	enc := p.get(level)
	enc.Reset(w)
	return &pooledWriter{Encoder: enc, level: level, pool: p}
}

// pooledWriter returns its encoder to the pool on Close.
type pooledWriter struct {
	*zstd.Encoder
	level zstd.EncoderLevel
	pool  *encoderPool
}

func (w *pooledWriter) Close() error {
	err := w.Encoder.Close()
	w.Encoder.Reset(nil)
	w.pool.put(w.level, w.Encoder)
	return err
}
