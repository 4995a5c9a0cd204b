// Package deflate is the compression boundary between the filtered
// scanline stream and the IDAT payload.
package deflate

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Compressor turns the filtered scanline stream into a zlib stream that
// any conforming inflater restores byte for byte.
type Compressor interface {
	Compress(raw []byte, level int) ([]byte, error)
}

// CompressorFunc adapts a function to the Compressor interface.
type CompressorFunc func(raw []byte, level int) ([]byte, error)

func (f CompressorFunc) Compress(raw []byte, level int) ([]byte, error) { return f(raw, level) }

// Zlib compresses with klauspost/compress. Level 0 stores, 1-9 trade
// speed for size.
type Zlib struct{}

// Default is the compressor used when none is configured.
var Default Compressor = Zlib{}

func (Zlib) Compress(raw []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(raw)/2 + 64)

	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("zlib writer: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, fmt.Errorf("zlib write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

// ErrLimit reports a stream that inflates to more than the caller allowed.
var ErrLimit = errors.New("deflate: inflated data exceeds limit")

// Decompress inflates a zlib stream of at most limit bytes. Inflation
// stops one byte past the limit, so the output stays bounded whatever
// the compression ratio. A negative limit means no bound.
func Decompress(b []byte, limit int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("zlib reader: %w", err)
	}
	defer zr.Close()

	var r io.Reader = zr
	if limit >= 0 {
		r = io.LimitReader(zr, int64(limit)+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib read: %w", err)
	}
	if limit >= 0 && len(out) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrLimit, limit)
	}
	return out, nil
}
