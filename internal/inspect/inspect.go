// Package inspect checks the structure of an encoded PNG: chunk order,
// checksums, header fields and the size and filter tags of the
// decompressed scanline stream.
package inspect

import (
	"bytes"
	"fmt"
	"io"

	"github.com/AnyUserName/rawpng/internal/chunk"
	"github.com/AnyUserName/rawpng/internal/deflate"
	"github.com/AnyUserName/rawpng/internal/filter"
	"github.com/AnyUserName/rawpng/internal/pngenc"
	"github.com/cespare/xxhash/v2"
)

// ChunkInfo describes one chunk as stored in the file.
type ChunkInfo struct {
	Type   string
	Length uint32
	CRC    uint32
}

// Report is the result of a successful inspection.
type Report struct {
	Header          pngenc.Header
	Chunks          []ChunkInfo
	PaletteEntries  int
	CompressedBytes int
	ScanlineBytes   int
	// Filters counts rows per filter type across all sub-images.
	Filters [5]int
	// PixelHash is the xxHash64 of the unfiltered sample rows in stream
	// order. It does not depend on the filter choice or zlib level.
	PixelHash uint64
}

// Ratio is compressed size over scanline size.
func (r *Report) Ratio() float64 {
	if r.ScanlineBytes == 0 {
		return 0
	}
	return float64(r.CompressedBytes) / float64(r.ScanlineBytes)
}

// Bytes inspects an in-memory file.
func Bytes(b []byte) (*Report, error) {
	return Reader(bytes.NewReader(b))
}

// Reader reads a PNG from r and verifies it.
func Reader(r io.Reader) (*Report, error) {
	chunks, err := chunk.ReadAll(r)
	if err != nil {
		return nil, err
	}
	rep := &Report{}
	if err := rep.checkOrder(chunks); err != nil {
		return nil, err
	}
	if err := rep.Header.UnmarshalBinary(chunks[0].Data); err != nil {
		return nil, err
	}

	var idat []byte
	for _, c := range chunks {
		switch c.Type {
		case chunk.PLTE:
			if len(c.Data)%3 != 0 || len(c.Data) == 0 || len(c.Data) > 3*256 {
				return nil, fmt.Errorf("PLTE length %d", len(c.Data))
			}
			rep.PaletteEntries = len(c.Data) / 3
		case chunk.IDAT:
			idat = append(idat, c.Data...)
		}
	}
	if rep.Header.ColorMode == pngenc.Palette && rep.PaletteEntries == 0 {
		return nil, fmt.Errorf("palette image without PLTE")
	}
	rep.CompressedBytes = len(idat)

	want := rep.Header.ScanlineBytes()
	raw, err := deflate.Decompress(idat, want)
	if err != nil {
		return nil, fmt.Errorf("IDAT: %w", err)
	}
	rep.ScanlineBytes = len(raw)
	if len(raw) != want {
		return nil, fmt.Errorf("scanline stream is %d bytes, header implies %d", len(raw), want)
	}
	if err := rep.unfilter(raw); err != nil {
		return nil, err
	}
	return rep, nil
}

// checkOrder enforces IHDR first, IEND last, PLTE before the first IDAT
// and consecutive IDATs.
func (rep *Report) checkOrder(chunks []chunk.Chunk) error {
	if len(chunks) == 0 || chunks[0].Type != chunk.IHDR {
		return fmt.Errorf("first chunk is not IHDR")
	}
	if last := chunks[len(chunks)-1]; last.Type != chunk.IEND {
		return fmt.Errorf("missing IEND")
	}
	seenIDAT, idatDone := false, false
	for i, c := range chunks {
		rep.Chunks = append(rep.Chunks, ChunkInfo{Type: c.Type.String(), Length: c.Len(), CRC: c.CRC()})
		switch c.Type {
		case chunk.IHDR:
			if i != 0 {
				return fmt.Errorf("duplicate IHDR at chunk %d", i)
			}
		case chunk.PLTE:
			if seenIDAT {
				return fmt.Errorf("PLTE after IDAT")
			}
		case chunk.IDAT:
			if idatDone {
				return fmt.Errorf("IDAT chunks are not consecutive")
			}
			seenIDAT = true
		default:
			if !c.Type.Critical() {
				break
			}
			if c.Type != chunk.IEND {
				return fmt.Errorf("unknown critical chunk %s", c.Type)
			}
		}
		if seenIDAT && c.Type != chunk.IDAT {
			idatDone = true
		}
	}
	if !seenIDAT {
		return fmt.Errorf("no IDAT chunk")
	}
	return nil
}

// unfilter reconstructs every row of every sub-image, counting filter
// tags, hashing the samples and checking palette indices against PLTE.
func (rep *Report) unfilter(raw []byte) error {
	h := rep.Header
	bpp := h.BytesPerPixel()
	depth := int(h.BitDepth)
	digest := xxhash.New()
	off := 0
	for _, sub := range h.Layout() {
		n := h.RowBytes(sub.X)
		prev, cur := []byte(nil), make([]byte, n)
		for y := 0; y < sub.Y; y++ {
			t := filter.Type(raw[off])
			if err := filter.Unfilter(cur, raw[off+1:off+1+n], prev, bpp, t); err != nil {
				return fmt.Errorf("row %d at stream offset %d: %w", y, off, err)
			}
			rep.Filters[t]++
			if h.ColorMode == pngenc.Palette {
				if err := checkIndices(cur, sub.X, depth, rep.PaletteEntries); err != nil {
					return fmt.Errorf("row %d: %w", y, err)
				}
			}
			digest.Write(cur)
			if prev == nil {
				prev = make([]byte, n)
			}
			prev, cur = cur, prev
			off += 1 + n
		}
	}
	rep.PixelHash = digest.Sum64()
	return nil
}

func checkIndices(row []byte, width, depth, entries int) error {
	for x := 0; x < width; x++ {
		off := x * depth
		idx := int(row[off/8]>>(8-depth-off%8)) & (1<<depth - 1)
		if idx >= entries {
			return fmt.Errorf("palette index %d at x=%d, PLTE has %d entries", idx, x, entries)
		}
	}
	return nil
}
