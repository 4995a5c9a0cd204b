package pngenc

import (
	"encoding/binary"
	"fmt"
	"image"
)

// HeaderSize is the length of an IHDR payload.
const HeaderSize = 13

// Header is the decoded IHDR payload.
type Header struct {
	Width       uint32
	Height      uint32
	BitDepth    BitDepth
	ColorMode   ColorMode
	Compression uint8
	Filter      uint8
	Interlace   uint8
}

// MarshalBinary returns the 13-byte IHDR payload.
func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(b[0:4], h.Width)
	binary.BigEndian.PutUint32(b[4:8], h.Height)
	b[8] = uint8(h.BitDepth)
	b[9] = uint8(h.ColorMode)
	b[10] = h.Compression
	b[11] = h.Filter
	b[12] = h.Interlace
	return b, nil
}

// UnmarshalBinary parses an IHDR payload and checks the field values.
func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) != HeaderSize {
		return fmt.Errorf("IHDR payload is %d bytes, want %d", len(b), HeaderSize)
	}
	h.Width = binary.BigEndian.Uint32(b[0:4])
	h.Height = binary.BigEndian.Uint32(b[4:8])
	h.BitDepth = BitDepth(b[8])
	h.ColorMode = ColorMode(b[9])
	h.Compression = b[10]
	h.Filter = b[11]
	h.Interlace = b[12]

	switch {
	case h.Width == 0 || h.Height == 0:
		return fmt.Errorf("IHDR has zero dimension %dx%d", h.Width, h.Height)
	case !h.ColorMode.Allows(h.BitDepth):
		return fmt.Errorf("IHDR bit depth %d invalid for color type %d", h.BitDepth, h.ColorMode)
	case h.Compression != 0 || h.Filter != 0:
		return fmt.Errorf("IHDR unknown compression/filter method %d/%d", h.Compression, h.Filter)
	case h.Interlace > 1:
		return fmt.Errorf("IHDR unknown interlace method %d", h.Interlace)
	}
	return nil
}

// Options returns the encode options that produce this header, minus
// level, filter strategy and palette which IHDR does not record.
func (h Header) Options() Options {
	return Options{
		ColorMode: h.ColorMode,
		BitDepth:  h.BitDepth,
		Interlace: h.Interlace == 1,
		Width:     int(h.Width),
	}
}

// RowBytes is the packed length of a row of w pixels, without the tag.
func (h Header) RowBytes(w int) int {
	return h.Options().rowBytes(w)
}

// BytesPerPixel is the filter stride implied by the header.
func (h Header) BytesPerPixel() int {
	return h.Options().bytesPerPixel()
}

// Layout returns the dimensions of each sub-image stored, in order, in
// the decompressed IDAT stream: the whole image, or the non-empty Adam7
// passes when interlaced.
func (h Header) Layout() []image.Point {
	w, ht := int(h.Width), int(h.Height)
	if h.Interlace == 0 {
		return []image.Point{{X: w, Y: ht}}
	}
	var out []image.Point
	for _, p := range adam7 {
		pw, ph := p.size(w, ht)
		if pw > 0 && ph > 0 {
			out = append(out, image.Point{X: pw, Y: ph})
		}
	}
	return out
}

// ScanlineBytes is the length of the decompressed IDAT stream described
// by the header: one tag byte plus the packed row, for every row of
// every sub-image in Layout.
func (h Header) ScanlineBytes() int {
	n := 0
	for _, p := range h.Layout() {
		n += p.Y * (1 + h.RowBytes(p.X))
	}
	return n
}
