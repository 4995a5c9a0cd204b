// Package pngenc assembles PNG files from in-memory pixel rows.
//
// A file is written in a fixed order: signature, IHDR, PLTE (palette
// images only), one IDAT holding the zlib-compressed filtered scanlines,
// and IEND. Encoding is a pure function of its inputs; no state is
// shared between calls.
package pngenc

import (
	"fmt"
	"image/color"

	"github.com/AnyUserName/rawpng/internal/chunk"
	"github.com/AnyUserName/rawpng/internal/deflate"
	"github.com/AnyUserName/rawpng/internal/filter"
)

// Encoder encodes images with a configurable compressor. The zero value
// uses deflate.Default.
type Encoder struct {
	Compressor deflate.Compressor
}

// Encode encodes rows with the default compressor.
func Encode(rows [][]byte, opts Options) ([]byte, error) {
	var e Encoder
	return e.Encode(rows, opts)
}

// Encode returns the complete PNG file for rows. Each row holds packed
// samples, most significant bits first for depths below 8 and big-endian
// for depth 16. On error no bytes are returned.
func (e *Encoder) Encode(rows [][]byte, opts Options) ([]byte, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	width, err := checkGeometry(rows, opts)
	if err != nil {
		return nil, err
	}
	comp := e.Compressor
	if comp == nil {
		comp = deflate.Default
	}
	a := &assembler{
		rows:  rows,
		opts:  opts,
		width: width,
		comp:  comp,
	}
	return a.run()
}

// Scanlines returns the filtered scanline stream for rows: the exact
// bytes handed to the compressor.
func Scanlines(rows [][]byte, opts Options) ([]byte, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	width, err := checkGeometry(rows, opts)
	if err != nil {
		return nil, err
	}
	return scanlines(rows, width, opts), nil
}

// checkGeometry validates the grid and returns the image width.
func checkGeometry(rows [][]byte, o Options) (int, error) {
	if len(rows) == 0 {
		return 0, malformed("no rows")
	}
	n := len(rows[0])
	if n == 0 {
		return 0, malformed("empty first row")
	}
	for y, r := range rows {
		if len(r) != n {
			return 0, malformed("row %d is %d bytes, row 0 is %d", y, len(r), n)
		}
	}

	bits := o.bitsPerPixel()
	width := o.Width
	if width == 0 {
		if n*8%bits != 0 {
			return 0, malformed("row of %d bytes is not a whole number of %d-bit pixels", n, bits)
		}
		width = n * 8 / bits
	}
	if want := o.rowBytes(width); n != want {
		return 0, malformed("rows are %d bytes, %d pixels at %d bits need %d", n, width, bits, want)
	}
	if uint64(width) > chunk.MaxLength || uint64(len(rows)) > chunk.MaxLength {
		return 0, malformed("dimensions %dx%d exceed the format limit", width, len(rows))
	}
	if o.ColorMode == Palette {
		if err := checkIndices(rows, width, o); err != nil {
			return 0, err
		}
	}
	return width, nil
}

// checkIndices rejects palette indices with no PLTE entry. Padding bits
// after the last pixel are not indices and are ignored.
func checkIndices(rows [][]byte, width int, o Options) error {
	bits := int(o.BitDepth)
	n := len(o.Palette)
	if n >= 1<<bits {
		return nil
	}
	for y, r := range rows {
		for x := 0; x < width; x++ {
			var idx int
			if bits == 8 {
				idx = int(r[x])
			} else {
				idx = int(sample(r, x, bits))
			}
			if idx >= n {
				return malformed("palette index %d at (%d,%d), palette has %d entries", idx, x, y, n)
			}
		}
	}
	return nil
}

func scanlines(rows [][]byte, width int, o Options) []byte {
	bpp := o.bytesPerPixel()
	if !o.Interlace {
		return filter.Stream(rows, bpp, o.Filter)
	}
	var out []byte
	for _, p := range adam7 {
		sub := p.extract(rows, width, o)
		if sub == nil {
			continue
		}
		out = append(out, filter.Stream(sub, bpp, o.Filter)...)
	}
	return out
}

type state uint8

const (
	stateStart state = iota
	stateSignatureWritten
	stateHeaderWritten
	statePaletteWritten
	stateDataWritten
	stateFinalized
)

// assembler writes the chunks of one file. Each state emits exactly one
// section and advances to the next; there are no other transitions.
type assembler struct {
	rows  [][]byte
	opts  Options
	width int
	comp  deflate.Compressor

	st  state
	out []byte
}

func (a *assembler) run() ([]byte, error) {
	for a.st != stateFinalized {
		if err := a.step(); err != nil {
			a.out = nil
			return nil, err
		}
	}
	out := a.out
	a.out = nil
	return out, nil
}

func (a *assembler) step() error {
	var err error
	switch a.st {
	case stateStart:
		a.out = append(a.out, chunk.Signature...)
	case stateSignatureWritten:
		err = a.writeIHDR()
	case stateHeaderWritten:
		if a.opts.ColorMode == Palette {
			err = a.writePLTE()
		}
	case statePaletteWritten:
		err = a.writeIDAT()
	case stateDataWritten:
		a.out, err = chunk.Append(a.out, chunk.IEND, nil)
	default:
		return fmt.Errorf("pngenc: step from terminal state %d", a.st)
	}
	if err != nil {
		return err
	}
	a.st++
	return nil
}

func (a *assembler) writeIHDR() error {
	h := Header{
		Width:     uint32(a.width),
		Height:    uint32(len(a.rows)),
		BitDepth:  a.opts.BitDepth,
		ColorMode: a.opts.ColorMode,
	}
	if a.opts.Interlace {
		h.Interlace = 1
	}
	payload, err := h.MarshalBinary()
	if err != nil {
		return err
	}
	a.out, err = chunk.Append(a.out, chunk.IHDR, payload)
	return err
}

func (a *assembler) writePLTE() error {
	payload := make([]byte, 0, 3*len(a.opts.Palette))
	for _, c := range a.opts.Palette {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		payload = append(payload, n.R, n.G, n.B)
	}
	var err error
	a.out, err = chunk.Append(a.out, chunk.PLTE, payload)
	return err
}

func (a *assembler) writeIDAT() error {
	raw := scanlines(a.rows, a.width, a.opts)
	data, err := a.comp.Compress(raw, a.opts.Level)
	if err != nil {
		return fmt.Errorf("pngenc: %w: %w", ErrCompressionFailure, err)
	}
	a.out, err = chunk.Append(a.out, chunk.IDAT, data)
	return err
}
