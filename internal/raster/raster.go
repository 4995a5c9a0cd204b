// Package raster converts decoded images into the packed sample rows the
// PNG encoder consumes.
package raster

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"

	"github.com/AnyUserName/rawpng/internal/pngenc"
	"github.com/disintegration/imaging"
)

// Format is a color mode and bit depth pair.
type Format struct {
	Mode  pngenc.ColorMode
	Depth pngenc.BitDepth
}

func (f Format) String() string { return fmt.Sprintf("%s%d", f.Mode, f.Depth) }

// HasAlpha reports whether any pixel is not fully opaque.
func HasAlpha(img image.Image) bool {
	switch src := img.(type) {
	case *image.NRGBA:
		return anyBelow(src.Pix, 3, 4)
	case *image.RGBA:
		return anyBelow(src.Pix, 3, 4)
	case *image.YCbCr, *image.Gray, *image.Gray16:
		return false
	case *image.Paletted:
		for _, c := range src.Palette {
			if _, _, _, a := c.RGBA(); a < 0xffff {
				return true
			}
		}
		return false
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a < 0xffff {
				return true
			}
		}
	}
	return false
}

func anyBelow(pix []byte, start, stride int) bool {
	for i := start; i < len(pix); i += stride {
		if pix[i] < 255 {
			return true
		}
	}
	return false
}

// IsGray reports whether every pixel has equal red, green and blue.
func IsGray(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	case *image.YCbCr:
		// chroma planes are rarely exactly neutral; treat as color
		return false
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			if c.R != c.G || c.G != c.B {
				return false
			}
		}
	}
	return true
}

// Is16Bit reports whether the image type stores 16-bit samples.
func Is16Bit(img image.Image) bool {
	switch img.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		return true
	}
	return false
}

// Auto picks the smallest lossless format for img.
func Auto(img image.Image) Format {
	if p, ok := img.(*image.Paletted); ok && len(p.Palette) > 0 && !HasAlpha(img) {
		return Format{pngenc.Palette, PaletteDepth(len(p.Palette))}
	}
	depth := pngenc.BitDepth(8)
	if Is16Bit(img) {
		depth = 16
	}
	alpha := HasAlpha(img)
	switch {
	case IsGray(img) && alpha:
		return Format{pngenc.GrayscaleAlpha, depth}
	case IsGray(img):
		return Format{pngenc.Grayscale, depth}
	case alpha:
		return Format{pngenc.RGBAlpha, depth}
	}
	return Format{pngenc.RGB, depth}
}

// PaletteDepth is the smallest bit depth whose indices address n entries.
func PaletteDepth(n int) pngenc.BitDepth {
	switch {
	case n <= 2:
		return 1
	case n <= 4:
		return 2
	case n <= 16:
		return 4
	}
	return 8
}

// Palette returns the color table of a paletted image, or nil.
func Palette(img image.Image) color.Palette {
	if p, ok := img.(*image.Paletted); ok {
		return p.Palette
	}
	return nil
}

// Rows packs img into rows of samples for format f.
func Rows(img image.Image, f Format) ([][]byte, error) {
	if !f.Mode.Allows(f.Depth) {
		return nil, fmt.Errorf("raster: %s not a valid PNG format", f)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("raster: empty image")
	}
	switch {
	case f.Mode == pngenc.Palette:
		return paletteRows(img, int(f.Depth))
	case f.Depth == 16:
		return rows16(img, f.Mode), nil
	case f.Depth == 8:
		return rows8(img, f.Mode), nil
	}
	return grayPacked(img, int(f.Depth)), nil
}

// luma matches the weights of color.GrayModel on 16-bit samples.
func luma(r, g, b uint32) uint32 {
	return (19595*r + 38470*g + 7471*b + 1<<15) >> 16
}

func rows8(img image.Image, mode pngenc.ColorMode) [][]byte {
	if g, ok := img.(*image.Gray); ok && mode == pngenc.Grayscale {
		return copyRows(g.Pix, g.Stride, g.Rect.Dx(), g.Rect.Dy())
	}
	n := imaging.Clone(img)
	w, h := n.Rect.Dx(), n.Rect.Dy()
	if mode == pngenc.RGBAlpha {
		return copyRows(n.Pix, n.Stride, 4*w, h)
	}

	out := make([][]byte, h)
	ch := mode.Channels()
	for y := 0; y < h; y++ {
		src := n.Pix[y*n.Stride : y*n.Stride+4*w]
		row := make([]byte, ch*w)
		for x := 0; x < w; x++ {
			p := src[4*x : 4*x+4]
			switch mode {
			case pngenc.RGB:
				copy(row[3*x:], p[:3])
			case pngenc.Grayscale:
				row[x] = byte(luma(uint32(p[0])*0x101, uint32(p[1])*0x101, uint32(p[2])*0x101) >> 8)
			case pngenc.GrayscaleAlpha:
				row[2*x] = byte(luma(uint32(p[0])*0x101, uint32(p[1])*0x101, uint32(p[2])*0x101) >> 8)
				row[2*x+1] = p[3]
			}
		}
		out[y] = row
	}
	return out
}

func rows16(img image.Image, mode pngenc.ColorMode) [][]byte {
	b := img.Bounds()
	ch := mode.Channels()
	out := make([][]byte, 0, b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := make([]byte, 0, 2*ch*b.Dx())
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			r, g, bl := uint32(c.R), uint32(c.G), uint32(c.B)
			switch mode {
			case pngenc.Grayscale:
				row = binary.BigEndian.AppendUint16(row, uint16(luma(r, g, bl)))
			case pngenc.GrayscaleAlpha:
				row = binary.BigEndian.AppendUint16(row, uint16(luma(r, g, bl)))
				row = binary.BigEndian.AppendUint16(row, c.A)
			case pngenc.RGB:
				row = binary.BigEndian.AppendUint16(row, c.R)
				row = binary.BigEndian.AppendUint16(row, c.G)
				row = binary.BigEndian.AppendUint16(row, c.B)
			case pngenc.RGBAlpha:
				row = binary.BigEndian.AppendUint16(row, c.R)
				row = binary.BigEndian.AppendUint16(row, c.G)
				row = binary.BigEndian.AppendUint16(row, c.B)
				row = binary.BigEndian.AppendUint16(row, c.A)
			}
		}
		out = append(out, row)
	}
	return out
}

// grayPacked quantizes luma to depth bits and packs it MSB first.
func grayPacked(img image.Image, depth int) [][]byte {
	b := img.Bounds()
	w := b.Dx()
	out := make([][]byte, 0, b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := make([]byte, (w*depth+7)/8)
		for x := 0; x < w; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, y)).(color.Gray)
			pack(row, x, depth, g.Y>>(8-depth))
		}
		out = append(out, row)
	}
	return out
}

func paletteRows(img image.Image, depth int) ([][]byte, error) {
	p, ok := img.(image.PalettedImage)
	if !ok {
		return nil, fmt.Errorf("raster: palette format needs a paletted image, got %T", img)
	}
	limit := 1 << depth
	if pal := Palette(img); pal != nil && len(pal) < limit {
		limit = len(pal)
	}
	b := img.Bounds()
	w := b.Dx()
	out := make([][]byte, 0, b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := make([]byte, (w*depth+7)/8)
		for x := 0; x < w; x++ {
			idx := p.ColorIndexAt(b.Min.X+x, y)
			if int(idx) >= limit {
				return nil, fmt.Errorf("raster: palette index %d at (%d,%d) out of range for %d-bit, %d-entry palette", idx, x, y, depth, limit)
			}
			pack(row, x, depth, idx)
		}
		out = append(out, row)
	}
	return out, nil
}

func pack(row []byte, x, depth int, v byte) {
	if depth == 8 {
		row[x] = v
		return
	}
	off := x * depth
	row[off/8] |= v << (8 - depth - off%8)
}

func copyRows(pix []byte, stride, rowLen, h int) [][]byte {
	out := make([][]byte, h)
	for y := range out {
		out[y] = append([]byte(nil), pix[y*stride:y*stride+rowLen]...)
	}
	return out
}
