package pngenc

import (
	"fmt"
	"image/color"

	"github.com/AnyUserName/rawpng/internal/filter"
)

// ColorMode is the PNG color type. The numeric values are the codes
// written to IHDR.
type ColorMode uint8

const (
	Grayscale      ColorMode = 0
	RGB            ColorMode = 2
	Palette        ColorMode = 3
	GrayscaleAlpha ColorMode = 4
	RGBAlpha       ColorMode = 6
)

func (m ColorMode) String() string {
	switch m {
	case Grayscale:
		return "gray"
	case RGB:
		return "rgb"
	case Palette:
		return "palette"
	case GrayscaleAlpha:
		return "gray-alpha"
	case RGBAlpha:
		return "rgba"
	}
	return fmt.Sprintf("colortype(%d)", uint8(m))
}

// ParseColorMode accepts the names produced by ColorMode.String.
func ParseColorMode(s string) (ColorMode, error) {
	for _, m := range []ColorMode{Grayscale, RGB, Palette, GrayscaleAlpha, RGBAlpha} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown color mode %q", s)
}

// Channels is the number of samples per pixel.
func (m ColorMode) Channels() int {
	switch m {
	case Grayscale, Palette:
		return 1
	case GrayscaleAlpha:
		return 2
	case RGB:
		return 3
	case RGBAlpha:
		return 4
	}
	return 0
}

// BitDepth is the number of bits per sample (per palette index for
// Palette images).
type BitDepth uint8

// Allows reports whether the PNG format permits depth d for mode m.
func (m ColorMode) Allows(d BitDepth) bool {
	switch m {
	case Grayscale:
		return d == 1 || d == 2 || d == 4 || d == 8 || d == 16
	case Palette:
		return d == 1 || d == 2 || d == 4 || d == 8
	case RGB, GrayscaleAlpha, RGBAlpha:
		return d == 8 || d == 16
	}
	return false
}

// Options configures a single encode. The zero value is not valid:
// BitDepth must be set.
type Options struct {
	ColorMode ColorMode
	BitDepth  BitDepth
	Interlace bool

	// Level is the zlib compression level, 0 (store) through 9 (best).
	Level int

	// Filter selects the scanline filter; the zero value leaves rows
	// unfiltered.
	Filter filter.Strategy

	// Width in pixels. Zero infers it from the first row: every bit of
	// the row is taken to belong to a pixel.
	Width int

	// Palette is required for, and only allowed with, the Palette color
	// mode. Alpha is ignored; only RGB is written to PLTE.
	Palette color.Palette
}

// MaxLevel is the highest accepted compression level.
const MaxLevel = 9

func (o Options) validate() error {
	if o.Level < 0 || o.Level > MaxLevel {
		return invalidOption("compression level %d outside [0, %d]", o.Level, MaxLevel)
	}
	if o.ColorMode.Channels() == 0 {
		return invalidOption("unknown color type %d", uint8(o.ColorMode))
	}
	if !o.ColorMode.Allows(o.BitDepth) {
		return invalidOption("bit depth %d not allowed for %s", o.BitDepth, o.ColorMode)
	}
	if !o.Filter.Valid() {
		return invalidOption("unknown filter strategy %d", uint8(o.Filter))
	}
	if o.Width < 0 {
		return invalidOption("negative width %d", o.Width)
	}
	if o.ColorMode == Palette {
		limit := 1 << o.BitDepth
		if limit > 256 {
			limit = 256
		}
		if len(o.Palette) == 0 {
			return invalidOption("palette color mode needs a palette")
		}
		if len(o.Palette) > limit {
			return invalidOption("palette has %d entries, bit depth %d allows %d", len(o.Palette), o.BitDepth, limit)
		}
	} else if len(o.Palette) > 0 {
		return invalidOption("palette given for %s image", o.ColorMode)
	}
	return nil
}

// bitsPerPixel is channels times depth.
func (o Options) bitsPerPixel() int {
	return o.ColorMode.Channels() * int(o.BitDepth)
}

// rowBytes is the packed length of a row of w pixels.
func (o Options) rowBytes(w int) int {
	return (w*o.bitsPerPixel() + 7) / 8
}

func (o Options) bytesPerPixel() int {
	return filter.BytesPerPixel(o.ColorMode.Channels(), int(o.BitDepth))
}
