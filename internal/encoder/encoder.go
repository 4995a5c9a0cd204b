package encoder

import (
	"image"

	"github.com/AnyUserName/rawpng/internal/filter"
	"github.com/AnyUserName/rawpng/internal/raster"
)

// Settings controls one encode.
type Settings struct {
	// Format forces a color mode and bit depth. The zero value picks the
	// smallest lossless format for the image. Palette with depth 0 picks
	// the smallest depth that holds the image's palette.
	Format    raster.Format
	Level     int
	Filter    filter.Strategy
	Interlace bool
}

// Result is an encoded image and the format it was stored in.
type Result struct {
	Data   []byte
	Format raster.Format
}

// Encoder encodes an image to a specific format.
type Encoder interface {
	// Format returns the output format name.
	Format() string

	// Extension returns the file extension without dot.
	Extension() string

	// Encode converts the image to bytes.
	Encode(img image.Image, s Settings) (Result, error)
}
