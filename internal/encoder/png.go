package encoder

import (
	"image"

	"github.com/AnyUserName/rawpng/internal/pngenc"
	"github.com/AnyUserName/rawpng/internal/raster"
)

// PNGEncoder rasterizes images and encodes them with pngenc.
type PNGEncoder struct {
	enc pngenc.Encoder
}

// NewPNG returns a PNG encoder using the default compressor.
func NewPNG() *PNGEncoder { return &PNGEncoder{} }

func (e *PNGEncoder) Format() string    { return "png" }
func (e *PNGEncoder) Extension() string { return "png" }

func (e *PNGEncoder) Encode(img image.Image, s Settings) (Result, error) {
	f := s.Format
	switch {
	case f == (raster.Format{}):
		f = raster.Auto(img)
	case f.Mode == pngenc.Palette && f.Depth == 0:
		f.Depth = raster.PaletteDepth(len(raster.Palette(img)))
	}
	rows, err := raster.Rows(img, f)
	if err != nil {
		return Result{}, err
	}
	opts := pngenc.Options{
		ColorMode: f.Mode,
		BitDepth:  f.Depth,
		Interlace: s.Interlace,
		Level:     s.Level,
		Filter:    s.Filter,
		Width:     img.Bounds().Dx(),
	}
	if f.Mode == pngenc.Palette {
		opts.Palette = raster.Palette(img)
	}
	data, err := e.enc.Encode(rows, opts)
	if err != nil {
		return Result{}, err
	}
	return Result{Data: data, Format: f}, nil
}
