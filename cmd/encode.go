package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AnyUserName/rawpng/internal/encoder"
	"github.com/AnyUserName/rawpng/internal/filter"
	"github.com/AnyUserName/rawpng/internal/logging"
	"github.com/AnyUserName/rawpng/internal/pipeline"
	"github.com/AnyUserName/rawpng/internal/pngenc"
	"github.com/AnyUserName/rawpng/internal/raster"
	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
)

var (
	encodeMode      string
	encodeDepth     int
	encodeFilter    string
	encodeLevel     int
	encodeInterlace bool
	encodeWidth     int
)

var encodeCmd = &cobra.Command{
	Use:   "encode <input> [output.png]",
	Short: "Encode one image to PNG",
	Long: `Decodes <input> (png, jpeg, gif, webp, bmp, tiff) and writes it as PNG.

Without --mode the smallest lossless color mode is chosen. The output
defaults to <input name>.png in the current directory.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runEncode,
}

func init() {
	encodeCmd.Flags().StringVarP(&encodeMode, "mode", "m", "auto", "color mode: auto, gray, gray-alpha, rgb, rgba, palette")
	encodeCmd.Flags().IntVarP(&encodeDepth, "depth", "d", 0, "bit depth 1, 2, 4, 8 or 16 (0 = 8, or smallest fitting the palette)")
	encodeCmd.Flags().StringVarP(&encodeFilter, "filter", "f", "adaptive", "filter: none, sub, up, average, paeth, adaptive")
	encodeCmd.Flags().IntVarP(&encodeLevel, "level", "l", 6, "zlib compression level 0-9")
	encodeCmd.Flags().BoolVarP(&encodeInterlace, "interlace", "i", false, "write Adam7 interlaced")
	encodeCmd.Flags().IntVarP(&encodeWidth, "width", "w", 0, "resize to this width, keeping aspect ratio")
	rootCmd.AddCommand(encodeCmd)
}

func encodeSettings() (encoder.Settings, error) {
	strategy, err := filter.ParseStrategy(encodeFilter)
	if err != nil {
		return encoder.Settings{}, err
	}
	s := encoder.Settings{
		Level:     encodeLevel,
		Filter:    strategy,
		Interlace: encodeInterlace,
	}
	if encodeMode == "auto" || encodeMode == "" {
		if encodeDepth != 0 {
			return s, fmt.Errorf("--depth needs an explicit --mode")
		}
		return s, nil
	}
	mode, err := pngenc.ParseColorMode(encodeMode)
	if err != nil {
		return s, err
	}
	depth := pngenc.BitDepth(encodeDepth)
	if depth == 0 && mode != pngenc.Palette {
		depth = 8
	}
	s.Format = raster.Format{Mode: mode, Depth: depth}
	return s, nil
}

func runEncode(_ *cobra.Command, args []string) error {
	input := args[0]
	output := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".png"
	if len(args) == 2 {
		output = args[1]
	}

	settings, err := encodeSettings()
	if err != nil {
		return err
	}

	img, format, err := pipeline.Decode(input)
	if err != nil {
		return fmt.Errorf("decode %s: %w", input, err)
	}
	if b := img.Bounds(); encodeWidth > 0 && encodeWidth != b.Dx() {
		h := b.Dy() * encodeWidth / b.Dx()
		if h < 1 {
			h = 1
		}
		img = imaging.Resize(img, encodeWidth, h, imaging.Lanczos)
	}

	res, err := encoder.NewPNG().Encode(img, settings)
	if err != nil {
		return fmt.Errorf("encode %s: %w", input, err)
	}
	if err := os.WriteFile(output, res.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	b := img.Bounds()
	logging.Info().
		Str("input", input).
		Str("source_format", format).
		Str("output", output).
		Str("format", res.Format.String()).
		Str("filter", settings.Filter.String()).
		Int("level", settings.Level).
		Msgf("wrote %dx%d, %s", b.Dx(), b.Dy(), formatBytes(int64(len(res.Data))))
	return nil
}
