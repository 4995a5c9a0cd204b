package pipeline

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/AnyUserName/rawpng/internal/encoder"
	"github.com/AnyUserName/rawpng/internal/hasher"
	"github.com/AnyUserName/rawpng/internal/manifest"
	"github.com/AnyUserName/rawpng/internal/raster"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// processResult holds the result of processing a single source image.
type processResult struct {
	key            string
	asset          manifest.Asset
	err            error
	skippedRegress int // variants skipped because larger than original
}

// Decode opens and decodes an image file in any registered format.
func Decode(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	return image.Decode(f)
}

// processImage handles a single source image: decode, resize, encode, write.
func processImage(src Source, cfg Config, enc encoder.Encoder, log zerolog.Logger) processResult {
	result := processResult{key: src.Key}

	img, _, err := Decode(src.AbsPath)
	if err != nil {
		result.err = fmt.Errorf("decode %s: %w", src.RelPath, err)
		return result
	}

	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW == 0 || origH == 0 {
		result.err = fmt.Errorf("decode %s: empty image", src.RelPath)
		return result
	}

	result.asset = manifest.Asset{
		Original: manifest.OriginalInfo{
			Width:    origW,
			Height:   origH,
			Format:   src.Format,
			Size:     src.Size,
			HasAlpha: raster.HasAlpha(img),
		},
		AspectRatio: float64(origW) / float64(origH),
	}

	keyDir := filepath.Dir(src.Key)
	if keyDir != "." {
		if err := os.MkdirAll(filepath.Join(cfg.OutputDir, keyDir), 0o755); err != nil {
			result.err = fmt.Errorf("create %s: %w", keyDir, err)
			return result
		}
	}

	settings := encoder.Settings{
		Level:     cfg.Profile.Level,
		Filter:    cfg.Profile.Filter,
		Interlace: cfg.Profile.Interlace,
	}

	// Files written so far are removed if a later variant fails, so the
	// output directory only holds files the manifest lists.
	var written []string
	fail := func(err error) processResult {
		for _, p := range written {
			if rmErr := os.Remove(p); rmErr != nil {
				log.Warn().Err(rmErr).Str("path", p).Msg("cleanup failed")
			}
		}
		result.err = err
		return result
	}

	for _, w := range cfg.Profile.EffectiveWidths(origW) {
		h := int(float64(origH) * float64(w) / float64(origW))
		if h < 1 {
			h = 1
		}

		variant := img
		if w != origW {
			// Resizing yields NRGBA; a paletted source loses its table here.
			variant = imaging.Resize(img, w, h, imaging.Lanczos)
		} else {
			h = origH
		}

		res, err := enc.Encode(variant, settings)
		if err != nil {
			return fail(fmt.Errorf("encode %s@%dx%d: %w", src.Key, w, h, err))
		}

		if cfg.NoRegressSize && src.Format == "png" && int64(len(res.Data)) >= src.Size {
			log.Debug().
				Str("key", src.Key).
				Int("width", w).
				Int("encoded", len(res.Data)).
				Int64("original", src.Size).
				Msg("skip: not smaller than original")
			result.skippedRegress++
			continue
		}

		contentHash := hasher.ContentHash(res.Data, 16)

		// key.w.h.hash.ext
		fileName := fmt.Sprintf("%s.%d.%d.%s.%s",
			filepath.Base(src.Key), w, h, contentHash[:8], enc.Extension())
		relPath := filepath.ToSlash(filepath.Join(keyDir, fileName))

		outPath := filepath.Join(cfg.OutputDir, relPath)
		if err := os.WriteFile(outPath, res.Data, 0o644); err != nil {
			os.Remove(outPath)
			return fail(fmt.Errorf("write %s: %w", relPath, err))
		}
		written = append(written, outPath)

		result.asset.Variants = append(result.asset.Variants, manifest.Variant{
			Width:     w,
			Height:    h,
			ColorMode: res.Format.Mode.String(),
			BitDepth:  int(res.Format.Depth),
			Interlace: settings.Interlace,
			Size:      int64(len(res.Data)),
			Hash:      contentHash,
			Path:      relPath,
		})
	}

	return result
}
