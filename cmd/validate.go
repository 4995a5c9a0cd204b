package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/AnyUserName/rawpng/internal/hasher"
	"github.com/AnyUserName/rawpng/internal/inspect"
	"github.com/AnyUserName/rawpng/internal/manifest"
	"github.com/AnyUserName/rawpng/internal/pngenc"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <manifest_path>",
	Short: "Validate a rawpng manifest and the PNG files it references",
	Long: `Checks manifest fields, that every referenced file exists with the
recorded size and content hash, and that each file is a structurally valid
PNG whose header matches the recorded variant.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	path, err := manifestPath(args[0])
	if err != nil {
		return err
	}
	m, err := manifest.ReadJSON(path)
	if err != nil {
		return err
	}

	errs := validateManifest(m, filepath.Dir(path))
	if len(errs) == 0 {
		fmt.Println("  ✓ Manifest is valid")
		fmt.Printf("  ✓ %d assets, %d variants, all files present and well formed\n",
			m.Stats.TotalAssets, m.Stats.TotalVariants)
		return nil
	}

	fmt.Printf("  ✗ Manifest has %d error(s):\n", len(errs))
	for _, e := range errs {
		fmt.Printf("    • %s\n", e)
	}
	return fmt.Errorf("validation failed with %d errors", len(errs))
}

func validateManifest(m *manifest.Manifest, baseDir string) []string {
	var errs []string

	if m.Version != manifest.SupportedManifestVersion {
		errs = append(errs, fmt.Sprintf("unsupported manifest version: %d", m.Version))
	}

	for key, asset := range m.Assets {
		if asset.Original.Width <= 0 || asset.Original.Height <= 0 {
			errs = append(errs, fmt.Sprintf("asset %q: invalid original dimensions %dx%d",
				key, asset.Original.Width, asset.Original.Height))
		}
		if asset.AspectRatio <= 0 {
			errs = append(errs, fmt.Sprintf("asset %q: invalid aspect ratio %.4f", key, asset.AspectRatio))
		}
		if len(asset.Variants) == 0 {
			errs = append(errs, fmt.Sprintf("asset %q: no variants", key))
		}

		seenPaths := map[string]bool{}
		for i, v := range asset.Variants {
			if _, err := pngenc.ParseColorMode(v.ColorMode); err != nil {
				errs = append(errs, fmt.Sprintf("asset %q variant[%d]: %v", key, i, err))
			}
			if v.Width <= 0 || v.Height <= 0 {
				errs = append(errs, fmt.Sprintf("asset %q variant[%d]: invalid dimensions %dx%d",
					key, i, v.Width, v.Height))
			}
			if v.Hash == "" {
				errs = append(errs, fmt.Sprintf("asset %q variant[%d]: missing hash", key, i))
			}
			if v.Path == "" {
				errs = append(errs, fmt.Sprintf("asset %q variant[%d]: missing path", key, i))
				continue
			}
			if seenPaths[v.Path] {
				errs = append(errs, fmt.Sprintf("asset %q variant[%d]: duplicate path %q", key, i, v.Path))
			}
			seenPaths[v.Path] = true

			for _, e := range checkVariantFile(filepath.Join(baseDir, v.Path), v) {
				errs = append(errs, fmt.Sprintf("asset %q variant[%d]: %s", key, i, e))
			}
		}
	}

	assetCount := len(m.Assets)
	variantCount := 0
	for _, a := range m.Assets {
		variantCount += len(a.Variants)
	}
	if m.Stats.TotalAssets != assetCount {
		errs = append(errs, fmt.Sprintf("stats.total_assets mismatch: %d != %d", m.Stats.TotalAssets, assetCount))
	}
	if m.Stats.TotalVariants != variantCount {
		errs = append(errs, fmt.Sprintf("stats.total_variants mismatch: %d != %d", m.Stats.TotalVariants, variantCount))
	}

	return errs
}

// checkVariantFile compares one file on disk with its manifest entry.
func checkVariantFile(path string, v manifest.Variant) []string {
	f, err := os.Open(path)
	if err != nil {
		return []string{fmt.Sprintf("file not found: %s", v.Path)}
	}
	defer f.Close()

	var errs []string
	info, err := f.Stat()
	if err != nil {
		return []string{fmt.Sprintf("stat %s: %v", v.Path, err)}
	}
	if v.Size > 0 && info.Size() != v.Size {
		errs = append(errs, fmt.Sprintf("size mismatch: manifest=%d, disk=%d", v.Size, info.Size()))
	}
	if v.Hash != "" {
		h, err := hasher.ContentHashReader(f, len(v.Hash))
		if err != nil {
			return append(errs, fmt.Sprintf("hash %s: %v", v.Path, err))
		}
		if h != v.Hash {
			errs = append(errs, fmt.Sprintf("hash mismatch: manifest=%s, disk=%s", v.Hash, h))
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return append(errs, fmt.Sprintf("seek %s: %v", v.Path, err))
		}
	}

	rep, err := inspect.Reader(f)
	if err != nil {
		return append(errs, fmt.Sprintf("invalid png: %v", err))
	}
	h := rep.Header
	if int(h.Width) != v.Width || int(h.Height) != v.Height {
		errs = append(errs, fmt.Sprintf("header dimensions %dx%d, manifest %dx%d",
			h.Width, h.Height, v.Width, v.Height))
	}
	if h.ColorMode.String() != v.ColorMode || int(h.BitDepth) != v.BitDepth {
		errs = append(errs, fmt.Sprintf("header format %s/%d, manifest %s/%d",
			h.ColorMode, h.BitDepth, v.ColorMode, v.BitDepth))
	}
	if (h.Interlace == 1) != v.Interlace {
		errs = append(errs, fmt.Sprintf("header interlace %d, manifest %t", h.Interlace, v.Interlace))
	}
	return errs
}
