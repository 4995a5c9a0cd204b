package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AnyUserName/rawpng/internal/filter"
	"github.com/AnyUserName/rawpng/internal/logging"
	"github.com/AnyUserName/rawpng/internal/manifest"
	"github.com/AnyUserName/rawpng/internal/pipeline"
	"github.com/AnyUserName/rawpng/internal/profile"
	"github.com/spf13/cobra"
)

var (
	buildOutDir    string
	buildProfile   string
	buildWorkers   int
	buildWidths    []int
	buildLevel     int
	buildFilter    string
	buildInterlace bool
	buildNoRegress bool
)

var buildCmd = &cobra.Command{
	Use:   "build <input_dir>",
	Short: "Encode a directory of images to PNG variants + manifest",
	Long: `Scans input directory for images (png, jpg, jpeg, gif, webp, bmp, tiff),
resizes them to the profile widths, encodes every variant as PNG with the
profile's filter strategy and zlib level, and writes a manifest file.

Output filenames are content-addressed: <key>.<w>.<h>.<hash>.png`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutDir, "out", "o", "./rawpng_out", "output directory")
	buildCmd.Flags().StringVarP(&buildProfile, "profile", "p", "default", "encode profile: "+strings.Join(profile.Names(), ", "))
	buildCmd.Flags().IntVarP(&buildWorkers, "workers", "w", 0, "parallel workers (0 = NumCPU)")
	buildCmd.Flags().IntSliceVar(&buildWidths, "widths", nil, "custom widths (overrides profile)")
	buildCmd.Flags().IntVarP(&buildLevel, "level", "l", -1, "zlib level 0-9 (-1 = profile default)")
	buildCmd.Flags().StringVarP(&buildFilter, "filter", "f", "", "filter strategy (empty = profile default)")
	buildCmd.Flags().BoolVarP(&buildInterlace, "interlace", "i", false, "force Adam7 interlacing")
	buildCmd.Flags().BoolVar(&buildNoRegress, "no-regress-size", false, "skip variants larger than a PNG original")
	rootCmd.AddCommand(buildCmd)
}

func resolveProfile(cmd *cobra.Command) (profile.Profile, error) {
	prof, err := profile.Get(buildProfile)
	if err != nil {
		return prof, err
	}
	if buildWidths != nil {
		prof.Widths = buildWidths
	}
	if cmd.Flags().Changed("level") {
		prof.Level = buildLevel
	}
	if buildFilter != "" {
		s, err := filter.ParseStrategy(buildFilter)
		if err != nil {
			return prof, err
		}
		prof.Filter = s
	}
	if buildInterlace {
		prof.Interlace = true
	}
	return prof, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	inputDir := args[0]
	start := time.Now()

	absInput, err := filepath.Abs(inputDir)
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	absOutput, err := filepath.Abs(buildOutDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	prof, err := resolveProfile(cmd)
	if err != nil {
		return err
	}

	logging.Debug().
		Str("input", absInput).
		Str("output", absOutput).
		Str("profile", prof.Name).
		Ints("widths", prof.Widths).
		Int("level", prof.Level).
		Str("filter", prof.Filter.String()).
		Msg("starting build")

	if err := os.MkdirAll(absOutput, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	p := pipeline.New(pipeline.Config{
		InputDir:      absInput,
		OutputDir:     absOutput,
		Profile:       prof,
		Workers:       buildWorkers,
		NoRegressSize: buildNoRegress,
	})

	m, err := p.Run()
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	manifestPath := filepath.Join(absOutput, pipeline.ManifestName)
	if err := manifest.WriteJSON(m, manifestPath); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	printBuildReport(m, time.Since(start))
	return nil
}

func printBuildReport(m *manifest.Manifest, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════╗")
	fmt.Println("║              rawpng build complete               ║")
	fmt.Println("╚══════════════════════════════════════════════════╝")
	fmt.Println()

	stats := m.Stats
	ratio := float64(0)
	if stats.TotalInputBytes > 0 {
		ratio = float64(stats.TotalOutputBytes) / float64(stats.TotalInputBytes) * 100
	}

	fmt.Printf("  Assets:      %d\n", stats.TotalAssets)
	fmt.Printf("  Variants:    %d\n", stats.TotalVariants)
	fmt.Printf("  Input size:  %s\n", formatBytes(stats.TotalInputBytes))
	fmt.Printf("  Output size: %s\n", formatBytes(stats.TotalOutputBytes))
	fmt.Printf("  Ratio:       %.1f%% of original\n", ratio)
	if stats.SkippedRegress > 0 {
		fmt.Printf("  Skipped:     %d variants (larger than original)\n", stats.SkippedRegress)
	}
	if stats.Failed > 0 {
		fmt.Printf("  Failed:      %d sources\n", stats.Failed)
	}
	fmt.Printf("  Time:        %s\n", elapsed.Round(time.Millisecond))
	if m.BuildInfo != nil {
		fmt.Printf("  Workers:     %d\n", m.BuildInfo.Workers)
		fmt.Printf("  Encoding:    filter=%s level=%d interlace=%t\n",
			m.BuildInfo.Filter, m.BuildInfo.Level, m.BuildInfo.Interlace)
	}
	fmt.Println()

	if len(m.Assets) > 0 {
		type assetSize struct {
			key        string
			inputSize  int64
			outputSize int64
		}
		var items []assetSize
		for key, a := range m.Assets {
			var outSum int64
			for _, v := range a.Variants {
				outSum += v.Size
			}
			items = append(items, assetSize{key, a.Original.Size, outSum})
		}
		sort.Slice(items, func(i, j int) bool {
			return items[i].inputSize > items[j].inputSize
		})
		n := len(items)
		if n > 10 {
			n = 10
		}
		fmt.Printf("  Top %d heaviest (original → encoded):\n", n)
		for _, it := range items[:n] {
			fmt.Printf("    %-40s %8s → %8s\n",
				truncKey(it.key, 40),
				formatBytes(it.inputSize),
				formatBytes(it.outputSize),
			)
		}
		fmt.Println()
	}

	fmt.Printf("  Color modes: %s\n", strings.Join(colorModes(m), ", "))
	fmt.Printf("  Manifest:    %s\n", pipeline.ManifestName)
	fmt.Println()
}

// colorModes lists the distinct "mode/depth" pairs used by the variants.
func colorModes(m *manifest.Manifest) []string {
	set := map[string]bool{}
	for _, a := range m.Assets {
		for _, v := range a.Variants {
			set[fmt.Sprintf("%s/%d", v.ColorMode, v.BitDepth)] = true
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func truncKey(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n+3:]
}
