package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/AnyUserName/rawpng/internal/manifest"
	"github.com/AnyUserName/rawpng/internal/pipeline"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <out_dir_or_manifest>",
	Short: "Display statistics for a built output directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

// manifestPath accepts either a manifest file or the directory holding one.
func manifestPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return filepath.Join(path, pipeline.ManifestName), nil
	}
	return path, nil
}

func runStats(_ *cobra.Command, args []string) error {
	path, err := manifestPath(args[0])
	if err != nil {
		return err
	}
	m, err := manifest.ReadJSON(path)
	if err != nil {
		return err
	}
	printStats(m)
	return nil
}

type modeStat struct {
	count int
	bytes int64
}

// modeBreakdown groups variants by "mode/depth".
func modeBreakdown(m *manifest.Manifest) map[string]modeStat {
	out := map[string]modeStat{}
	for _, a := range m.Assets {
		for _, v := range a.Variants {
			k := fmt.Sprintf("%s/%d", v.ColorMode, v.BitDepth)
			s := out[k]
			s.count++
			s.bytes += v.Size
			out[k] = s
		}
	}
	return out
}

func printStats(m *manifest.Manifest) {
	fmt.Println()
	fmt.Printf("  Manifest version: %d\n", m.Version)
	fmt.Printf("  Generated:        %s\n", m.GeneratedAt)
	fmt.Printf("  Profile:          %s\n", m.Profile)
	if m.BuildInfo != nil {
		fmt.Printf("  Workers:          %d\n", m.BuildInfo.Workers)
		fmt.Printf("  Filter:           %s\n", m.BuildInfo.Filter)
		fmt.Printf("  Level:            %d\n", m.BuildInfo.Level)
	}
	fmt.Println()

	s := m.Stats
	fmt.Printf("  Total assets:     %d\n", s.TotalAssets)
	fmt.Printf("  Total variants:   %d\n", s.TotalVariants)
	fmt.Printf("  Input size:       %s\n", formatBytes(s.TotalInputBytes))
	fmt.Printf("  Output size:      %s\n", formatBytes(s.TotalOutputBytes))
	if s.TotalInputBytes > 0 {
		ratio := float64(s.TotalOutputBytes) / float64(s.TotalInputBytes) * 100
		fmt.Printf("  Compression:      %.1f%% of original\n", ratio)
	}
	fmt.Println()

	modes := modeBreakdown(m)
	keys := make([]string, 0, len(modes))
	for k := range modes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println("  Color mode breakdown:")
	for _, k := range keys {
		fmt.Printf("    %-14s  %4d files  %s\n", k, modes[k].count, formatBytes(modes[k].bytes))
	}
	fmt.Println()

	widthStats := map[int]int{}
	interlaced := 0
	for _, a := range m.Assets {
		for _, v := range a.Variants {
			widthStats[v.Width]++
			if v.Interlace {
				interlaced++
			}
		}
	}
	var widths []int
	for w := range widthStats {
		widths = append(widths, w)
	}
	sort.Ints(widths)
	fmt.Println("  Width breakdown:")
	for _, w := range widths {
		fmt.Printf("    %5dpx  %4d variants\n", w, widthStats[w])
	}
	fmt.Printf("  Interlaced:       %d / %d variants\n", interlaced, s.TotalVariants)

	var warnings []string
	for key, a := range m.Assets {
		if len(a.Variants) == 0 {
			warnings = append(warnings, fmt.Sprintf("asset %q has no variants", key))
		}
	}
	if s.Failed > 0 {
		warnings = append(warnings, fmt.Sprintf("%d sources failed to encode", s.Failed))
	}
	if len(warnings) > 0 {
		sort.Strings(warnings)
		fmt.Println()
		fmt.Printf("  Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Printf("    ⚠ %s\n", w)
		}
	}
	fmt.Println()
}
