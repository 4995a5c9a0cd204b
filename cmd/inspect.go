package cmd

import (
	"fmt"
	"os"

	"github.com/AnyUserName/rawpng/internal/filter"
	"github.com/AnyUserName/rawpng/internal/inspect"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.png>",
	Short: "Print the chunk layout and filter usage of a PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	rep, err := inspect.Reader(f)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", args[0], err)
	}
	printReport(args[0], rep)
	return nil
}

func printReport(name string, rep *inspect.Report) {
	h := rep.Header
	fmt.Println()
	fmt.Printf("  File:        %s\n", name)
	fmt.Printf("  Size:        %dx%d\n", h.Width, h.Height)
	fmt.Printf("  Format:      %s, %d bit\n", h.ColorMode, h.BitDepth)
	fmt.Printf("  Interlace:   %t\n", h.Interlace == 1)
	if rep.PaletteEntries > 0 {
		fmt.Printf("  Palette:     %d entries\n", rep.PaletteEntries)
	}
	fmt.Printf("  Scanlines:   %s\n", formatBytes(int64(rep.ScanlineBytes)))
	fmt.Printf("  Compressed:  %s (%.1f%%)\n", formatBytes(int64(rep.CompressedBytes)), rep.Ratio()*100)
	fmt.Printf("  Pixel hash:  %016x\n", rep.PixelHash)
	fmt.Println()

	fmt.Println("  Chunks:")
	for _, c := range rep.Chunks {
		fmt.Printf("    %s  %10d bytes  crc %08x\n", c.Type, c.Length, c.CRC)
	}
	fmt.Println()

	fmt.Println("  Filters:")
	for t, n := range rep.Filters {
		if n > 0 {
			fmt.Printf("    %-8s %6d rows\n", filter.Type(t), n)
		}
	}
	fmt.Println()
}
