package cmd

import (
	"fmt"
	"runtime"

	"github.com/AnyUserName/rawpng/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rawpng",
	Short: "PNG encoder with explicit filter and compression control",
	Long: `rawpng encodes images into PNG files with a chosen color mode, bit depth,
scanline filter strategy, zlib level and optional Adam7 interlacing.

It can encode single files, batch-encode a directory into content-addressed
outputs with a manifest, and inspect the chunk structure of any PNG.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetVerbose(verbose)
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logging.Error().Err(err).Msg("command failed")
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"rawpng %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
