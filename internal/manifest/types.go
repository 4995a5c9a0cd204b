package manifest

// Manifest is the top-level output of a rawpng build.
type Manifest struct {
	Version     int              `json:"version"`
	GeneratedAt string           `json:"generated_at"`
	Profile     string           `json:"profile"`
	BasePath    string           `json:"base_path"`
	BuildInfo   *BuildInfo       `json:"build_info,omitempty"`
	Assets      map[string]Asset `json:"assets"`
	Stats       Stats            `json:"stats"`
}

// BuildInfo captures build-time parameters for diagnostics.
type BuildInfo struct {
	Workers   int    `json:"workers"`
	Level     int    `json:"level"`
	Filter    string `json:"filter"`
	Interlace bool   `json:"interlace,omitempty"`
}

// Asset describes a single source image and all its encoded variants.
type Asset struct {
	Original    OriginalInfo `json:"original"`
	AspectRatio float64      `json:"aspect_ratio"` // width / height
	Variants    []Variant    `json:"variants"`
}

// OriginalInfo holds metadata about the source image.
type OriginalInfo struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
	HasAlpha bool   `json:"has_alpha"`
}

// Variant is one PNG output of an asset.
type Variant struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	ColorMode string `json:"color_mode"` // "gray", "rgb", "palette", "gray-alpha", "rgba"
	BitDepth  int    `json:"bit_depth"`
	Interlace bool   `json:"interlace,omitempty"`
	Size      int64  `json:"size"` // bytes on disk
	Hash      string `json:"hash"` // first 16 hex chars of xxhash64
	Path      string `json:"path"` // relative to base_path
}

// Stats aggregates build metrics.
type Stats struct {
	TotalInputBytes  int64 `json:"total_input_bytes"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
	TotalAssets      int   `json:"total_assets"`
	TotalVariants    int   `json:"total_variants"`
	SkippedRegress   int   `json:"skipped_regress,omitempty"` // variants skipped (larger than original)
	Failed           int   `json:"failed,omitempty"`          // sources that could not be processed
}

// SupportedManifestVersion is the current schema version.
const SupportedManifestVersion = 1
