package pipeline

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/AnyUserName/rawpng/internal/encoder"
	"github.com/AnyUserName/rawpng/internal/logging"
	"github.com/AnyUserName/rawpng/internal/manifest"
	"github.com/AnyUserName/rawpng/internal/profile"
)

// ManifestName is the file written next to the encoded outputs.
const ManifestName = "rawpng.manifest.json"

// Config holds all parameters for a build pipeline run.
type Config struct {
	InputDir      string
	OutputDir     string
	Profile       profile.Profile
	Workers       int
	NoRegressSize bool // skip PNG variants not smaller than the source file
}

// Pipeline orchestrates image processing.
type Pipeline struct {
	cfg Config
	enc encoder.Encoder
}

// New creates a configured pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Pipeline{
		cfg: cfg,
		enc: encoder.NewPNG(),
	}
}

// Run executes the full build pipeline and returns the manifest.
func (p *Pipeline) Run() (*manifest.Manifest, error) {
	log := logging.With().Str("profile", p.cfg.Profile.Name).Logger()

	sources, err := ScanImages(p.cfg.InputDir, p.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no images found in %s", p.cfg.InputDir)
	}
	log.Debug().Int("images", len(sources)).Int("workers", p.cfg.Workers).Msg("scan complete")

	// Every image is encoded end to end by one worker; results keep
	// source order.
	results := make([]processResult, len(sources))
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.Workers)

	for i, src := range sources {
		wg.Add(1)
		go func(idx int, s Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			wlog := log.With().Str("key", s.Key).Logger()
			defer func() {
				if r := recover(); r != nil {
					results[idx] = processResult{key: s.Key, err: fmt.Errorf("panic: %v", r)}
				}
			}()

			wlog.Debug().Msg("processing")
			results[idx] = processImage(s, p.cfg, p.enc, wlog)
			if results[idx].err == nil {
				wlog.Debug().Int("variants", len(results[idx].asset.Variants)).Msg("done")
			}
		}(i, src)
	}
	wg.Wait()

	m := manifest.New(p.cfg.Profile.Name)

	var failed int
	for _, r := range results {
		if r.err != nil {
			log.Error().Err(r.err).Str("key", r.key).Msg("image failed")
			failed++
			continue
		}
		m.Assets[r.key] = r.asset
		m.Stats.SkippedRegress += r.skippedRegress
	}

	// Partial failures are reported, not fatal.
	if failed == len(sources) {
		return nil, fmt.Errorf("all %d images failed to process", failed)
	}
	if failed > 0 {
		log.Warn().Int("failed", failed).Int("total", len(sources)).Msg("some images had errors")
	}

	m.BuildInfo = &manifest.BuildInfo{
		Workers:   p.cfg.Workers,
		Level:     p.cfg.Profile.Level,
		Filter:    p.cfg.Profile.Filter.String(),
		Interlace: p.cfg.Profile.Interlace,
	}
	m.Stats.Failed = failed
	m.ComputeStats()
	return m, nil
}
