package profile

import (
	"fmt"
	"sort"

	"github.com/AnyUserName/rawpng/internal/filter"
)

// Profile defines encode parameters for a class of output.
type Profile struct {
	Name      string
	Widths    []int           // target widths for resize; empty keeps the original size
	Filter    filter.Strategy // scanline filter strategy
	Level     int             // zlib level 0-9
	Interlace bool            // Adam7 for progressive display
}

// Built-in profiles.
var profiles = map[string]Profile{
	"default": {
		Name:   "default",
		Filter: filter.StrategyAdaptive,
		Level:  6,
	},
	"smallest": {
		Name:   "smallest",
		Filter: filter.StrategyAdaptive,
		Level:  9,
	},
	"fast": {
		Name:   "fast",
		Filter: filter.StrategyUp,
		Level:  1,
	},
	"store": {
		Name:   "store",
		Filter: filter.StrategyNone,
		Level:  0,
	},
	"web": {
		Name:      "web",
		Widths:    []int{320, 640, 1280},
		Filter:    filter.StrategyAdaptive,
		Level:     9,
		Interlace: true,
	},
}

// Get returns a profile by name.
func Get(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (have %v)", name, Names())
	}
	p.Widths = append([]int(nil), p.Widths...)
	return p, nil
}

// Names lists the built-in profiles in sorted order.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// EffectiveWidths returns the widths to produce for an image that is
// originalWidth pixels wide. Images are never upscaled.
func (p Profile) EffectiveWidths(originalWidth int) []int {
	seen := map[int]bool{}
	var result []int

	for _, w := range p.Widths {
		if w > originalWidth || w <= 0 {
			continue
		}
		if !seen[w] {
			seen[w] = true
			result = append(result, w)
		}
	}

	// No widths configured, or the original is smaller than all of them.
	if len(result) == 0 && originalWidth > 0 {
		result = append(result, originalWidth)
	}

	return result
}
