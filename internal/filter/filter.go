// Package filter implements the five PNG scanline filters, their inverses
// and the per-row adaptive selection heuristic.
//
// For byte i of a row: a is the byte bpp positions to the left, b is the
// byte above, c is the byte above and to the left. Positions outside the
// row, or above the first row, read as zero. All arithmetic wraps mod 256.
package filter

import (
	"fmt"
	"strings"
)

// Type is the filter tag written in front of every scanline.
type Type uint8

const (
	None    Type = 0
	Sub     Type = 1
	Up      Type = 2
	Average Type = 3
	Paeth   Type = 4

	numTypes = 5
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Sub:
		return "sub"
	case Up:
		return "up"
	case Average:
		return "average"
	case Paeth:
		return "paeth"
	}
	return fmt.Sprintf("filter(%d)", uint8(t))
}

// Valid reports whether t is one of the five defined filter types.
func (t Type) Valid() bool { return t < numTypes }

// BytesPerPixel returns the filter stride for a pixel of the given
// channel count and bit depth. Sub-byte pixels use a stride of 1.
func BytesPerPixel(channels, bitDepth int) int {
	n := (channels*bitDepth + 7) / 8
	if n < 1 {
		return 1
	}
	return n
}

// PaethPredictor returns whichever of a, b, c is closest to a+b-c,
// preferring a, then b, then c on ties.
func PaethPredictor(a, b, c uint8) uint8 {
	pc := int(c)
	pa := int(b) - pc
	pb := int(a) - pc
	pc = abs(pa + pb)
	pa = abs(pa)
	pb = abs(pb)
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Row writes cur filtered with t into dst. dst must be at least len(cur)
// bytes; prev is the unfiltered previous row, or nil for the first row.
func Row(dst, cur, prev []byte, bpp int, t Type) {
	n := len(cur)
	dst = dst[:n]
	if prev == nil {
		prev = make([]byte, n)
	}
	switch t {
	case None:
		copy(dst, cur)
	case Sub:
		for i := 0; i < n; i++ {
			dst[i] = cur[i] - left(cur, i, bpp)
		}
	case Up:
		for i := 0; i < n; i++ {
			dst[i] = cur[i] - prev[i]
		}
	case Average:
		for i := 0; i < n; i++ {
			dst[i] = cur[i] - uint8((int(left(cur, i, bpp))+int(prev[i]))/2)
		}
	case Paeth:
		for i := 0; i < n; i++ {
			dst[i] = cur[i] - PaethPredictor(left(cur, i, bpp), prev[i], left(prev, i, bpp))
		}
	default:
		panic(fmt.Sprintf("filter: invalid type %d", t))
	}
}

// Unfilter reverses Row: it reconstructs the raw row from filtered into
// dst. prev is the already reconstructed previous row, or nil.
func Unfilter(dst, filtered, prev []byte, bpp int, t Type) error {
	n := len(filtered)
	if len(dst) < n {
		return fmt.Errorf("filter: destination too short: %d < %d", len(dst), n)
	}
	dst = dst[:n]
	if prev == nil {
		prev = make([]byte, n)
	}
	switch t {
	case None:
		copy(dst, filtered)
	case Sub:
		for i := 0; i < n; i++ {
			dst[i] = filtered[i] + left(dst, i, bpp)
		}
	case Up:
		for i := 0; i < n; i++ {
			dst[i] = filtered[i] + prev[i]
		}
	case Average:
		for i := 0; i < n; i++ {
			dst[i] = filtered[i] + uint8((int(left(dst, i, bpp))+int(prev[i]))/2)
		}
	case Paeth:
		for i := 0; i < n; i++ {
			dst[i] = filtered[i] + PaethPredictor(left(dst, i, bpp), prev[i], left(prev, i, bpp))
		}
	default:
		return fmt.Errorf("filter: invalid type %d", t)
	}
	return nil
}

func left(row []byte, i, bpp int) uint8 {
	if i < bpp {
		return 0
	}
	return row[i-bpp]
}

// Strategy selects which filter is applied to each row.
// The zero value is StrategyNone.
type Strategy uint8

const (
	StrategyNone Strategy = iota
	StrategySub
	StrategyUp
	StrategyAverage
	StrategyPaeth
	StrategyAdaptive
)

var strategyNames = map[Strategy]string{
	StrategyNone:     "none",
	StrategySub:      "sub",
	StrategyUp:       "up",
	StrategyAverage:  "average",
	StrategyPaeth:    "paeth",
	StrategyAdaptive: "adaptive",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", uint8(s))
}

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool { return s <= StrategyAdaptive }

// Fixed returns the filter type a non-adaptive strategy always uses.
func (s Strategy) Fixed() (Type, bool) {
	if s >= StrategyAdaptive {
		return 0, false
	}
	return Type(s), true
}

// ParseStrategy maps a name such as "paeth" or "adaptive" to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return StrategyNone, nil
	}
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown filter strategy %q", name)
}
