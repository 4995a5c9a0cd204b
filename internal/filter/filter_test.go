package filter

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allTypes = []Type{None, Sub, Up, Average, Paeth}

func randomRow(r *rand.Rand, n int) []byte {
	b := make([]byte, n)
	r.Read(b)
	return b
}

func TestPaethPredictor(t *testing.T) {
	var testCases = []struct {
		a, b, c uint8
		want    uint8
	}{
		{0, 0, 0, 0},
		{10, 20, 10, 20},
		{20, 10, 10, 20},
		{10, 10, 10, 10},
		{5, 9, 7, 7},
		{100, 200, 50, 200},
		{255, 0, 255, 0},
		{6, 0, 2, 6}, // a and c tie, a wins
		{0, 6, 2, 6}, // b and c tie, b wins
	}

	for _, tt := range testCases {
		t.Run(fmt.Sprintf("%d_%d_%d", tt.a, tt.b, tt.c), func(t *testing.T) {
			assert.Equal(t, tt.want, PaethPredictor(tt.a, tt.b, tt.c))
		})
	}
}

func TestPaethPredictor_MatchesDefinition(t *testing.T) {
	ref := func(a, b, c uint8) uint8 {
		p := int(a) + int(b) - int(c)
		pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
		switch {
		case pa <= pb && pa <= pc:
			return a
		case pb <= pc:
			return b
		default:
			return c
		}
	}
	for a := 0; a < 256; a += 7 {
		for b := 0; b < 256; b += 5 {
			for c := 0; c < 256; c += 3 {
				require.Equal(t, ref(uint8(a), uint8(b), uint8(c)), PaethPredictor(uint8(a), uint8(b), uint8(c)))
			}
		}
	}
}

func TestRow_Formulas(t *testing.T) {
	prev := []byte{10, 20, 30, 40}
	cur := []byte{15, 25, 35, 45}
	dst := make([]byte, 4)

	Row(dst, cur, prev, 2, None)
	assert.Equal(t, []byte{15, 25, 35, 45}, dst)

	Row(dst, cur, prev, 2, Sub)
	assert.Equal(t, []byte{15, 25, 20, 20}, dst)

	Row(dst, cur, prev, 2, Up)
	assert.Equal(t, []byte{5, 5, 5, 5}, dst)

	// avg: floor((a+b)/2): i0 (0+10)/2=5, i1 (0+20)/2=10, i2 (15+30)/2=22, i3 (25+40)/2=32
	Row(dst, cur, prev, 2, Average)
	assert.Equal(t, []byte{10, 15, 13, 13}, dst)

	// paeth i2: a=15 b=30 c=10 p=35 -> b=30; i3: a=25 b=40 c=20 p=45 -> b=40
	Row(dst, cur, prev, 2, Paeth)
	assert.Equal(t, []byte{5, 5, 5, 5}, dst)
}

func TestRow_FirstRowTreatsPriorAsZero(t *testing.T) {
	cur := []byte{1, 2, 3}
	dst := make([]byte, 3)

	Row(dst, cur, nil, 1, Up)
	assert.Equal(t, cur, dst)

	Row(dst, cur, nil, 1, Paeth)
	assert.Equal(t, []byte{1, 1, 1}, dst)
}

func TestRow_Wraparound(t *testing.T) {
	dst := make([]byte, 2)
	Row(dst, []byte{0, 0}, []byte{1, 255}, 1, Up)
	assert.Equal(t, []byte{255, 1}, dst)
}

func TestUnfilter_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, bpp := range []int{1, 2, 3, 4, 6, 8} {
		for _, n := range []int{1, bpp - 1, bpp, bpp + 1, 37} {
			if n < 1 {
				continue
			}
			for _, ft := range allTypes {
				t.Run(fmt.Sprintf("bpp%d_len%d_%s", bpp, n, ft), func(t *testing.T) {
					for _, prev := range [][]byte{nil, randomRow(r, n)} {
						cur := randomRow(r, n)
						filtered := make([]byte, n)
						Row(filtered, cur, prev, bpp, ft)

						got := make([]byte, n)
						require.NoError(t, Unfilter(got, filtered, prev, bpp, ft))
						assert.Equal(t, cur, got)
					}
				})
			}
		}
	}
}

func TestUnfilter_InvalidType(t *testing.T) {
	err := Unfilter(make([]byte, 1), []byte{0}, nil, 1, Type(7))
	assert.Error(t, err)
}

func TestBytesPerPixel(t *testing.T) {
	assert.Equal(t, 1, BytesPerPixel(1, 1))
	assert.Equal(t, 1, BytesPerPixel(1, 4))
	assert.Equal(t, 1, BytesPerPixel(1, 8))
	assert.Equal(t, 2, BytesPerPixel(1, 16))
	assert.Equal(t, 3, BytesPerPixel(3, 8))
	assert.Equal(t, 4, BytesPerPixel(4, 8))
	assert.Equal(t, 8, BytesPerPixel(4, 16))
}

func TestStream_NoneReproducesRawBytes(t *testing.T) {
	rows := [][]byte{{0, 255}, {128, 64}}
	assert.Equal(t, []byte{0, 0, 255, 0, 128, 64}, Stream(rows, 1, StrategyNone))
}

func TestStream_FixedStrategyTagsEveryRow(t *testing.T) {
	rows := [][]byte{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	out := Stream(rows, 1, StrategyUp)
	require.Len(t, out, 12)
	for y := 0; y < 3; y++ {
		assert.Equal(t, byte(Up), out[y*4])
	}
	assert.Equal(t, []byte{3, 3, 3}, out[5:8])
}

func TestStream_AdaptiveRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	const width, height, bpp = 30, 12, 3
	rows := make([][]byte, height)
	for y := range rows {
		rows[y] = make([]byte, width)
		for x := range rows[y] {
			// smooth gradient with some noise so several filters get picked
			rows[y][x] = byte(x*3 + y*2 + r.Intn(4))
		}
	}
	rows[5] = randomRow(r, width)

	out := Stream(rows, bpp, StrategyAdaptive)
	require.Len(t, out, height*(width+1))

	var prev []byte
	for y := 0; y < height; y++ {
		line := out[y*(width+1) : (y+1)*(width+1)]
		ft := Type(line[0])
		require.True(t, ft.Valid())
		got := make([]byte, width)
		require.NoError(t, Unfilter(got, line[1:], prev, bpp, ft))
		require.Equal(t, rows[y], got, "row %d", y)
		prev = got
	}
}

func TestStream_AdaptivePrefersUpForRepeatedRows(t *testing.T) {
	row := []byte{200, 13, 77, 180, 5, 99, 240, 1}
	out := Stream([][]byte{row, row}, 1, StrategyAdaptive)
	assert.Equal(t, byte(Up), out[len(row)+1])
}

func TestParseStrategy(t *testing.T) {
	for s, name := range strategyNames {
		got, err := ParseStrategy(name)
		require.NoError(t, err)
		assert.Equal(t, s, got)
		assert.Equal(t, name, s.String())
	}

	got, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyNone, got)

	_, err = ParseStrategy("median")
	assert.Error(t, err)
}

func BenchmarkStreamAdaptive(b *testing.B) {
	r := rand.New(rand.NewSource(3))
	rows := make([][]byte, 256)
	for y := range rows {
		rows[y] = randomRow(r, 256*4)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Stream(rows, 4, StrategyAdaptive)
	}
}
