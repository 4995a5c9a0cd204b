package pngenc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/AnyUserName/rawpng/internal/chunk"
	"github.com/AnyUserName/rawpng/internal/deflate"
	"github.com/AnyUserName/rawpng/internal/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var strategies = []filter.Strategy{
	filter.StrategyNone,
	filter.StrategySub,
	filter.StrategyUp,
	filter.StrategyAverage,
	filter.StrategyPaeth,
	filter.StrategyAdaptive,
}

// recorder captures what the assembler hands to the compressor.
type recorder struct {
	raw   []byte
	level int
	calls int
}

func (r *recorder) Compress(raw []byte, level int) ([]byte, error) {
	r.raw = append([]byte(nil), raw...)
	r.level = level
	r.calls++
	return deflate.Zlib{}.Compress(raw, level)
}

func randomRows(r *rand.Rand, height, rowBytes int) [][]byte {
	rows := make([][]byte, height)
	for y := range rows {
		rows[y] = make([]byte, rowBytes)
		for x := range rows[y] {
			// mostly smooth so filters matter, with some noise
			rows[y][x] = byte(x + 3*y + r.Intn(8))
		}
	}
	return rows
}

func decode(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	return img
}

func TestEncode_FilteredStreamNone(t *testing.T) {
	rows := [][]byte{{0, 255}, {128, 64}}
	opts := Options{ColorMode: Grayscale, BitDepth: 8, Level: 6}

	rec := &recorder{}
	enc := &Encoder{Compressor: rec}
	out, err := enc.Encode(rows, opts)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	assert.Equal(t, []byte{0, 0, 255, 0, 128, 64}, rec.raw)
	assert.Equal(t, 6, rec.level)
	assert.Equal(t, 1, rec.calls)

	raw, err := Scanlines(rows, opts)
	require.NoError(t, err)
	assert.Equal(t, rec.raw, raw)

	img := decode(t, out).(*image.Gray)
	assert.Equal(t, []byte{0, 255, 128, 64}, img.Pix)
}

func TestEncode_LevelOutOfRange(t *testing.T) {
	rec := &recorder{}
	enc := &Encoder{Compressor: rec}
	rows := [][]byte{{1, 2}}

	for _, level := range []int{10, -1, 100} {
		out, err := enc.Encode(rows, Options{ColorMode: Grayscale, BitDepth: 8, Level: level})
		assert.ErrorIs(t, err, ErrInvalidOption, "level %d", level)
		assert.Nil(t, out)
	}
	assert.Equal(t, 0, rec.calls)
}

func TestEncode_InvalidOptions(t *testing.T) {
	pal := color.Palette{color.Black, color.White}
	var testCases = []struct {
		name string
		opts Options
	}{
		{"zero depth", Options{ColorMode: Grayscale}},
		{"rgb at 4 bits", Options{ColorMode: RGB, BitDepth: 4}},
		{"palette at 16 bits", Options{ColorMode: Palette, BitDepth: 16, Palette: pal}},
		{"unknown color type", Options{ColorMode: 5, BitDepth: 8}},
		{"palette missing", Options{ColorMode: Palette, BitDepth: 8}},
		{"palette too large", Options{ColorMode: Palette, BitDepth: 1, Palette: color.Palette{color.Black, color.White, color.Black}}},
		{"palette on rgb", Options{ColorMode: RGB, BitDepth: 8, Palette: pal}},
		{"unknown filter", Options{ColorMode: Grayscale, BitDepth: 8, Filter: 42}},
		{"negative width", Options{ColorMode: Grayscale, BitDepth: 8, Width: -3}},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Encode([][]byte{{0, 0, 0, 0, 0, 0}}, tt.opts)
			assert.ErrorIs(t, err, ErrInvalidOption)
			assert.Nil(t, out)
		})
	}
}

func TestEncode_MalformedImage(t *testing.T) {
	gray := Options{ColorMode: Grayscale, BitDepth: 8}
	pal := color.Palette{color.Black, color.White}
	var testCases = []struct {
		name string
		rows [][]byte
		opts Options
	}{
		{"no rows", nil, gray},
		{"empty row", [][]byte{{}}, gray},
		{"ragged rows", [][]byte{{1, 2, 3}, {1, 2}}, gray},
		{"partial rgb pixel", [][]byte{{1, 2, 3, 4}}, Options{ColorMode: RGB, BitDepth: 8}},
		{"partial 16-bit sample", [][]byte{{1, 2, 3}}, Options{ColorMode: Grayscale, BitDepth: 16}},
		{"width disagrees", [][]byte{{1, 2, 3}}, Options{ColorMode: Grayscale, BitDepth: 8, Width: 4}},
		{"sub-byte width disagrees", [][]byte{{0xff}}, Options{ColorMode: Grayscale, BitDepth: 1, Width: 9}},
		{"2-bit index past palette", [][]byte{{0x3F}}, Options{ColorMode: Palette, BitDepth: 2, Width: 4, Palette: pal}},
		{"8-bit index past palette", [][]byte{{0, 1}, {1, 2}}, Options{ColorMode: Palette, BitDepth: 8, Palette: pal}},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Encode(tt.rows, tt.opts)
			assert.ErrorIs(t, err, ErrMalformedImage)
			assert.Nil(t, out)
		})
	}
}

func TestEncode_CompressionFailure(t *testing.T) {
	boom := errors.New("out of memory")
	enc := &Encoder{Compressor: deflate.CompressorFunc(func([]byte, int) ([]byte, error) {
		return nil, boom
	})}
	out, err := enc.Encode([][]byte{{1}}, Options{ColorMode: Grayscale, BitDepth: 8})
	assert.ErrorIs(t, err, ErrCompressionFailure)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, out)
}

func TestEncode_FramingInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	iend := []byte{0, 0, 0, 0, 'I', 'E', 'N', 'D', 0xAE, 0x42, 0x60, 0x82}

	for _, interlace := range []bool{false, true} {
		for _, s := range strategies {
			t.Run(fmt.Sprintf("%s_interlace=%v", s, interlace), func(t *testing.T) {
				opts := Options{ColorMode: RGBAlpha, BitDepth: 8, Level: 9, Filter: s, Interlace: interlace}
				out, err := Encode(randomRows(r, 7, 5*4), opts)
				require.NoError(t, err)

				assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, out[:8])
				assert.Equal(t, iend, out[len(out)-12:])

				ihdr := out[8 : 8+12+HeaderSize]
				assert.Equal(t, uint32(HeaderSize), binary.BigEndian.Uint32(ihdr[:4]))
				assert.Equal(t, "IHDR", string(ihdr[4:8]))
				assert.NoError(t, chunk.Verify(ihdr))

				chunks, err := chunk.ReadAll(bytes.NewReader(out))
				require.NoError(t, err)
				require.Len(t, chunks, 3)
				assert.Equal(t, []chunk.Type{chunk.IHDR, chunk.IDAT, chunk.IEND},
					[]chunk.Type{chunks[0].Type, chunks[1].Type, chunks[2].Type})

				var h Header
				require.NoError(t, h.UnmarshalBinary(chunks[0].Data))
				assert.Equal(t, uint32(5), h.Width)
				assert.Equal(t, uint32(7), h.Height)
				assert.Equal(t, BitDepth(8), h.BitDepth)
				assert.Equal(t, RGBAlpha, h.ColorMode)
				assert.Equal(t, interlace, h.Interlace == 1)

				raw, err := deflate.Decompress(chunks[1].Data, h.ScanlineBytes())
				require.NoError(t, err)
				assert.Len(t, raw, h.ScanlineBytes())
			})
		}
	}
}

func TestEncode_FixedStrategyTags(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	rows := randomRows(r, 4, 6)
	for _, s := range strategies[:5] {
		raw, err := Scanlines(rows, Options{ColorMode: RGB, BitDepth: 8, Filter: s})
		require.NoError(t, err)
		want, _ := s.Fixed()
		for y := 0; y < 4; y++ {
			assert.Equal(t, byte(want), raw[y*7], "%s row %d", s, y)
		}
	}
}

func TestEncode_RoundTripGray8(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	rows := randomRows(r, 9, 13)
	for _, s := range strategies {
		out, err := Encode(rows, Options{ColorMode: Grayscale, BitDepth: 8, Level: 6, Filter: s})
		require.NoError(t, err)
		img := decode(t, out).(*image.Gray)
		assert.Equal(t, bytes.Join(rows, nil), img.Pix, s.String())
	}
}

func TestEncode_RoundTripRGBA8(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	rows := randomRows(r, 6, 4*10)
	out, err := Encode(rows, Options{ColorMode: RGBAlpha, BitDepth: 8, Level: 9, Filter: filter.StrategyAdaptive})
	require.NoError(t, err)
	img := decode(t, out).(*image.NRGBA)
	assert.Equal(t, bytes.Join(rows, nil), img.Pix)
}

func TestEncode_RoundTripRGB8(t *testing.T) {
	rows := [][]byte{
		{255, 0, 0, 0, 255, 0},
		{0, 0, 255, 10, 20, 30},
	}
	out, err := Encode(rows, Options{ColorMode: RGB, BitDepth: 8, Filter: filter.StrategyPaeth})
	require.NoError(t, err)
	img := decode(t, out)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	assert.Equal(t, color.RGBA{10, 20, 30, 255}, color.RGBAModel.Convert(img.At(1, 1)))
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, color.RGBAModel.Convert(img.At(1, 0)))
}

func TestEncode_RoundTripGrayAlpha8(t *testing.T) {
	rows := [][]byte{{100, 255, 50, 128}}
	out, err := Encode(rows, Options{ColorMode: GrayscaleAlpha, BitDepth: 8, Filter: filter.StrategySub})
	require.NoError(t, err)
	img := decode(t, out)
	assert.Equal(t, color.NRGBA{100, 100, 100, 255}, color.NRGBAModel.Convert(img.At(0, 0)))
	assert.Equal(t, color.NRGBA{50, 50, 50, 128}, color.NRGBAModel.Convert(img.At(1, 0)))
}

func TestEncode_RoundTrip16Bit(t *testing.T) {
	r := rand.New(rand.NewSource(3))

	rows := randomRows(r, 5, 2*7)
	out, err := Encode(rows, Options{ColorMode: Grayscale, BitDepth: 16, Filter: filter.StrategyAverage})
	require.NoError(t, err)
	gray := decode(t, out).(*image.Gray16)
	assert.Equal(t, bytes.Join(rows, nil), gray.Pix)

	rows = randomRows(r, 5, 8*3)
	out, err = Encode(rows, Options{ColorMode: RGBAlpha, BitDepth: 16, Filter: filter.StrategyAdaptive})
	require.NoError(t, err)
	rgba := decode(t, out).(*image.NRGBA64)
	assert.Equal(t, bytes.Join(rows, nil), rgba.Pix)
}

func TestEncode_RoundTripGray1Bit(t *testing.T) {
	// 10 pixels: 1011001110, padded to two bytes
	rows := [][]byte{
		{0b10110011, 0b10000000},
		{0b01001100, 0b01000000},
	}
	out, err := Encode(rows, Options{ColorMode: Grayscale, BitDepth: 1, Width: 10, Filter: filter.StrategyUp})
	require.NoError(t, err)
	img := decode(t, out)
	require.Equal(t, image.Rect(0, 0, 10, 2), img.Bounds())

	want := "1011001110"
	for x := 0; x < 10; x++ {
		g := color.GrayModel.Convert(img.At(x, 0)).(color.Gray)
		if want[x] == '1' {
			assert.Equal(t, uint8(255), g.Y, "x=%d", x)
		} else {
			assert.Equal(t, uint8(0), g.Y, "x=%d", x)
		}
	}
}

func TestEncode_InfersSubByteWidth(t *testing.T) {
	out, err := Encode([][]byte{{0x12, 0x34}}, Options{ColorMode: Grayscale, BitDepth: 4})
	require.NoError(t, err)
	img := decode(t, out)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestEncode_Palette(t *testing.T) {
	pal := color.Palette{
		color.RGBA{255, 0, 0, 255},
		color.RGBA{0, 255, 0, 255},
		color.RGBA{0, 0, 255, 255},
		color.RGBA{255, 255, 255, 255},
	}
	// 2-bit indices, 4 pixels per byte: 0 1 2 3 / 3 2 1 0
	rows := [][]byte{{0b00011011}, {0b11100100}}
	out, err := Encode(rows, Options{ColorMode: Palette, BitDepth: 2, Palette: pal, Level: 9})
	require.NoError(t, err)

	chunks, err := chunk.ReadAll(bytes.NewReader(out))
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	assert.Equal(t, chunk.PLTE, chunks[1].Type)
	assert.Equal(t, []byte{255, 0, 0, 0, 255, 0, 0, 0, 255, 255, 255, 255}, chunks[1].Data)

	img := decode(t, out).(*image.Paletted)
	assert.Equal(t, []uint8{0, 1, 2, 3, 3, 2, 1, 0}, img.Pix)
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, color.RGBAModel.Convert(img.At(2, 0)))
}

func TestEncode_PaletteIgnoresPaddingBits(t *testing.T) {
	pal := color.Palette{color.Black, color.White}
	// indices 1 0 0, then two set padding bits
	out, err := Encode([][]byte{{0b01000011}}, Options{ColorMode: Palette, BitDepth: 2, Width: 3, Palette: pal})
	require.NoError(t, err)
	img := decode(t, out).(*image.Paletted)
	assert.Equal(t, []uint8{1, 0, 0}, img.Pix)
}

func TestEncode_InterlacedMatchesProgressive(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	pal := make(color.Palette, 16)
	for i := range pal {
		pal[i] = color.RGBA{uint8(i * 16), uint8(255 - i*16), uint8(i * 7), 255}
	}

	var testCases = []struct {
		name string
		opts Options
		bits int
	}{
		{"rgba8", Options{ColorMode: RGBAlpha, BitDepth: 8}, 32},
		{"rgb16", Options{ColorMode: RGB, BitDepth: 16}, 48},
		{"gray1", Options{ColorMode: Grayscale, BitDepth: 1}, 1},
		{"gray2", Options{ColorMode: Grayscale, BitDepth: 2}, 2},
		{"palette4", Options{ColorMode: Palette, BitDepth: 4, Palette: pal}, 4},
	}
	sizes := [][2]int{{1, 1}, {2, 3}, {5, 5}, {9, 9}, {13, 7}}

	for _, tt := range testCases {
		for _, sz := range sizes {
			t.Run(fmt.Sprintf("%s_%dx%d", tt.name, sz[0], sz[1]), func(t *testing.T) {
				w, h := sz[0], sz[1]
				rows := randomRows(r, h, (w*tt.bits+7)/8)
				if tt.bits < 8 {
					// keep padding bits clear and palette indices in range
					for _, row := range rows {
						for i := range row {
							row[i] &= 0x77
						}
						if pad := (8 - w*tt.bits%8) % 8; pad > 0 {
							row[len(row)-1] &^= byte(1<<pad - 1)
						}
					}
				}
				opts := tt.opts
				opts.Width = w
				opts.Filter = filter.StrategyAdaptive

				flat, err := Encode(rows, opts)
				require.NoError(t, err)
				opts.Interlace = true
				laced, err := Encode(rows, opts)
				require.NoError(t, err)

				a, b := decode(t, flat), decode(t, laced)
				require.Equal(t, a.Bounds(), b.Bounds())
				for y := 0; y < h; y++ {
					for x := 0; x < w; x++ {
						require.Equal(t,
							color.NRGBA64Model.Convert(a.At(x, y)),
							color.NRGBA64Model.Convert(b.At(x, y)),
							"pixel %d,%d", x, y)
					}
				}
			})
		}
	}
}

func TestEncode_DoesNotModifyInput(t *testing.T) {
	rows := [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}}
	orig := [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}}
	_, err := Encode(rows, Options{ColorMode: Grayscale, BitDepth: 8, Filter: filter.StrategyAdaptive, Interlace: true})
	require.NoError(t, err)
	assert.Equal(t, orig, rows)
}

func TestHeader_UnmarshalRejectsGarbage(t *testing.T) {
	var h Header
	assert.Error(t, h.UnmarshalBinary(make([]byte, 12)))
	assert.Error(t, h.UnmarshalBinary(make([]byte, 13)))

	good, _ := Header{Width: 1, Height: 1, BitDepth: 8, ColorMode: RGB}.MarshalBinary()
	require.NoError(t, h.UnmarshalBinary(good))

	bad := append([]byte(nil), good...)
	bad[8] = 4
	assert.Error(t, h.UnmarshalBinary(bad))

	bad = append([]byte(nil), good...)
	bad[12] = 2
	assert.Error(t, h.UnmarshalBinary(bad))
}

func TestParseColorMode(t *testing.T) {
	for _, m := range []ColorMode{Grayscale, RGB, Palette, GrayscaleAlpha, RGBAlpha} {
		got, err := ParseColorMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseColorMode("cmyk")
	assert.Error(t, err)
}

func BenchmarkEncodeRGBA(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	rows := randomRows(r, 256, 256*4)
	opts := Options{ColorMode: RGBAlpha, BitDepth: 8, Level: 6, Filter: filter.StrategyAdaptive}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Encode(rows, opts); err != nil {
			b.Fatal(err)
		}
	}
}
