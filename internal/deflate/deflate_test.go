package deflate

import (
	"bytes"
	stdzlib "compress/zlib"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []byte {
	b := make([]byte, 10000)
	for i := range b {
		b[i] = byte(i / 50)
	}
	return b
}

func TestZlib_RoundTripAllLevels(t *testing.T) {
	raw := sample()
	for level := 0; level <= 9; level++ {
		out, err := Zlib{}.Compress(raw, level)
		require.NoError(t, err, "level %d", level)

		got, err := Decompress(out, len(raw))
		require.NoError(t, err)
		assert.Equal(t, raw, got, "level %d", level)
	}
}

func TestZlib_StandardLibraryCanInflate(t *testing.T) {
	raw := sample()
	out, err := Default.Compress(raw, 9)
	require.NoError(t, err)
	assert.Less(t, len(out), len(raw))

	zr, err := stdzlib.NewReader(bytes.NewReader(out))
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestZlib_EmptyInput(t *testing.T) {
	out, err := Zlib{}.Compress(nil, 6)
	require.NoError(t, err)
	got, err := Decompress(out, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestZlib_InvalidLevel(t *testing.T) {
	_, err := Zlib{}.Compress([]byte{1}, 42)
	assert.Error(t, err)
}

func TestCompressorFunc(t *testing.T) {
	boom := errors.New("boom")
	var c Compressor = CompressorFunc(func([]byte, int) ([]byte, error) { return nil, boom })
	_, err := c.Compress([]byte{1}, 1)
	assert.ErrorIs(t, err, boom)
}

func TestDecompress_Garbage(t *testing.T) {
	_, err := Decompress([]byte("not zlib"), -1)
	assert.Error(t, err)
}

func TestDecompress_Limit(t *testing.T) {
	// 64 MiB of zeros compresses to a few tens of KiB.
	bomb, err := Zlib{}.Compress(make([]byte, 64<<20), 9)
	require.NoError(t, err)
	require.Less(t, len(bomb), 1<<20)

	_, err = Decompress(bomb, 1024)
	assert.ErrorIs(t, err, ErrLimit)

	got, err := Decompress(bomb, 64<<20)
	require.NoError(t, err)
	assert.Len(t, got, 64<<20)

	got, err = Decompress(bomb, -1)
	require.NoError(t, err)
	assert.Len(t, got, 64<<20)
}
