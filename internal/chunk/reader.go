package chunk

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/AnyUserName/rawpng/internal/checksum"
)

var (
	ErrSignature = errors.New("chunk: not a PNG file")
	ErrChecksum  = errors.New("chunk: checksum mismatch")
)

// Reader iterates over the chunks of a PNG stream.
type Reader struct {
	r       *bufio.Reader
	started bool
	done    bool
}

// NewReader returns a Reader over r. The signature is checked on the
// first call to Next.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next chunk, verifying its checksum. It returns io.EOF
// after the IEND chunk has been read.
func (r *Reader) Next() (Chunk, error) {
	if r.done {
		return Chunk{}, io.EOF
	}
	if !r.started {
		var sig [8]byte
		if _, err := io.ReadFull(r.r, sig[:]); err != nil {
			return Chunk{}, fmt.Errorf("%w: %v", ErrSignature, err)
		}
		if string(sig[:]) != Signature {
			return Chunk{}, ErrSignature
		}
		r.started = true
	}

	var hdr [8]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		return Chunk{}, fmt.Errorf("read chunk header: %w", noEOF(err))
	}
	n := binary.BigEndian.Uint32(hdr[:4])
	if n > MaxLength {
		return Chunk{}, fmt.Errorf("%w: declared length %d", ErrTooLarge, n)
	}
	var c Chunk
	copy(c.Type[:], hdr[4:8])

	crc := checksum.New()
	crc.Write(c.Type[:])
	c.Data = make([]byte, n)
	if _, err := io.ReadFull(io.TeeReader(r.r, crc), c.Data); err != nil {
		return Chunk{}, fmt.Errorf("read %s payload: %w", c.Type, noEOF(err))
	}
	var foot [4]byte
	if _, err := io.ReadFull(r.r, foot[:]); err != nil {
		return Chunk{}, fmt.Errorf("read %s crc: %w", c.Type, noEOF(err))
	}
	want := binary.BigEndian.Uint32(foot[:])
	if got := crc.Sum32(); got != want {
		return Chunk{}, fmt.Errorf("%w: %s has %08x, computed %08x", ErrChecksum, c.Type, want, got)
	}
	if c.Type == IEND {
		r.done = true
	}
	return c, nil
}

// ReadAll collects every chunk up to and including IEND.
func ReadAll(r io.Reader) ([]Chunk, error) {
	cr := NewReader(r)
	var out []Chunk
	for {
		c, err := cr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
}

// Verify recomputes a chunk's checksum from the framed bytes in b and
// compares it with the stored value.
func Verify(b []byte) error {
	if len(b) < 12 {
		return fmt.Errorf("chunk: frame too short: %d bytes", len(b))
	}
	n := int(binary.BigEndian.Uint32(b[:4]))
	if len(b) != 12+n {
		return fmt.Errorf("chunk: frame is %d bytes, length field says %d", len(b), 12+n)
	}
	want := binary.BigEndian.Uint32(b[8+n:])
	if got := checksum.CRC32(b[4 : 8+n]); got != want {
		return fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksum, want, got)
	}
	return nil
}

func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
