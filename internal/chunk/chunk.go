// Package chunk frames and reads PNG chunks: a big-endian length, a
// four byte type, the payload and a CRC-32 over type and payload.
package chunk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/AnyUserName/rawpng/internal/checksum"
)

// Signature is the fixed 8-byte PNG file header.
const Signature = "\x89PNG\r\n\x1a\n"

// MaxLength is the largest payload a chunk length field may declare.
const MaxLength = math.MaxInt32

// IENDCRC is the checksum of an IEND chunk, whose payload is always empty.
const IENDCRC uint32 = 0xAE426082

// ErrTooLarge reports a payload that does not fit a chunk length field.
var ErrTooLarge = errors.New("chunk: payload too large")

// Type is a four byte ASCII chunk tag.
type Type [4]byte

var (
	IHDR = Type{'I', 'H', 'D', 'R'}
	PLTE = Type{'P', 'L', 'T', 'E'}
	IDAT = Type{'I', 'D', 'A', 'T'}
	IEND = Type{'I', 'E', 'N', 'D'}
)

func (t Type) String() string { return string(t[:]) }

// Critical reports whether decoders must understand the chunk
// (uppercase first letter).
func (t Type) Critical() bool { return t[0]&0x20 == 0 }

// Chunk is a type tag and its payload. Length and checksum are always
// derived from Data.
type Chunk struct {
	Type Type
	Data []byte
}

// Len is the value written to the chunk's length field.
func (c Chunk) Len() uint32 { return uint32(len(c.Data)) }

// CRC is the checksum over the type tag followed by the payload.
func (c Chunk) CRC() uint32 {
	return checksum.Update(checksum.CRC32(c.Type[:]), c.Data)
}

// Size is the number of bytes the framed chunk occupies.
func (c Chunk) Size() int { return 12 + len(c.Data) }

// AppendTo appends the framed chunk to dst.
func (c Chunk) AppendTo(dst []byte) ([]byte, error) {
	return Append(dst, c.Type, c.Data)
}

// Append frames payload as a chunk of type t and appends it to dst. The
// whole frame is built before it is appended, so payload may alias dst.
func Append(dst []byte, t Type, payload []byte) ([]byte, error) {
	if len(payload) > MaxLength {
		return dst, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, t, len(payload))
	}
	frame := make([]byte, 8, 12+len(payload))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(payload)))
	copy(frame[4:8], t[:])
	frame = append(frame, payload...)
	frame = binary.BigEndian.AppendUint32(frame, checksum.CRC32(frame[4:]))
	return append(dst, frame...), nil
}
