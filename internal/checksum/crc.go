// Package checksum implements the CRC-32 used by PNG chunks and zlib:
// reflected polynomial 0xEDB88320, register preset to all ones and
// complemented on output.
package checksum

import "hash"

// Polynomial is the reflected CRC-32 (IEEE 802.3) generator.
const Polynomial = 0xEDB88320

// Size of a CRC-32 checksum in bytes.
const Size = 4

var table [256]uint32

func init() {
	for n := range table {
		table[n] = bitwise(uint32(n))
	}
}

// bitwise runs the eight shift/xor rounds for a single register value.
func bitwise(c uint32) uint32 {
	for k := 0; k < 8; k++ {
		if c&1 == 1 {
			c = Polynomial ^ (c >> 1)
		} else {
			c >>= 1
		}
	}
	return c
}

// CRC32 returns the checksum of b. The empty input yields 0.
func CRC32(b []byte) uint32 {
	return Update(0, b)
}

// Update continues a checksum previously returned by CRC32 or Update
// with the bytes in b.
func Update(crc uint32, b []byte) uint32 {
	c := ^crc
	for _, v := range b {
		c = table[byte(c)^v] ^ (c >> 8)
	}
	return ^c
}

// digest is a streaming CRC-32.
type digest struct {
	crc uint32
}

// New returns a hash.Hash32 computing the same checksum as CRC32.
func New() hash.Hash32 {
	return &digest{}
}

func (d *digest) Size() int      { return Size }
func (d *digest) BlockSize() int { return 1 }
func (d *digest) Reset()         { d.crc = 0 }
func (d *digest) Sum32() uint32  { return d.crc }

func (d *digest) Write(p []byte) (int, error) {
	d.crc = Update(d.crc, p)
	return len(p), nil
}

func (d *digest) Sum(in []byte) []byte {
	s := d.crc
	return append(in, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}
