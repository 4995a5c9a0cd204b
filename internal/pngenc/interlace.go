package pngenc

// pass is one of the seven Adam7 sub-images: the pixels at
// (x0 + i*dx, y0 + j*dy).
type pass struct {
	x0, y0, dx, dy int
}

var adam7 = [7]pass{
	{0, 0, 8, 8},
	{4, 0, 8, 8},
	{0, 4, 4, 8},
	{2, 0, 4, 4},
	{0, 2, 2, 4},
	{1, 0, 2, 2},
	{0, 1, 1, 2},
}

// size returns the pass dimensions for a w by h image.
func (p pass) size(w, h int) (int, int) {
	return (w - p.x0 + p.dx - 1) / p.dx, (h - p.y0 + p.dy - 1) / p.dy
}

// extract copies the pixels of pass p out of rows into packed rows of
// their own. It returns nil when the pass is empty.
func (p pass) extract(rows [][]byte, width int, o Options) [][]byte {
	pw, ph := p.size(width, len(rows))
	if pw <= 0 || ph <= 0 {
		return nil
	}
	bits := o.bitsPerPixel()
	out := make([][]byte, 0, ph)
	for y := p.y0; y < len(rows); y += p.dy {
		src := rows[y]
		dst := make([]byte, o.rowBytes(pw))
		for i := 0; i < pw; i++ {
			x := p.x0 + i*p.dx
			if bits >= 8 {
				n := bits / 8
				copy(dst[i*n:(i+1)*n], src[x*n:(x+1)*n])
				continue
			}
			setSample(dst, i, bits, sample(src, x, bits))
		}
		out = append(out, dst)
	}
	return out
}

// sample reads the x-th sub-byte sample of a packed row, most
// significant bits first.
func sample(row []byte, x, bits int) byte {
	off := x * bits
	shift := 8 - bits - off%8
	return row[off/8] >> shift & (1<<bits - 1)
}

func setSample(row []byte, x, bits int, v byte) {
	off := x * bits
	shift := 8 - bits - off%8
	row[off/8] |= v << shift
}
