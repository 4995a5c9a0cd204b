package filter

// Stream filters every row with s and returns the concatenation of
// (tag byte, filtered row) in row order. Rows may differ in length only
// across independent sub-images, which callers encode with separate
// Stream calls; within one call all rows must have the same length.
func Stream(rows [][]byte, bpp int, s Strategy) []byte {
	if len(rows) == 0 {
		return nil
	}
	n := len(rows[0])
	out := make([]byte, 0, len(rows)*(n+1))

	var cr [numTypes][]byte
	for i := range cr {
		cr[i] = make([]byte, n)
	}

	var prev []byte
	for _, cur := range rows {
		t, ok := s.Fixed()
		if ok {
			Row(cr[t], cur, prev, bpp, t)
		} else {
			t = choose(&cr, cur, prev, bpp)
		}
		out = append(out, byte(t))
		out = append(out, cr[t]...)
		// The unfiltered current row predicts the next one.
		prev = cur
	}
	return out
}

// abs8 is the magnitude of d read as a signed byte.
func abs8(d uint8) int {
	if d < 128 {
		return int(d)
	}
	return 256 - int(d)
}

// choose fills cr with the candidate encodings of cur and returns the
// type whose residuals have the smallest sum of absolute values. Ties go
// to the lower filter type. Candidates are abandoned as soon as they
// cannot win.
func choose(cr *[numTypes][]byte, cur, prev []byte, bpp int) Type {
	best := -1
	var bestType Type
	for t := Type(0); t < numTypes; t++ {
		Row(cr[t], cur, prev, bpp, t)
		sum := 0
		for _, v := range cr[t] {
			sum += abs8(v)
			if best >= 0 && sum >= best {
				break
			}
		}
		if best < 0 || sum < best {
			best = sum
			bestType = t
		}
	}
	return bestType
}
