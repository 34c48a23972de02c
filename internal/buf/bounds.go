// Package buf holds overflow-safe slicing helpers for raw tag images.
package buf

import "math"

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative ints, returning ok = false on
// overflow or a negative operand.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}

// Pages returns pages first..last inclusive of an image split into pages of
// size bytes. The result aliases b.
//
//	data, ok := buf.Pages(image, tag.PageSize, 5, 7)
//	if !ok {
//	    return nil, ErrNAK
//	}
func Pages(b []byte, size, first, last int) ([]byte, bool) {
	if first < 0 || last < first || size <= 0 {
		return nil, false
	}
	off, ok := MulOverflowSafe(first, size)
	if !ok {
		return nil, false
	}
	n, ok := MulOverflowSafe(last-first+1, size)
	if !ok {
		return nil, false
	}
	return Slice(b, off, n)
}
