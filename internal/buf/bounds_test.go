package buf

import (
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	if sum, ok := AddOverflowSafe(10, 5); !ok || sum != 15 {
		t.Fatalf("AddOverflowSafe(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := AddOverflowSafe(math.MaxInt, 1); ok {
		t.Fatalf("expected overflow when adding to MaxInt")
	}
	if _, ok := AddOverflowSafe(math.MinInt, -1); ok {
		t.Fatalf("expected underflow when subtracting from MinInt")
	}
}

func TestMulOverflowSafe(t *testing.T) {
	if p, ok := MulOverflowSafe(231, 4); !ok || p != 924 {
		t.Fatalf("MulOverflowSafe(231,4)=%d,%v want 924,true", p, ok)
	}
	if p, ok := MulOverflowSafe(0, math.MaxInt); !ok || p != 0 {
		t.Fatalf("MulOverflowSafe(0,MaxInt)=%d,%v want 0,true", p, ok)
	}
	if _, ok := MulOverflowSafe(math.MaxInt/2, 3); ok {
		t.Fatalf("expected overflow")
	}
	if _, ok := MulOverflowSafe(-1, 4); ok {
		t.Fatalf("negative operand should be rejected")
	}
}

func TestSlice(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}
	if got, ok := Slice(data, 1, 3); !ok || len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("Slice returned unexpected result: %v, %v", got, ok)
	}
	if _, ok := Slice(data, 4, 2); ok {
		t.Fatalf("Slice should fail when extending beyond len")
	}
	if _, ok := Slice(data, -1, 1); ok {
		t.Fatalf("Slice should reject negative offset")
	}
	if _, ok := Slice(data, 1, -1); ok {
		t.Fatalf("Slice should reject negative length")
	}
}

func TestPages(t *testing.T) {
	image := make([]byte, 8*4)
	for i := range image {
		image[i] = byte(i)
	}

	got, ok := Pages(image, 4, 5, 6)
	if !ok || len(got) != 8 || got[0] != 20 || got[7] != 27 {
		t.Fatalf("Pages(5,6) = %v, %v", got, ok)
	}
	if got, ok := Pages(image, 4, 7, 7); !ok || len(got) != 4 {
		t.Fatalf("last page should be readable: %v, %v", got, ok)
	}

	bad := []struct{ first, last int }{
		{7, 8},  // past the end
		{6, 5},  // reversed
		{-1, 2}, // negative
		{0, math.MaxInt},
	}
	for _, r := range bad {
		if _, ok := Pages(image, 4, r.first, r.last); ok {
			t.Errorf("Pages(%d,%d) should fail", r.first, r.last)
		}
	}
}
