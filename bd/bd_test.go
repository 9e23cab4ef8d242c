package bd_test

import (
	"math"
	"testing"

	"github.com/jonchang/tact/bd"
)

// Ported from tests/test_convert.py's test_ra_inverts_bd /
// test_bd_inverts_ra, with a fixed table of points instead of
// hypothesis-generated ones.
func TestConvertRoundTrip(t *testing.T) {
	cases := []struct{ r, a float64 }{
		{0.1, 0.0},
		{0.1, 0.5},
		{1.0, 0.9},
		{10.0, 0.1},
	}
	for _, c := range cases {
		birth, death := bd.GetBD(c.r, c.a)
		r, a := bd.GetRA(birth, death)
		if math.Abs(r-c.r) > 1e-9 || math.Abs(a-c.a) > 1e-9 {
			t.Errorf("GetBD/GetRA(%v, %v): got (%v, %v), want (%v, %v)", c.r, c.a, r, a, c.r, c.a)
		}
	}

	bdCases := []struct{ birth, death float64 }{
		{0.5, 0.1},
		{1.0, 0.0},
		{2.5, 2.0},
	}
	for _, c := range bdCases {
		r, a := bd.GetRA(c.birth, c.death)
		birth, death := bd.GetBD(r, a)
		if math.Abs(birth-c.birth) > 1e-9 || math.Abs(death-c.death) > 1e-9 {
			t.Errorf("GetRA/GetBD(%v, %v): got (%v, %v), want (%v, %v)", c.birth, c.death, birth, death, c.birth, c.death)
		}
	}
}

func TestP0P1Bounds(t *testing.T) {
	p0 := bd.P0(5, 0.5, 0.1, 0.8)
	if p0 < 0 || p0 > 1 {
		t.Errorf("P0 = %v, want a probability in [0, 1]", p0)
	}
	p1 := bd.P1(5, 0.5, 0.1, 0.8)
	if p1 <= 0 {
		t.Errorf("P1 = %v, want a positive density", p1)
	}
}

func TestIntP1Monotonic(t *testing.T) {
	a := bd.IntP1(1, 0.5, 0.1)
	b := bd.IntP1(10, 0.5, 0.1)
	if b <= a {
		t.Errorf("IntP1 should increase with t: IntP1(1)=%v, IntP1(10)=%v", a, b)
	}
}
