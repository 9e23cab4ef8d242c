package bd_test

import (
	"math/rand/v2"
	"testing"

	"github.com/jonchang/tact/bd"
)

var testAges = []float64{
	21.1153, 21.1153, 18.2343, 16.9985, 16.7312, 15.0325, 13.6080,
	12.5684, 12.5676, 12.5603, 12.0706, 11.6514, 10.8731, 10.6688,
	10.4594, 9.8804, 9.7190, 9.6864, 9.5272, 9.0362, 8.2471, 7.6962,
	7.4287, 6.2043, 6.1897, 5.4633, 4.8467, 4.5434, 4.0969, 2.5332,
	2.5056, 2.3816, 0.4648, 0.3755, 0.3212, 0.005,
}

func TestOptimBDConverges(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	p, err := bd.OptimBD(testAges, 0.3, rng)
	if err != nil {
		t.Fatalf("OptimBD: %v", err)
	}
	if p.Birth <= 0 {
		t.Errorf("birth rate = %v, want positive", p.Birth)
	}
	if p.Death < 0 {
		t.Errorf("death rate = %v, want non-negative", p.Death)
	}
}

// Ported from tests/test_yule.py's test_yule_has_no_extinction: a Yule
// fit always forces the extinction rate to zero.
func TestOptimYuleHasNoExtinction(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	p, err := bd.OptimYule(testAges, 0.3, rng)
	if err != nil {
		t.Fatalf("OptimYule: %v", err)
	}
	if p.Death != 0 {
		t.Errorf("death rate = %v, want exactly 0", p.Death)
	}
	if p.Birth <= 0 {
		t.Errorf("birth rate = %v, want positive", p.Birth)
	}
}

func TestOptimBDRejectsEmptyAges(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	if _, err := bd.OptimBD(nil, 0.5, rng); err == nil {
		t.Fatal("expected an error for no waiting times")
	}
}
