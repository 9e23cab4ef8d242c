package sampler_test

import (
	"math/rand/v2"
	"testing"

	"github.com/jonchang/tact/sampler"
)

func TestGetNewTimesCount(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	ages := []float64{10, 8, 5}
	told := 10.0
	tyoung := 0.0
	times, err := sampler.GetNewTimes(ages, 0.3, 0.05, 4, &told, &tyoung, rng)
	if err != nil {
		t.Fatalf("GetNewTimes: %v", err)
	}
	if len(times) != 4 {
		t.Fatalf("got %d times, want 4", len(times))
	}
	for i, tm := range times {
		if tm > told || tm < tyoung {
			t.Errorf("time[%d] = %v, want within [%v, %v]", i, tm, tyoung, told)
		}
		if i > 0 && times[i-1] < times[i] {
			t.Errorf("times not sorted descending: %v", times)
		}
	}
}

func TestGetNewTimesRejectsInconsistentTold(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	ages := []float64{10}
	told := 5.0
	if _, err := sampler.GetNewTimes(ages, 0.3, 0.05, 1, &told, nil, rng); err == nil {
		t.Fatal("expected an error when max(ages) exceeds told")
	}
}

// Ported from lib.py's crown_capture_probability docstring examples
// (Sanderson 1996): a singleton clade never captures its own crown.
func TestCrownCaptureProbabilitySingleton(t *testing.T) {
	ccp, err := sampler.CrownCaptureProbability(1, 1)
	if err != nil {
		t.Fatalf("CrownCaptureProbability: %v", err)
	}
	if ccp != 0 {
		t.Errorf("ccp = %v, want 0", ccp)
	}
}

func TestCrownCaptureProbabilityFullSample(t *testing.T) {
	ccp, err := sampler.CrownCaptureProbability(10, 10)
	if err != nil {
		t.Fatalf("CrownCaptureProbability: %v", err)
	}
	if ccp != 1 {
		t.Errorf("ccp = %v, want 1 for a complete sample", ccp)
	}
}

func TestCrownCaptureProbabilityRejectsInvalid(t *testing.T) {
	if _, err := sampler.CrownCaptureProbability(2, 5); err == nil {
		t.Fatal("expected an error when k > n")
	}
}
