// Package sampler draws missing speciation times inside a bounded
// interval under a fitted constant-rate birth-death process, ported
// from original_source/tact/lib.py's get_new_times (the inverse-CDF
// method of Cusimano et al. 2012) and crown_capture_probability
// (Sanderson 1996).
package sampler

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/jonchang/tact/bd"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvariant is returned when the sampler is asked to operate on an
// inconsistent age bound (max(ages) > told).
var ErrInvariant = errors.New("sampler: max age exceeds told bound")

// ErrInput is returned by CrownCaptureProbability for an invalid
// (n, k) pair.
var ErrInput = errors.New("sampler: invalid (n, k)")

// ageEpsilon is machine epsilon for float64, matching the original's
// sys.float_info.epsilon tolerance on the max(ages) > told invariant.
const ageEpsilon = 2.220446049250313e-16

// GetNewTimes draws missing new branching times inside (tyoung, told]
// under a birth-death process with the given birth/death rates. ages
// are the existing branching times of the clade. told defaults to
// max(ages); tyoung defaults to 0. Returns exactly missing times,
// sorted descending.
func GetNewTimes(ages []float64, birth, death float64, missing int, told, tyoung *float64, rng *rand.Rand) ([]float64, error) {
	sorted := append([]float64(nil), ages...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	toldV := 0.0
	if len(sorted) > 0 {
		toldV = sorted[0]
	}
	if told != nil {
		toldV = *told
	}
	tyoungV := 0.0
	if tyoung != nil {
		tyoungV = *tyoung
	}

	if len(sorted) > 0 && sorted[0] > toldV+ageEpsilon {
		return nil, fmt.Errorf("%w: max(ages)=%g > told=%g", ErrInvariant, sorted[0], toldV)
	}

	times := []float64{toldV}
	for _, a := range sorted {
		if a <= toldV && a >= tyoungV {
			times = append(times, a)
		}
	}
	times = append(times, tyoungV)

	u01 := distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(rng.Uint64(), rng.Uint64())}

	newTimes := make([]float64, 0, missing)
	for i := 0; i < missing; i++ {
		addrank := 0
		if len(times) > 2 {
			weights := make([]float64, len(times)-1)
			total := 0.0
			for i := 1; i < len(times); i++ {
				d := float64(i) * (bd.IntP1(times[i-1], birth, death) - bd.IntP1(times[i], birth, death))
				weights[i-1] = d
				total += d
			}
			if total > 0 {
				r := u01.Rand()
				cum := 0.0
				found := -1
				for i, w := range weights {
					cum += w / total
					if cum > r {
						found = i
						break
					}
				}
				if found >= 0 {
					addrank = found
				}
			}
		}

		c := bd.IntP1(times[addrank], birth, death) - bd.IntP1(times[addrank+1], birth, death)
		u := 0.0
		if c != 0 {
			u = bd.IntP1(times[addrank+1], birth, death) / c
		}
		r := u01.Rand()
		xnew := 1 / (death - birth) * math.Log((1-(r+u)*c*birth)/(1-(r+u)*c*death))
		newTimes = append(newTimes, xnew)
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(newTimes)))
	return newTimes, nil
}

// CrownCaptureProbability is the chance that a random sample of k
// extant species out of n includes the crown node, under a Yule
// process (Sanderson 1996).
func CrownCaptureProbability(n, k int) (float64, error) {
	if n < k {
		return 0, fmt.Errorf("%w: n=%d < k=%d", ErrInput, n, k)
	}
	if n == 1 && k == 1 {
		return 0, nil
	}
	return 1 - 2*float64(n-k)/(float64(n-1)*float64(k+1)), nil
}
