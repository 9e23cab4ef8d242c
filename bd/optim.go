package bd

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/optimize"
)

// bounds for the (r, a) parameterization, per spec.md §4.1.
var (
	rLo, rHi = 1e-9, 100.0
	aLo, aHi = 0.0, 1-1e-9
)

// initR is the Magallón-Sanderson crown age estimator used to seed
// the optimizer, clipped to at least 1e-3.
func initR(nTips int, rho, maxT float64) float64 {
	r0 := (math.Log(float64(nTips+1)/rho) - math.Log(2)) / maxT
	if r0 < 1e-3 {
		r0 = 1e-3
	}
	return r0
}

// penalize wraps an objective so that out-of-bounds inputs evaluate
// to +Inf, letting a derivative-free, unconstrained gonum method
// (NelderMead, GuessAndCheck) emulate box-constrained optimization --
// gonum's optimize package has no native bound support.
func penalize(f func([]float64) float64, lo, hi []float64) func([]float64) float64 {
	return func(x []float64) float64 {
		for i, v := range x {
			if v < lo[i] || v > hi[i] {
				return math.Inf(1)
			}
		}
		return f(x)
	}
}

// uniformRander draws a uniform random point within [lo, hi], used as
// optimize.GuessAndCheck's global-stochastic-search analogue of
// SciPy's dual_annealing.
type uniformRander struct {
	rng    *rand.Rand
	lo, hi []float64
}

func (u *uniformRander) Rand(x []float64) []float64 {
	for i := range x {
		x[i] = u.lo[i] + u.rng.Float64()*(u.hi[i]-u.lo[i])
	}
	return x
}

func validResult(f float64) bool {
	return finite(f) && !math.IsInf(f, 1)
}

// OptimBD fits (birth, death) under a constant-rate birth-death
// process to waiting times ages (sorted descending) with sampling
// fraction rho, using the two-step strategy of spec.md §4.1: a local
// bounded Nelder-Mead search seeded at the Magallón-Sanderson
// estimate, falling back to a global stochastic search
// (optimize.GuessAndCheck) if the local step fails to converge or
// ends on a non-finite likelihood.
func OptimBD(ages []float64, rho float64, rng *rand.Rand) (Params, error) {
	if len(ages) == 0 {
		return Params{}, fmt.Errorf("%w: no waiting times", ErrNumeric)
	}
	n := len(ages) + 1
	maxT := ages[0]
	r0 := initR(n, rho, maxT)
	a0 := 1e-9

	lo := []float64{rLo, aLo}
	hi := []float64{rHi, aHi}

	obj := func(x []float64) float64 {
		b, d := GetBD(x[0], x[1])
		return LikConstant(Params{Birth: b, Death: d}, rho, ages, true, true)
	}
	problem := optimize.Problem{Func: penalize(obj, lo, hi)}

	x, f, ok := runLocal(problem, []float64{r0, a0})
	if !ok || !validResult(f) {
		x, f, ok = runGlobal(problem, lo, hi, []float64{r0, a0}, rng)
	}
	if !ok || !validResult(f) {
		return Params{}, ErrNumeric
	}
	b, d := GetBD(x[0], x[1])
	return Params{Birth: b, Death: d}, nil
}

// OptimYule fits a birth rate under a pure-birth (Yule, death=0)
// process, using the ported Brent bounded scalar minimizer as the
// local step and a 1-D GuessAndCheck as the global fallback.
func OptimYule(ages []float64, rho float64, rng *rand.Rand) (Params, error) {
	if len(ages) == 0 {
		return Params{}, fmt.Errorf("%w: no waiting times", ErrNumeric)
	}
	n := len(ages) + 1
	maxT := ages[0]
	r0 := initR(n, rho, maxT)
	_ = r0

	obj1 := func(r float64) float64 {
		return LikConstant(Params{Birth: r, Death: 0}, rho, ages, true, true)
	}
	res := brentMinimize(obj1, rLo, rHi, 1e-5, 500)
	if res.Success && validResult(res.F) {
		return Params{Birth: res.X, Death: 0}, nil
	}

	lo := []float64{rLo}
	hi := []float64{rHi}
	problem := optimize.Problem{Func: penalize(func(x []float64) float64 { return obj1(x[0]) }, lo, hi)}
	x, f, ok := runGlobal(problem, lo, hi, []float64{r0}, rng)
	if !ok || !validResult(f) {
		return Params{}, ErrNumeric
	}
	return Params{Birth: x[0], Death: 0}, nil
}

func runLocal(problem optimize.Problem, x0 []float64) ([]float64, float64, bool) {
	result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err != nil || result == nil {
		return nil, 0, false
	}
	if result.Status != optimize.Success && result.Status != optimize.FunctionConvergence {
		return nil, 0, false
	}
	return result.X, result.F, true
}

func runGlobal(problem optimize.Problem, lo, hi, x0 []float64, rng *rand.Rand) ([]float64, float64, bool) {
	rander := &uniformRander{rng: rng, lo: lo, hi: hi}
	settings := &optimize.Settings{MaxFuncEvaluations: 2000}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.GuessAndCheck{Rander: rander})
	if err != nil || result == nil {
		return nil, 0, false
	}
	return result.X, result.F, true
}
