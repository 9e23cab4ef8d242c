// Package bd implements the constant-rate birth-death probability
// kernel and its maximum-likelihood fit, ported from
// original_source/tact/lib.py (Stadler 2010's p0/p1/intp1 and the
// Magallón-Sanderson-seeded two-step optimizer).
package bd

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// ErrNumeric is returned when neither the local nor the global
// optimization step converges to a finite likelihood.
var ErrNumeric = errors.New("bd: optimizer did not converge")

// decimalPrecision is the number of significant digits used by the
// exact decimal fallback when a double-precision evaluation of p0,
// p1, or intp1 over/underflows.
const decimalPrecision = 50

// smallestPositive is returned by P1 instead of 0, keeping downstream
// log-likelihoods finite.
const smallestPositive = 4.9406564584124654e-324

// Params holds a fitted birth and death rate.
type Params struct {
	Birth float64
	Death float64
}

// P0 is the probability that a single lineage at time t in the past
// leaves no sampled descendants, under a constant-rate birth-death
// process with birth rate birth, death rate death, and sampling
// fraction rho.
func P0(t, birth, death, rho float64) float64 {
	diff := birth - death
	ex := math.Exp(-diff * t)
	denom := rho*birth + (birth*(1-rho)-death)*ex
	val := 1 - rho*diff/denom
	if !finite(val) {
		val = p0Exact(t, birth, death, rho)
	}
	return val
}

// P1 is the probability density of a single lineage leaving exactly
// one sampled descendant at time t in the past. Returns the smallest
// positive float64 rather than 0 or a negative/non-finite value, so
// that log(P1(...)) stays finite.
func P1(t, birth, death, rho float64) float64 {
	diff := birth - death
	ex := math.Exp(-diff * t)
	denom := rho*birth + (birth*(1-rho)-death)*ex
	val := rho * diff * diff * ex / (denom * denom)
	if !finite(val) || val <= 0 {
		val = p1Exact(t, birth, death, rho)
	}
	if !finite(val) || val <= 0 {
		return smallestPositive
	}
	return val
}

// IntP1 is the antiderivative used by the inverse-transform time
// sampler (sampler.GetNewTimes).
func IntP1(t, birth, death float64) float64 {
	diff := birth - death
	ex := math.Exp(-diff * t)
	val := (1 - ex) / (birth - death*ex)
	if !finite(val) {
		val = intp1Exact(t, birth, death)
	}
	return val
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// LikConstant returns the negative log-likelihood of waiting times t
// (sorted descending) under a constant-rate birth-death process with
// sampling fraction rho. root and survival mirror the original
// lik_constant's root=1, survival=1 conditioning flags.
func LikConstant(p Params, rho float64, t []float64, root, survival bool) float64 {
	if len(t) == 0 {
		return 0
	}
	mult := 1.0
	if root {
		mult = 2.0
	}
	t0 := t[0]
	ll := mult * math.Log(P1(t0, p.Birth, p.Death, rho))
	for _, ti := range t[1:] {
		ll += math.Log(p.Birth) + math.Log(P1(ti, p.Birth, p.Death, rho))
	}
	if survival {
		ll -= mult * math.Log(1-P0(t0, p.Birth, p.Death, rho))
	}
	return -ll
}

// GetBD converts the (r, a) optimization parameterization -- r =
// birth-death, a = death/birth -- back into (birth, death).
func GetBD(r, a float64) (birth, death float64) {
	birth = r / (1 - a)
	death = a * birth
	return birth, death
}

// GetRA converts (birth, death) into the (r, a) optimization
// parameterization.
func GetRA(birth, death float64) (r, a float64) {
	r = birth - death
	if birth == 0 {
		return r, 0
	}
	return r, death / birth
}

func toDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func expDecimal(x decimal.Decimal) decimal.Decimal {
	ex, err := x.ExpTaylor(decimalPrecision)
	if err != nil {
		return decimal.NewFromFloat(math.Exp(x.InexactFloat64()))
	}
	return ex
}

// p0Exact, p1Exact, and intp1Exact recompute P0/P1/IntP1 with
// arbitrary-precision decimal arithmetic, used only when the double
// precision formula over/underflows (spec.md §9 design notes prefer a
// vetted decimal library here over a hand-rolled bigfloat routine).
func p0Exact(t, birth, death, rho float64) float64 {
	b, d, r, tt := toDecimal(birth), toDecimal(death), toDecimal(rho), toDecimal(t)
	diff := b.Sub(d)
	ex := expDecimal(diff.Neg().Mul(tt))
	denom := r.Mul(b).Add(b.Mul(decimal.NewFromInt(1).Sub(r)).Sub(d).Mul(ex))
	if denom.IsZero() {
		return math.NaN()
	}
	val := decimal.NewFromInt(1).Sub(r.Mul(diff).Div(denom))
	f, _ := val.Float64()
	return f
}

func p1Exact(t, birth, death, rho float64) float64 {
	b, d, r, tt := toDecimal(birth), toDecimal(death), toDecimal(rho), toDecimal(t)
	diff := b.Sub(d)
	ex := expDecimal(diff.Neg().Mul(tt))
	denom := r.Mul(b).Add(b.Mul(decimal.NewFromInt(1).Sub(r)).Sub(d).Mul(ex))
	if denom.IsZero() {
		return math.NaN()
	}
	val := r.Mul(diff).Mul(diff).Mul(ex).Div(denom.Mul(denom))
	f, _ := val.Float64()
	return f
}

func intp1Exact(t, birth, death float64) float64 {
	b, d, tt := toDecimal(birth), toDecimal(death), toDecimal(t)
	diff := b.Sub(d)
	ex := expDecimal(diff.Neg().Mul(tt))
	denom := b.Sub(d.Mul(ex))
	if denom.IsZero() {
		return math.NaN()
	}
	val := decimal.NewFromInt(1).Sub(ex).Div(denom)
	f, _ := val.Float64()
	return f
}
