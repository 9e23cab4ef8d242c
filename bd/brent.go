package bd

import "math"

// brentResult is the outcome of brentMinimize.
type brentResult struct {
	X       float64
	F       float64
	Success bool
}

// brentMinimize finds a local minimum of f on [lo, hi] using Brent's
// method (golden-section search plus parabolic interpolation), ported
// from original_source/tact/vendor/scipy_optimize/
// _minimize_scalar_bounded.py. This is the bounded 1-D scalar
// minimizer used by OptimYule; gonum's optimize package has no
// built-in bounded scalar method, so this routine is reimplemented
// directly from the vendored reference rather than hand-rolled from
// scratch.
func brentMinimize(f func(float64) float64, lo, hi, xatol float64, maxIter int) brentResult {
	const sqrtEps = 1.4901161193847656e-08 // sqrt(2.2e-16)
	goldenMean := 0.5 * (3.0 - math.Sqrt(5.0))

	a, b := lo, hi
	fulc := a + goldenMean*(b-a)
	nfc, xf := fulc, fulc
	rat, e := 0.0, 0.0
	x := xf
	fx := f(x)
	num := 1
	fu := math.Inf(1)

	ffulc, fnfc := fx, fx
	xm := 0.5 * (a + b)
	tol1 := sqrtEps*math.Abs(xf) + xatol/3.0
	tol2 := 2.0 * tol1

	flag := 0
	for math.Abs(xf-xm) > (tol2 - 0.5*(b-a)) {
		golden := true
		if math.Abs(e) > tol1 {
			golden = false
			r := (xf - nfc) * (fx - ffulc)
			q := (xf - fulc) * (fx - fnfc)
			p := (xf-fulc)*q - (xf-nfc)*r
			q = 2.0 * (q - r)
			if q > 0.0 {
				p = -p
			}
			q = math.Abs(q)
			r = e
			e = rat

			if math.Abs(p) < math.Abs(0.5*q*r) && p > q*(a-xf) && p < q*(b-xf) {
				rat = p / q
				x = xf + rat
				if (x-a) < tol2 || (b-x) < tol2 {
					si := sign(xm-xf) + boolFloat(xm == xf)
					rat = tol1 * si
				}
			} else {
				golden = true
			}
		}

		if golden {
			if xf >= xm {
				e = a - xf
			} else {
				e = b - xf
			}
			rat = goldenMean * e
		}

		si := sign(rat) + boolFloat(rat == 0)
		x = xf + si*math.Max(math.Abs(rat), tol1)
		fu = f(x)
		num++

		if fu <= fx {
			if x >= xf {
				a = xf
			} else {
				b = xf
			}
			fulc, ffulc = nfc, fnfc
			nfc, fnfc = xf, fx
			xf, fx = x, fu
		} else {
			if x < xf {
				a = x
			} else {
				b = x
			}
			if fu <= fnfc || nfc == xf {
				fulc, ffulc = nfc, fnfc
				nfc, fnfc = x, fu
			} else if fu <= ffulc || fulc == xf || fulc == nfc {
				fulc, ffulc = x, fu
			}
		}

		xm = 0.5 * (a + b)
		tol1 = sqrtEps*math.Abs(xf) + xatol/3.0
		tol2 = 2.0 * tol1

		if num >= maxIter {
			flag = 1
			break
		}
	}

	if math.IsNaN(xf) || math.IsNaN(fx) || math.IsNaN(fu) {
		flag = 2
	}

	return brentResult{X: xf, F: fx, Success: flag == 0}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
