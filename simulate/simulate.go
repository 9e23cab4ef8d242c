// Copyright © 2022 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package simulate builds random ultrametric trees for use as test
// fixtures elsewhere in this module, adapted from the timetree
// package's simulate.go to the float64-age tree.Tree model.
package simulate

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/jonchang/tact/tree"
	"gonum.org/v1/gonum/stat/distuv"
)

// Uniform builds a random tree with terminal ages given by ages (in
// million years), and a root age drawn uniformly from
// [max(min, max(ages)), max]. New terminals are spliced in one at a
// time at a uniformly chosen point along the existing tree, following
// the method of Ronquist et al. (2012) "A total evidence approach to
// dating with fossils, applied to the early radiation of Hymenoptera"
// Syst. Biol. 61: 973-999. Uniform panics if len(ages) < 2.
func Uniform(name string, max, min float64, ages []float64, rng *rand.Rand) *tree.Tree {
	if len(ages) < 2 {
		panic("simulate: expecting at least two terminals")
	}

	for _, a := range ages {
		if a > min {
			min = a
		}
	}
	rootAge := max
	if max > min {
		rootAge = min + rng.Float64()*(max-min)
	}

	shuffled := append([]float64(nil), ages...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	t := tree.New(name, rootAge)
	if _, err := t.AddNode(t.Root(), shuffled[0], "term0"); err != nil {
		panic(fmt.Sprintf("simulate: %v", err))
	}
	if _, err := t.AddNode(t.Root(), shuffled[1], "term1"); err != nil {
		panic(fmt.Sprintf("simulate: %v", err))
	}

	for i, a := range shuffled[2:] {
		term := fmt.Sprintf("term%d", i+2)
		stubAge := a + rng.Float64()*(rootAge-a)
		leaf := tree.NewDetachedNode(a, term)
		stub := tree.NewDetachedNode(stubAge, "")
		stub.AddChildNode(leaf)
		if _, err := t.Graft(t.Root(), stub, true, rng); err != nil {
			panic(fmt.Sprintf("simulate: %v", err))
		}
	}

	return t
}

// Coalescent builds a random tree for terms terminals (all at age 0)
// using the Kingman coalescent with population size n, with a root
// age capped at max (million years). See Felsenstein J. (2004)
// "Inferring Phylogenies", Sinauer, p.456. Coalescent panics if
// terms < 2.
func Coalescent(name string, n, max float64, terms int, rng *rand.Rand) *tree.Tree {
	if terms < 2 {
		panic("simulate: expecting at least two terminals")
	}

	ages := make([]float64, terms-1)
	for i := range ages {
		rate := float64((i+2)*(i+1)) / (4 * n)
		exp := distuv.Exponential{Rate: rate, Src: rand.NewPCG(rng.Uint64(), rng.Uint64())}
		a := exp.Rand()
		for a > max {
			a = exp.Rand()
		}
		ages[i] = a
	}
	slices.SortFunc(ages, func(a, b float64) int { return cmp.Compare(b, a) })

	t := tree.New(name, ages[0])
	if _, err := t.AddNode(t.Root(), 0, "term0"); err != nil {
		panic(fmt.Sprintf("simulate: %v", err))
	}
	if _, err := t.AddNode(t.Root(), 0, "term1"); err != nil {
		panic(fmt.Sprintf("simulate: %v", err))
	}

	for i := 2; i < terms; i++ {
		age := ages[i-1]
		term := fmt.Sprintf("term%d", i)
		leaf := tree.NewDetachedNode(0, term)
		stub := tree.NewDetachedNode(age, "")
		stub.AddChildNode(leaf)
		if _, err := t.Graft(t.Root(), stub, true, rng); err != nil {
			panic(fmt.Sprintf("simulate: %v", err))
		}
	}

	return t
}
