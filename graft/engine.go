// Package graft implements the monophyletic-graft state machine --
// the grafting engine -- that walks a taxonomy post-order and attaches
// missing species onto a working copy of a backbone tree, per
// spec.md §4.5, ported from
// original_source/tact/cli_add_taxa.py's main CLI loop.
package graft

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/jonchang/tact/ratetable"
	"github.com/jonchang/tact/sampler"
	"github.com/jonchang/tact/taxonomy"
	"github.com/jonchang/tact/tree"
)

// Options configures a single engine run.
type Options struct {
	MinCCP float64
}

// Run walks tax in post-order, grafting missing species onto a cloned
// working copy of bb using the rates in rt, and returns the completed
// tree.
func Run(tax *taxonomy.Tree, bb *tree.Tree, rt *ratetable.Table, opts Options, rng *rand.Rand) (*tree.Tree, error) {
	w := bb.Clone()
	idx := tree.NewIndex(w)
	treeTips := make(map[string]bool)
	for _, n := range w.TermNames() {
		treeTips[n] = true
	}
	fullClades := make(map[string]*taxonomy.Node)

	for _, node := range tax.PostOrder() {
		S := tax.Leaves(node)
		sSet := labelSet(S)
		E := intersectSet(S, treeTips)

		if len(E) == 0 {
			fullClades[node.Label] = node
			continue
		}

		mrca := idx.MRCA(idx.Bitmask(E))
		if mrca == nil || !w.IsMonophyletic(mrca, sSet) {
			// Handled at a higher rank, or intruded upon; skip.
			continue
		}

		if len(E) == len(S) {
			// Also covers "tree_tips ⊇ S", which is set-theoretically
			// identical to E == S given E := S ∩ tree_tips.
			w.Lock(mrca, false)
			continue
		}

		var err error
		idx, err = drainAndSpray(w, idx, tax, node, mrca, fullClades, rt, opts, rng, treeTips)
		if err != nil {
			return nil, fmt.Errorf("processing %q: %w", node.Label, err)
		}
	}

	if !w.IsBinary() {
		return nil, fmt.Errorf("%w: output tree is not binary", tree.ErrInvariant)
	}
	w.Ladderize()
	return w, nil
}

func drainAndSpray(
	w *tree.Tree,
	idx *tree.Index,
	tax *taxonomy.Tree,
	node *taxonomy.Node,
	mrca *tree.Node,
	fullClades map[string]*taxonomy.Node,
	rt *ratetable.Table,
	opts Options,
	rng *rand.Rand,
	treeTips map[string]bool,
) (*tree.Index, error) {
	entry, _ := rt.Get(node.Label)
	S := tax.Leaves(node)
	sSet := labelSet(S)

	var pending []*taxonomy.Node
	for label, c := range fullClades {
		if isDescendant(c, node) {
			pending = append(pending, c)
			delete(fullClades, label)
		}
	}
	rng.Shuffle(len(pending), func(i, j int) { pending[i], pending[j] = pending[j], pending[i] })
	sort.SliceStable(pending, func(i, j int) bool { return tax.Depth(pending[i]) > tax.Depth(pending[j]) })

	for _, c := range pending {
		Sc := tax.Leaves(c)
		if supersetOf(treeTips, Sc) {
			continue
		}

		told := mrca.Age()
		if entry.CCP < opts.MinCCP && mrca.Parent() != nil {
			told = mrca.Parent().Age()
		}
		tyoung := 0.0
		times, err := sampler.GetNewTimes(w.InternalAges(mrca), entry.Birth, entry.Death, len(Sc), &told, &tyoung, rng)
		if err != nil {
			return idx, err
		}

		stem := false
		if w.IsFullyLocked(mrca) {
			stem = true
			if mrca.Parent() != nil && len(times) > 0 {
				parentAge, mrcaAge := mrca.Parent().Age(), mrca.Age()
				extra, err := sampler.GetNewTimes(nil, entry.Birth, entry.Death, 1, &parentAge, &mrcaAge, rng)
				if err == nil && len(extra) == 1 {
					times[0] = extra[0]
				}
			}
		} else {
			minAge, err := w.MinGraftableAge(mrca)
			if err != nil {
				return idx, err
			}
			if len(times) > 0 && minAge > times[0] {
				mrcaAge := mrca.Age()
				extra, err := sampler.GetNewTimes(nil, entry.Birth, entry.Death, 1, &mrcaAge, &minAge, rng)
				if err == nil && len(extra) == 1 {
					times[0] = extra[0]
				}
			}
		}
		if entry.CCP < opts.MinCCP {
			stem = true
		}

		seed, err := CreateClade(Sc, times, rng)
		if err != nil {
			return idx, err
		}

		if _, err := graftWithRetry(w, mrca, seed, stem, rng); err != nil {
			return idx, err
		}

		for _, sp := range Sc {
			treeTips[sp] = true
		}
		idx = tree.NewIndex(w)
		if m := idx.MRCA(idx.Bitmask(intersectSet(S, treeTips))); m != nil {
			mrca = m
		}
	}

	E := intersectSet(S, treeTips)
	if len(E) != len(S) {
		missing := diffSet(sSet, treeTips)
		sort.Strings(missing)
		if len(missing) > 0 {
			tyoung, err := w.MinGraftableAge(mrca)
			if err != nil {
				return idx, err
			}
			told := mrca.Age()
			if entry.CCP < opts.MinCCP && mrca.Parent() != nil {
				told = mrca.Parent().Age()
			}
			times, err := sampler.GetNewTimes(w.InternalAges(mrca), entry.Birth, entry.Death, len(missing), &told, &tyoung, rng)
			if err != nil {
				return idx, err
			}
			stem := entry.CCP < opts.MinCCP
			for i, sp := range missing {
				stub := tree.NewDetachedNode(times[i], "")
				leaf := tree.NewDetachedNode(0, sp)
				stub.AddChildNode(leaf)
				if _, err := graftWithRetry(w, mrca, stub, stem, rng); err != nil {
					return idx, err
				}
				treeTips[sp] = true
			}
			idx = tree.NewIndex(w)
			if m := idx.MRCA(idx.Bitmask(intersectSet(S, treeTips))); m != nil {
				mrca = m
			}
		}
		w.Lock(mrca, false)
	}

	return idx, nil
}

// graftWithRetry implements the PlacementError-retry-with-stem policy
// of spec.md §7: a non-stem graft attempt that finds no eligible edge
// is retried once with stem=true.
func graftWithRetry(w *tree.Tree, recipient, g *tree.Node, stem bool, rng *rand.Rand) (*tree.Node, error) {
	n, err := w.Graft(recipient, g, stem, rng)
	if err == nil {
		return n, nil
	}
	if !stem && errors.Is(err, tree.ErrPlacement) {
		return w.Graft(recipient, g, true, rng)
	}
	return nil, err
}

func isDescendant(c, ancestor *taxonomy.Node) bool {
	for x := c; x != nil; x = x.Parent() {
		if x == ancestor {
			return true
		}
	}
	return false
}

func labelSet(labels []string) map[string]bool {
	m := make(map[string]bool, len(labels))
	for _, l := range labels {
		m[l] = true
	}
	return m
}

func intersectSet(labels []string, set map[string]bool) []string {
	var out []string
	for _, l := range labels {
		if set[l] {
			out = append(out, l)
		}
	}
	return out
}

func diffSet(set map[string]bool, exclude map[string]bool) []string {
	var out []string
	for l := range set {
		if !exclude[l] {
			out = append(out, l)
		}
	}
	return out
}

func supersetOf(set map[string]bool, labels []string) bool {
	for _, l := range labels {
		if !set[l] {
			return false
		}
	}
	return true
}
