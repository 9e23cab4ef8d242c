package graft

import (
	"fmt"
	"math/rand/v2"

	"github.com/jonchang/tact/tree"
)

// CreateClade builds a synthetic, fully resolved binary subtree for
// species using ages (sorted descending, len(ages) == len(species)),
// per spec.md §4.6. The returned node is the "seed" -- the subtree's
// single attachment point -- with exactly one child (the crown); the
// crown's own subtree is locked so future grafts may still target the
// seed's stem but not the new clade's interior. The returned subtree
// is detached: callers splice it in with tree.Graft.
func CreateClade(species []string, ages []float64, rng *rand.Rand) (*tree.Node, error) {
	if len(species) == 0 {
		return nil, fmt.Errorf("%w: create_clade called with no species", tree.ErrInvariant)
	}
	if len(ages) != len(species) {
		return nil, fmt.Errorf("%w: create_clade got %d ages for %d species", tree.ErrInvariant, len(ages), len(species))
	}

	seed := tree.NewDetachedNode(ages[0], "")

	if len(species) == 1 {
		leaf := tree.NewDetachedNode(0, species[0])
		seed.AddChildNode(leaf)
		return seed, nil
	}

	crown := tree.NewDetachedNode(ages[1], "")
	seed.AddChildNode(crown)
	nodes := []*tree.Node{crown}

	for _, a := range ages[2:] {
		var eligible []*tree.Node
		for _, c := range nodes {
			if len(c.Children()) < 2 && c.Age() > a {
				eligible = append(eligible, c)
			}
		}
		if len(eligible) == 0 {
			return nil, fmt.Errorf("%w: no eligible node older than %g in create_clade", tree.ErrInvariant, a)
		}
		chosen := eligible[rng.IntN(len(eligible))]
		n := tree.NewDetachedNode(a, "")
		chosen.AddChildNode(n)
		nodes = append(nodes, n)
	}

	var openSlots []*tree.Node
	for _, c := range nodes {
		for i := 0; i < 2-len(c.Children()); i++ {
			openSlots = append(openSlots, c)
		}
	}
	if len(openSlots) != len(species) {
		return nil, fmt.Errorf("%w: create_clade has %d open slots for %d species", tree.ErrInvariant, len(openSlots), len(species))
	}

	perm := rng.Perm(len(species))
	for i, parent := range openSlots {
		leaf := tree.NewDetachedNode(0, species[perm[i]])
		parent.AddChildNode(leaf)
	}

	lockSubtree(crown)
	return seed, nil
}

func lockSubtree(n *tree.Node) {
	n.SetLocked(true)
	for _, c := range n.Children() {
		lockSubtree(c)
	}
}
