package tree

import "math/big"

// Index is a bitmask-based most-recent-common-ancestor accelerator,
// replacing the singleton "fastmrca" module of the original
// implementation (see spec.md §9) with an explicit, rebuildable
// context object. Build one per working tree; rebuild after any graft
// that changes the tree's tip set.
type Index struct {
	tree *Tree
	bit  map[string]*big.Int
	mask map[int]*big.Int
}

// NewIndex builds a bitmask index over t's current terminals.
func NewIndex(t *Tree) *Index {
	idx := &Index{
		tree: t,
		bit:  make(map[string]*big.Int),
		mask: make(map[int]*big.Int),
	}
	for i, n := range t.Terms() {
		idx.bit[n.taxon] = new(big.Int).Lsh(big.NewInt(1), uint(i))
	}
	idx.compute(t.root)
	return idx
}

func (idx *Index) compute(n *Node) *big.Int {
	if n.IsTerm() {
		m, ok := idx.bit[n.taxon]
		if !ok {
			m = new(big.Int)
		}
		idx.mask[n.id] = m
		return m
	}
	m := new(big.Int)
	for _, c := range n.children {
		m.Or(m, idx.compute(c))
	}
	idx.mask[n.id] = m
	return m
}

// Bitmask returns the OR of the bits of every known label in labels.
// Unknown labels are silently ignored (callers check membership via
// the taxon set directly before querying).
func (idx *Index) Bitmask(labels []string) *big.Int {
	m := new(big.Int)
	for _, l := range labels {
		if b, ok := idx.bit[canon(l)]; ok {
			m.Or(m, b)
		}
	}
	return m
}

// MRCA returns the most recent common ancestor whose leaf set
// (bitmask) is a superset of mask, or nil if mask is empty or
// matches no node (e.g. it references labels absent from this tree).
func (idx *Index) MRCA(mask *big.Int) *Node {
	if mask.Sign() == 0 {
		return nil
	}
	var best *Node
	var walk func(n *Node) bool
	walk = func(n *Node) bool {
		nm := idx.mask[n.id]
		if nm == nil {
			return false
		}
		missing := new(big.Int).AndNot(mask, nm)
		if missing.Sign() != 0 {
			return false
		}
		for _, c := range n.children {
			if walk(c) {
				return true
			}
		}
		best = n
		return true
	}
	walk(idx.tree.root)
	return best
}

// Leafset returns the bitmask of all terminals descending from n.
func (idx *Index) Leafset(n *Node) *big.Int {
	m := idx.mask[n.id]
	if m == nil {
		return new(big.Int)
	}
	return m
}
