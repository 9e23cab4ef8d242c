package taxonomy

import "fmt"

// ValidateOutgroups cross-checks backboneTips against the taxonomy's
// species set: it returns an error for the first backbone tip that is
// neither a taxonomy species nor listed in outgroups. Names in
// outgroups that are not backbone tips are not reported. Ported from
// original_source/tact/validation.py's validate_outgroups.
func (t *Tree) ValidateOutgroups(backboneTips, outgroups []string) error {
	species := make(map[string]bool)
	for _, s := range t.Leaves(t.root) {
		species[s] = true
	}
	out := make(map[string]bool, len(outgroups))
	for _, o := range outgroups {
		out[o] = true
	}
	for _, tip := range backboneTips {
		if species[tip] {
			continue
		}
		if out[tip] {
			continue
		}
		return fmt.Errorf("%w: backbone tip %q is neither in the taxonomy nor listed as an outgroup", ErrInput, tip)
	}
	return nil
}

// ValidateDepths returns a warning message for every labeled leaf
// whose number of labeled ancestors differs from the first leaf's,
// i.e. the taxonomy does not have a uniform number of ranks.
// Non-fatal per spec.md §7; ported from
// original_source/tact/validation.py's validate_tree_node_depths.
func (t *Tree) ValidateDepths() []string {
	var warnings []string
	var first *Node
	var firstDepth int
	var walk func(n *Node)
	walk = func(n *Node) {
		if len(n.children) == 0 {
			d := t.Depth(n)
			if first == nil {
				first, firstDepth = n, d
			} else if d != firstDepth {
				warnings = append(warnings, fmt.Sprintf("species %q has %d labeled ancestors, expected %d (like %q)", n.Label, d, firstDepth, first.Label))
			}
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return warnings
}
