package tree

// NewDetachedNode creates a node not yet attached to any Tree, for use
// by synthetic subtree builders (graft.CreateClade) that need to
// assemble a subtree before splicing it in with Tree.Graft.
func NewDetachedNode(age float64, taxon string) *Node {
	return &Node{age: age, taxon: canon(taxon)}
}

// AddChildNode attaches c as a child of n. Both n and c must be
// detached (not yet part of a Tree) or already part of the same one;
// Tree.Graft assigns IDs and registers the whole subtree once it is
// spliced in.
func (n *Node) AddChildNode(c *Node) {
	c.parent = n
	n.children = append(n.children, c)
}

// SetLocked directly sets the locked flag on the edge above n. Used
// by create_clade to lock the crown of a freshly built synthetic
// subtree before it is grafted in.
func (n *Node) SetLocked(v bool) {
	n.locked = v
}
