// Package taxonomy implements the taxonomy tree -- a rooted tree
// whose internal nodes are rank labels (e.g. "Cichlidae") and whose
// leaves are species -- and the CSV builder that constructs one from
// a ranks-to-species table (build_taxonomic_tree, spec.md §6),
// ported from original_source/tact/cli_taxonomy.py.
package taxonomy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonchang/tact/tree"
)

// ErrInput covers malformed taxonomy CSV input: duplicate column
// names, empty cells, or an empty file.
var ErrInput = errors.New("taxonomy: invalid input")

// Node is a node of a Tree: an internal rank-labeled node, or a
// species leaf.
type Node struct {
	Label     string
	Rank      string
	IsSpecies bool
	parent    *Node
	children  []*Node
}

// Parent returns n's parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns n's children.
func (n *Node) Children() []*Node { return n.children }

// Tree is a taxonomy tree built from a ranks CSV.
type Tree struct {
	root  *Node
	ranks []string
}

// Root returns the tree's (unlabeled, synthetic) root node.
func (t *Tree) Root() *Node { return t.root }

// Ranks returns the CSV header, most inclusive rank first, species
// last.
func (t *Tree) Ranks() []string { return t.ranks }

// Leaves returns the species labels under n, sorted.
func (t *Tree) Leaves(n *Node) []string {
	var ls []string
	var walk func(x *Node)
	walk = func(x *Node) {
		if len(x.children) == 0 {
			ls = append(ls, x.Label)
			return
		}
		for _, c := range x.children {
			walk(c)
		}
	}
	walk(n)
	sort.Strings(ls)
	return ls
}

// PostOrder returns every labeled node (excluding the synthetic root)
// in post-order.
func (t *Tree) PostOrder() []*Node {
	var ns []*Node
	var walk func(x *Node)
	walk = func(x *Node) {
		for _, c := range x.children {
			walk(c)
		}
		if x != t.root {
			ns = append(ns, x)
		}
	}
	walk(t.root)
	return ns
}

// PreOrder returns every labeled node (excluding the synthetic root)
// in pre-order.
func (t *Tree) PreOrder() []*Node {
	var ns []*Node
	var walk func(x *Node)
	walk = func(x *Node) {
		if x != t.root {
			ns = append(ns, x)
		}
		for _, c := range x.children {
			walk(c)
		}
	}
	walk(t.root)
	return ns
}

// Depth returns the number of labeled ancestors of n (the root is not
// counted).
func (t *Tree) Depth(n *Node) int {
	d := 0
	for x := n.parent; x != nil && x != t.root; x = x.parent {
		d++
	}
	return d
}

// WriteNewick writes t as a topology-only newick string (no branch
// lengths, since a taxonomy carries no ages), labeling every node with
// its rank label. Mirrors cli_taxonomy.py's write_to_path step.
func WriteNewick(w io.Writer, t *Tree) error {
	var walk func(n *Node) string
	walk = func(n *Node) string {
		if len(n.children) == 0 {
			return n.Label
		}
		parts := make([]string, len(n.children))
		for i, c := range n.children {
			parts[i] = walk(c)
		}
		return "(" + strings.Join(parts, ",") + ")" + n.Label
	}
	_, err := fmt.Fprintf(w, "%s;\n", walk(t.root))
	return err
}

// BuildCSV builds a taxonomy tree from a CSV whose header lists rank
// names from most inclusive to least inclusive, with the last column
// holding species names. Empty cells and duplicate column names are
// errors. A rank label that collides with a label already used
// elsewhere in the tree (under a different parent, or in a different
// column) is disambiguated by appending "__<rankname>__". Species
// names are normalized with tree.Canon, so they match the tip labels
// of a backbone tree.
func BuildCSV(r io.Reader) (*Tree, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrInput, err)
	}
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInput, h)
		}
		seen[h] = true
	}

	t := &Tree{root: &Node{}, ranks: header}
	pathIndex := make(map[string]*Node)
	used := make(map[string]*Node)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading row: %v", ErrInput, err)
		}
		if len(row) != len(header) {
			return nil, fmt.Errorf("%w: row has %d columns, want %d", ErrInput, len(row), len(header))
		}

		cur := t.root
		for level, val := range row {
			if strings.TrimSpace(val) == "" {
				return nil, fmt.Errorf("%w: empty cell at column %q", ErrInput, header[level])
			}
			if level == len(row)-1 {
				val = tree.Canon(val)
			}
			key := strings.Join(row[:level+1], "\x00")
			n, ok := pathIndex[key]
			if !ok {
				label := val
				if existing, dup := used[label]; dup && existing != nil && pathIndex[strings.Join(row[:level], "\x00")+"\x00"+val] == nil {
					label = fmt.Sprintf("%s__%s__", val, header[level])
				}
				n = &Node{
					Label:     label,
					Rank:      header[level],
					IsSpecies: level == len(row)-1,
					parent:    cur,
				}
				cur.children = append(cur.children, n)
				pathIndex[key] = n
				used[val] = n
			}
			cur = n
		}
	}

	return t, nil
}
