// Copyright © 2022 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package newickio reads and writes phylogenetic trees in parenthetical
// (Newick) format, adapted from the timetree package's newick.go to
// the float64-age tree.Tree used across this module (branch lengths
// are already in million years; no more year<->million-year scaling).
package newickio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/jonchang/tact/tree"
)

var (
	// ErrNotNewick is returned when the input has no opening
	// parenthesis at all.
	ErrNotNewick = errors.New("not a newick tree file")
	// ErrUnexpBrLen is returned when a branch length appears where a
	// node was expected.
	ErrUnexpBrLen = errors.New("unexpected branch length")
	// ErrTreeNoName is returned when a tree has no usable name.
	ErrTreeNoName = errors.New("tree without name")
	// ErrTreeRepeated is returned when two trees in a collection share
	// a name.
	ErrTreeRepeated = errors.New("repeated tree name")
)

// minBranchLength floors zero-length branches, so that a degenerate
// polytomy collapse never produces a literal zero-length edge.
const minBranchLength = 1e-9

// A Collection holds one or more named trees read from a single
// newick or nexus file.
type Collection struct {
	trees map[string]*tree.Tree
	order []string
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{trees: make(map[string]*tree.Tree)}
}

// Add adds t to the collection.
func (c *Collection) Add(t *tree.Tree) error {
	name := strings.ToLower(strings.Join(strings.Fields(t.Name()), " "))
	if name == "" {
		return ErrTreeNoName
	}
	if _, dup := c.trees[name]; dup {
		return fmt.Errorf("%w: %s", ErrTreeRepeated, name)
	}
	c.trees[name] = t
	c.order = append(c.order, name)
	return nil
}

// Names returns the names of the trees in the collection, in read
// order.
func (c *Collection) Names() []string {
	return append([]string(nil), c.order...)
}

// Tree returns the tree with the given name, or nil.
func (c *Collection) Tree(name string) *tree.Tree {
	return c.trees[strings.ToLower(strings.Join(strings.Fields(name), " "))]
}

// rawNode is an intermediate parse tree: branch lengths are known
// immediately after parsing each subtree, but node ages can only be
// computed once the root's age is known, so parsing happens in two
// passes -- this struct is the first pass's output.
type rawNode struct {
	taxon    string
	brLen    float64
	children []*rawNode
}

func (r *rawNode) maxLen() float64 {
	if len(r.children) == 0 {
		return r.brLen
	}
	var max float64
	for _, c := range r.children {
		if m := c.maxLen() + r.brLen; m > max {
			max = m
		}
	}
	return max
}

// Read parses one or more trees in newick format. age sets the age of
// each tree's root (in million years); if age is 0, the root's age is
// inferred from the tree's deepest root-to-terminal path. name sets
// the name of the first tree; subsequent trees are named
// "<name>.<number>" starting from 1.
func Read(r io.Reader, name string, age float64) (*Collection, error) {
	name = strings.ToLower(strings.Join(strings.Fields(name), " "))
	if name == "" {
		return nil, ErrTreeNoName
	}
	c := NewCollection()
	bw := bufio.NewReader(r)

	for i := 0; ; i++ {
		nm := name
		if i > 0 {
			nm = fmt.Sprintf("%s.%d", name, i)
		}
		t, err := readOne(bw, nm, age)
		if err != nil {
			return nil, err
		}
		if t == nil {
			if i > 0 {
				break
			}
			return nil, ErrNotNewick
		}
		if err := c.Add(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ReadTree parses newick input and returns its first tree; any further
// trees are ignored.
func ReadTree(r io.Reader, name string, age float64) (*tree.Tree, error) {
	c, err := Read(r, name, age)
	if err != nil {
		return nil, err
	}
	names := c.Names()
	return c.Tree(names[0]), nil
}

func readOne(r *bufio.Reader, name string, age float64) (*tree.Tree, error) {
	for {
		r1, _, err := r.ReadRune()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if r1 == '(' {
			break
		}
	}

	last := ""
	raw := &rawNode{}
	root, err := readChildren(r, raw, &last)
	if err != nil {
		return nil, err
	}
	raw.children = root

	max := raw.maxLen()
	if age == 0 {
		age = max
	}
	if max > age+minBranchLength {
		return nil, fmt.Errorf("age should be at least %g million years", max)
	}

	t := tree.New(name, age)
	var build func(rn *rawNode, parent *tree.Node, parentAge float64) error
	build = func(rn *rawNode, parent *tree.Node, parentAge float64) error {
		nodeAge := parentAge - rn.brLen
		if nodeAge < 0 {
			nodeAge = 0
		}
		n, err := t.AddNode(parent, nodeAge, rn.taxon)
		if err != nil {
			return err
		}
		for _, c := range rn.children {
			if err := build(c, n, nodeAge); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range raw.children {
		if err := build(c, t.Root(), age); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// readChildren reads the comma-separated list of children up to the
// matching close-parenthesis, and then that node's own branch length.
func readChildren(r *bufio.Reader, n *rawNode, last *string) ([]*rawNode, error) {
	var children []*rawNode
	for {
		r1, _, err := r.ReadRune()
		if err != nil {
			return nil, fmt.Errorf("%v: last read terminal: %s", err, *last)
		}
		if r1 == ':' {
			return nil, fmt.Errorf("%w: last read terminal: %s", ErrUnexpBrLen, *last)
		}
		if unicode.IsSpace(r1) || r1 == ',' {
			continue
		}
		if r1 == '(' {
			child := &rawNode{}
			grandchildren, err := readChildren(r, child, last)
			if err != nil {
				return nil, err
			}
			child.children = grandchildren
			children = append(children, child)
			continue
		}
		if r1 == ')' {
			break
		}
		if r1 == ';' {
			r.UnreadRune()
			break
		}

		r.UnreadRune()
		term, bl, err := readTerm(r)
		if err != nil {
			if term != "" {
				*last = term
			}
			return nil, fmt.Errorf("%w: last read terminal: %s", err, *last)
		}
		children = append(children, &rawNode{taxon: term, brLen: bl})
		*last = term
	}

	if len(children) < 2 {
		return nil, fmt.Errorf("node with a single descendant: last read terminal: %s", *last)
	}

	bl, err := readBrLen(r)
	if err != nil {
		return nil, fmt.Errorf("%v: last read terminal: %s", err, *last)
	}
	n.brLen = bl
	return children, nil
}

func readBlock(r *bufio.Reader, delim rune) (string, error) {
	var b strings.Builder
	for {
		r1, _, err := r.ReadRune()
		if err != nil {
			return "", err
		}
		if r1 == delim {
			break
		}
		if r1 == '(' || r1 == ')' || r1 == ':' || r1 == ',' {
			continue
		}
		b.WriteRune(r1)
	}
	return b.String(), nil
}

func readBrLen(r *bufio.Reader) (float64, error) {
	for {
		r1, _, err := r.ReadRune()
		if err != nil {
			return 0, nil
		}
		if r1 == ':' {
			break
		}
		if r1 == ',' || unicode.IsSpace(r1) {
			return 0, nil
		}
		if r1 == '\'' {
			if _, err := readBlock(r, '\''); err != nil {
				return 0, err
			}
			continue
		}
		if r1 == '(' || r1 == ')' || r1 == ';' {
			r.UnreadRune()
			return 0, nil
		}
	}

	var b strings.Builder
	for {
		r1, _, err := r.ReadRune()
		if err != nil {
			break
		}
		if unicode.IsSpace(r1) || r1 == ',' {
			break
		}
		if r1 == '(' || r1 == ')' {
			r.UnreadRune()
			break
		}
		b.WriteRune(r1)
	}
	s := b.String()
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid branch length %q: %v", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid branch length %q: negative", s)
	}
	if v < minBranchLength {
		v = minBranchLength
	}
	return v, nil
}

func readName(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		r1, _, err := r.ReadRune()
		if err != nil {
			return "", err
		}
		if unicode.IsSpace(r1) {
			break
		}
		if r1 == '(' || r1 == ')' || r1 == ':' || r1 == ',' {
			r.UnreadRune()
			break
		}
		if r1 == '_' {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r1)
	}
	return b.String(), nil
}

func readTerm(r *bufio.Reader) (string, float64, error) {
	r1, _, _ := r.ReadRune()

	var name string
	var err error
	if r1 == '\'' {
		name, err = readBlock(r, '\'')
	} else {
		r.UnreadRune()
		name, err = readName(r)
	}
	if err != nil {
		return "", 0, err
	}

	name = tree.Canon(name)
	if name == "" {
		return "", 0, fmt.Errorf("unnamed terminal")
	}

	bl, err := readBrLen(r)
	if err != nil {
		return name, 0, err
	}
	return name, bl, nil
}

// Write encodes a single tree in newick format.
func Write(w io.Writer, t *tree.Tree) error {
	bw := bufio.NewWriter(w)
	if err := writeNode(bw, t.Root()); err != nil {
		return err
	}
	if _, err := bw.WriteString(";\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteAll encodes every tree in the collection, one newick line per
// tree.
func WriteAll(w io.Writer, c *Collection) error {
	for _, name := range c.Names() {
		if err := Write(w, c.Tree(name)); err != nil {
			return fmt.Errorf("tree %q: %w", name, err)
		}
	}
	return nil
}

func writeNode(w *bufio.Writer, n *tree.Node) error {
	if !n.IsTerm() {
		if _, err := w.WriteString("("); err != nil {
			return err
		}
		for i, c := range n.Children() {
			if i > 0 {
				if _, err := w.WriteString(","); err != nil {
					return err
				}
			}
			if err := writeNode(w, c); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(")"); err != nil {
			return err
		}
	} else {
		if _, err := w.WriteString(quoteIfNeeded(n.Taxon())); err != nil {
			return err
		}
	}
	if !n.IsRoot() {
		if _, err := fmt.Fprintf(w, ":%s", strconv.FormatFloat(n.Length(), 'g', -1, 64)); err != nil {
			return err
		}
	}
	return nil
}

func quoteIfNeeded(name string) string {
	if strings.ContainsAny(name, " ()[]:;,'") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return strings.ReplaceAll(name, " ", "_")
}
